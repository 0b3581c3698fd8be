package ops

// exec runs an arbitrary command line. The rule is just the two parameters
// spliced together, so recipes using it must declare a target the command
// actually writes.
type exec struct{ Base }

func (op *exec) Validate() error {
	if err := op.requireParam("exe"); err != nil {
		return err
	}
	return op.requireParam("args")
}

func init() {
	register("exec", "Run an arbitrary command",
		func(p map[string]any) Operation {
			return &exec{newBase("exec", "$exe $args", p)}
		})
}
