package main

import (
	"os"

	"github.com/fontpipe/fontpipe/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
