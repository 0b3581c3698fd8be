package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fontpipe/fontpipe/internal/ops"
)

var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "List the available recipe operations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, kind := range ops.Kinds() {
			fmt.Fprintf(w, "%s\t%s\n", kind, ops.Describe(kind))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(operationsCmd)
}
