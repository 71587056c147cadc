package main

import (
	"github.com/andreyvit/cobj"
	"github.com/spf13/cobra"
)

func newFormatCmd(a *app) *cobra.Command {
	var pf prettyFlag
	cmd := &cobra.Command{
		Use:   "format [FILE]",
		Short: "Reformat JSON, indented or compact",
		Long:  "Reads JSON from FILE or standard input and writes it back with keys sorted.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "-"
			if len(args) > 0 {
				name = args[0]
			}
			o, err := a.load(cmd.Context(), name, "json", a.quota())
			if err != nil {
				return err
			}
			defer cobj.Destroy(o)
			w := cmd.OutOrStdout()
			return writeOutput(w, o, "json", pf.enabled(w))
		},
	}
	pf.register(cmd)
	return cmd
}
