package main

import (
	"os"
	"strings"

	"github.com/andreyvit/cobj"
	"github.com/spf13/cobra"
)

func newConvertCmd(a *app) *cobra.Command {
	var (
		from, to, output string
		pf               prettyFlag
	)
	cmd := &cobra.Command{
		Use:   "convert [FILE]",
		Short: "Convert between data formats",
		Long: "Parses FILE (or standard input) and writes it in another format.\n\n" +
			"Input formats: " + strings.Join(inputFormats, ", ") + ". Without --from the format is guessed from the file extension.\n" +
			"Output formats: " + strings.Join(outputFormats, ", ") + ".",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			name := "-"
			if len(args) > 0 {
				name = args[0]
			}
			o, err := a.load(cmd.Context(), name, from, a.quota())
			if err != nil {
				return err
			}
			defer cobj.Destroy(o)

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer func() {
					if cerr := f.Close(); err == nil {
						err = cerr
					}
				}()
				w = f
			}
			return writeOutput(w, o, to, pf.enabled(w))
		},
	}
	cmd.Flags().StringVarP(&from, "from", "f", "", "input format")
	cmd.Flags().StringVarP(&to, "to", "t", "json", "output format")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of standard output")
	pf.register(cmd)
	return cmd
}
