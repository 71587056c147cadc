package main

import (
	"fmt"
	"log/slog"

	"github.com/andreyvit/cobj"
	"github.com/andreyvit/cobj/diff"
	"github.com/spf13/cobra"
)

func newCompareCmd(a *app) *cobra.Command {
	var (
		from     string
		maxDiffs int
		asJSON   bool
		pf       prettyFlag
	)
	cmd := &cobra.Command{
		Use:   "compare FILE1 FILE2",
		Short: "Report structural differences between two files",
		Long: "Compares two files value by value. Exits with status 0 when they are identical,\n" +
			"1 when they differ and 2 on errors.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q := a.quota()
			left, err := a.load(ctx, args[0], from, q)
			if err != nil {
				return err
			}
			defer cobj.Destroy(left)
			right, err := a.load(ctx, args[1], from, q)
			if err != nil {
				return err
			}
			defer cobj.Destroy(right)

			rep := diff.Compare(left, right, diff.Options{MaxDiffs: maxDiffs})
			a.logger.LogAttrs(ctx, slog.LevelDebug, "cotool: compared",
				slog.Int("differences", len(rep.Diffs)),
				slog.Bool("truncated", rep.Truncated))

			w := cmd.OutOrStdout()
			if asJSON {
				ro, err := rep.Object(nil)
				if err != nil {
					return err
				}
				defer cobj.Destroy(ro)
				if err := writeOutput(w, ro, "json", pf.enabled(w)); err != nil {
					return err
				}
			} else {
				for _, d := range rep.Diffs {
					fmt.Fprintln(w, d)
				}
				if rep.Truncated {
					fmt.Fprintf(w, "stopped after %d differences\n", len(rep.Diffs))
				}
			}
			if !rep.Identical() {
				return exitError(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&from, "from", "f", "", "input format of both files")
	cmd.Flags().IntVar(&maxDiffs, "max-diffs", 0, "stop after this many differences (0 means 100, negative means all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "write the report as JSON")
	pf.register(cmd)
	return cmd
}
