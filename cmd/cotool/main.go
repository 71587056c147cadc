// Command cotool converts, compares and inspects data files through cobj
// object graphs.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/andreyvit/cobj"
	"github.com/spf13/cobra"
)

// exitError ends the process with a specific status without printing.
type exitError int

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

type app struct {
	logger  *slog.Logger
	verbose bool
	limit   int64
	noMmap  bool
}

func (a *app) quota() *cobj.Quota {
	return cobj.NewQuota(a.limit)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "cotool",
		Short:         "Convert, compare and inspect JSON, CSV, XML, YAML, A2L and firmware image files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug details to stderr")
	root.PersistentFlags().Int64Var(&a.limit, "limit", 0, "maximum bytes of memory per parsed input (0 means unlimited)")
	root.PersistentFlags().BoolVar(&a.noMmap, "no-mmap", false, "read input files instead of memory mapping them")

	root.AddCommand(
		newFormatCmd(a),
		newConvertCmd(a),
		newCompareCmd(a),
		newSearchCmd(a),
		newA2LInfoCmd(a),
		newStoreCmd(a),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd(&app{logger: slog.Default()}).ExecuteContext(ctx)
	stop()

	var ee exitError
	switch {
	case err == nil:
	case errors.As(err, &ee):
		os.Exit(int(ee))
	default:
		fmt.Fprintf(os.Stderr, "cotool: %v\n", err)
		os.Exit(2)
	}
}
