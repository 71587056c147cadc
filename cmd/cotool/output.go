package main

import (
	"fmt"
	"io"
	"os"

	"github.com/andreyvit/cobj"
	"github.com/andreyvit/cobj/cojson"
	"github.com/andreyvit/cobj/coyaml"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var outputFormats = []string{"json", "yaml", "msgpack"}

// prettyFlag is a tri-state: unset means pretty when stdout is a terminal.
type prettyFlag struct {
	pretty  bool
	compact bool
}

func (p *prettyFlag) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&p.pretty, "pretty", false, "indent output (default when writing to a terminal)")
	cmd.Flags().BoolVar(&p.compact, "compact", false, "write JSON on a single line")
	cmd.MarkFlagsMutuallyExclusive("pretty", "compact")
}

func (p *prettyFlag) enabled(w io.Writer) bool {
	switch {
	case p.pretty:
		return true
	case p.compact:
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func writeOutput(w io.Writer, o *cobj.Object, format string, pretty bool) error {
	switch format {
	case "json":
		opt := cojson.WriteOptions{}
		if pretty {
			opt.Indent = "  "
		}
		buf := cojson.Append(nil, o, opt)
		buf = append(buf, '\n')
		_, err := w.Write(buf)
		return err
	case "yaml":
		return coyaml.Write(w, o, coyaml.WriteOptions{})
	case "msgpack":
		buf, err := cobj.AppendMsgpack(nil, o)
		if err != nil {
			return err
		}
		_, err = w.Write(buf)
		return err
	}
	return fmt.Errorf("unknown output format %q (supported: json, yaml, msgpack)", format)
}
