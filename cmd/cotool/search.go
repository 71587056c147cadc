package main

import (
	"io"

	"github.com/andreyvit/cobj"
	"github.com/andreyvit/cobj/cojson"
	"github.com/andreyvit/cobj/diff"
	"github.com/spf13/cobra"
)

func newSearchCmd(a *app) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "search FILE KEY",
		Short: "Print every value stored under a map key",
		Long: "Walks the whole document and prints the path and JSON value of every map entry\n" +
			"named KEY. Exits with status 1 when there is none.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.load(cmd.Context(), args[0], from, a.quota())
			if err != nil {
				return err
			}
			defer cobj.Destroy(o)
			n, err := search(cmd.OutOrStdout(), o, args[1])
			if err != nil {
				return err
			}
			if n == 0 {
				return exitError(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&from, "from", "f", "", "input format")
	return cmd
}

// search prints matches depth-first, maps in key order, and returns how
// many it found. Matching values are not searched further.
func search(w io.Writer, o *cobj.Object, key string) (int, error) {
	s := searcher{w: w, key: key}
	s.walk(o)
	return s.found, s.err
}

type searcher struct {
	w     io.Writer
	key   string
	path  []any
	buf   []byte
	found int
	err   error
}

func (s *searcher) walk(o *cobj.Object) {
	switch o.Kind() {
	case cobj.KindVector:
		for i, el := range o.Vector().All() {
			s.path = append(s.path, i)
			s.walk(el)
			s.path = s.path[:len(s.path)-1]
		}
	case cobj.KindMap:
		for k, el := range o.Map().All() {
			s.path = append(s.path, k)
			if k == s.key {
				s.print(el)
			} else {
				s.walk(el)
			}
			s.path = s.path[:len(s.path)-1]
		}
	}
}

func (s *searcher) print(o *cobj.Object) {
	s.found++
	if s.err != nil {
		return
	}
	s.buf = append(s.buf[:0], diff.FormatPath(s.path)...)
	s.buf = append(s.buf, " = "...)
	s.buf = cojson.Append(s.buf, o, cojson.WriteOptions{})
	s.buf = append(s.buf, '\n')
	_, s.err = s.w.Write(s.buf)
}

