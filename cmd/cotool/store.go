package main

import (
	"fmt"
	"time"

	"github.com/andreyvit/cobj"
	"github.com/andreyvit/cobj/store"
	"github.com/spf13/cobra"
)

type storeFlags struct {
	path    string
	journal string
	timeout time.Duration
}

func (a *app) openStore(sf *storeFlags, readOnly bool, q *cobj.Quota) (*store.Store, error) {
	return store.Open(sf.path, store.Options{
		Logger:   a.logger,
		Quota:    q,
		Timeout:    sf.timeout,
		ReadOnly:   readOnly,
		JournalDir: sf.journal,
	})
}

func newStoreCmd(a *app) *cobra.Command {
	sf := &storeFlags{}
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Keep parsed documents in a local database",
	}
	cmd.PersistentFlags().StringVar(&sf.path, "db", "cobj.db", "database file")
	cmd.PersistentFlags().StringVar(&sf.journal, "journal", "", "record changes in this directory")
	cmd.PersistentFlags().DurationVar(&sf.timeout, "lock-timeout", 0, "how long to wait for the database lock (0 means 10s)")
	cmd.AddCommand(
		newStorePutCmd(a, sf),
		newStoreGetCmd(a, sf),
		newStoreLsCmd(a, sf),
		newStoreRmCmd(a, sf),
		newStoreLogCmd(a, sf),
	)
	return cmd
}

func newStorePutCmd(a *app, sf *storeFlags) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "put COLLECTION NAME FILE",
		Short: "Parse a file and store it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			o, err := a.load(ctx, args[2], from, a.quota())
			if err != nil {
				return err
			}
			defer cobj.Destroy(o)

			s, err := a.openStore(sf, false, nil)
			if err != nil {
				return err
			}
			defer s.Close()
			changed, err := s.Put(ctx, args[0], args[1], o)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s/%s unchanged\n", args[0], args[1])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&from, "from", "f", "", "input format")
	return cmd
}

func newStoreGetCmd(a *app, sf *storeFlags) *cobra.Command {
	var (
		to string
		pf prettyFlag
	)
	cmd := &cobra.Command{
		Use:   "get COLLECTION NAME",
		Short: "Print a stored document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(sf, true, a.quota())
			if err != nil {
				return err
			}
			defer s.Close()
			o, err := s.Get(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			defer cobj.Destroy(o)
			w := cmd.OutOrStdout()
			return writeOutput(w, o, to, pf.enabled(w))
		},
	}
	cmd.Flags().StringVarP(&to, "to", "t", "json", "output format")
	pf.register(cmd)
	return cmd
}

func newStoreLsCmd(a *app, sf *storeFlags) *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "ls [COLLECTION]",
		Short: "List collections, or the names in a collection",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(sf, true, nil)
			if err != nil {
				return err
			}
			defer s.Close()
			w := cmd.OutOrStdout()
			if len(args) == 0 {
				infos, err := s.Collections(cmd.Context())
				if err != nil {
					return err
				}
				for _, ci := range infos {
					fmt.Fprintf(w, "%s\t%d\n", ci.Name, ci.Count)
				}
				return nil
			}
			names, err := s.Names(cmd.Context(), args[0], prefix)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(w, name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "only names starting with this")
	return cmd
}

func newStoreRmCmd(a *app, sf *storeFlags) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "rm COLLECTION [NAME]...",
		Short: "Delete stored documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.openStore(sf, false, nil)
			if err != nil {
				return err
			}
			defer s.Close()
			if all {
				return s.DropCollection(ctx, args[0])
			}
			if len(args) < 2 {
				return fmt.Errorf("no names given (use --all to delete the whole collection)")
			}
			for _, name := range args[1:] {
				found, err := s.Delete(ctx, args[0], name)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("%s/%s: %w", args[0], name, store.ErrNotFound)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "delete the whole collection")
	return cmd
}

func newStoreLogCmd(a *app, sf *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "Print the change journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sf.journal == "" {
				return fmt.Errorf("--journal is required")
			}
			w := cmd.OutOrStdout()
			return store.ReadChanges(cmd.Context(), sf.journal, a.logger, func(c store.Change) error {
				ts := c.Time.Format(time.RFC3339)
				var err error
				switch c.Op {
				case store.OpPut:
					_, err = fmt.Fprintf(w, "%s %s %s/%s %016x\n", ts, c.Op, c.Collection, c.Name, c.Fingerprint)
				case store.OpDrop:
					_, err = fmt.Fprintf(w, "%s %s %s\n", ts, c.Op, c.Collection)
				default:
					_, err = fmt.Fprintf(w, "%s %s %s/%s\n", ts, c.Op, c.Collection, c.Name)
				}
				return err
			})
		},
	}
}
