package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vogtb/go-spreadsheet/packages/formula/store"
	"github.com/vogtb/go-spreadsheet/packages/formula/workbook"
)

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save, load, list and delete workbook snapshots",
	}
	cmd.AddCommand(
		newSnapshotSaveCmd(a),
		newSnapshotLoadCmd(a),
		newSnapshotListCmd(a),
		newSnapshotDeleteCmd(a),
	)
	return cmd
}

func (a *app) openStore() (store.Store, error) {
	a.logger.Debug("opening snapshot store", "path", a.cfg.Store.Path)
	return store.Open(a.cfg.Store.Path)
}

// loadWorkbook restores the snapshot ref into a new workbook
func (a *app) loadWorkbook(cmd *cobra.Command, ref string) (*workbook.Workbook, store.Entry, error) {
	s, err := a.openStore()
	if err != nil {
		return nil, store.Entry{}, err
	}
	defer s.Close()
	snap, entry, err := s.Load(cmd.Context(), ref)
	if err != nil {
		return nil, store.Entry{}, err
	}
	w, err := a.newWorkbook()
	if err != nil {
		return nil, store.Entry{}, err
	}
	if err := w.Restore(snap); err != nil {
		w.Close()
		return nil, store.Entry{}, err
	}
	return w, entry, nil
}

func newSnapshotSaveCmd(a *app) *cobra.Command {
	var in inputs
	cmd := &cobra.Command{
		Use:   "save NAME",
		Short: "Build a workbook from flags and save it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.newWorkbook()
			if err != nil {
				return err
			}
			defer w.Close()
			if err := in.fill(w); err != nil {
				return err
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			id, err := s.Save(cmd.Context(), args[0], w.Snapshot())
			if err != nil {
				return err
			}
			a.logger.Info("snapshot saved", "name", args[0], "id", id)
			if a.jsonOutput {
				return a.writeJSON(map[string]string{"id": id, "name": args[0]})
			}
			fmt.Fprintln(a.stdout, id)
			return nil
		},
	}
	in.register(cmd)
	return cmd
}

func newSnapshotLoadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load ID|NAME",
		Short: "Load a snapshot, calculate it and print its cells",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, _, err := a.loadWorkbook(cmd, args[0])
			if err != nil {
				return err
			}
			defer w.Close()
			return a.printCells(w)
		},
	}
}

func newSnapshotListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			entries, err := s.List(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.writeJSON(entries)
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCELLS\tSIZE\tSAVED")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					e.ID, e.Name, humanize.Comma(int64(e.Cells)),
					humanize.Bytes(uint64(e.Size)), humanize.Time(e.Saved))
			}
			return tw.Flush()
		},
	}
}

func newSnapshotDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			return s.Delete(cmd.Context(), args[0])
		},
	}
}
