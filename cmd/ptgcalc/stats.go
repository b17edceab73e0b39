package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vogtb/go-spreadsheet/packages/formula/workbook"
)

func newStatsCmd(a *app) *cobra.Command {
	var in inputs
	cmd := &cobra.Command{
		Use:   "stats [ID|NAME]",
		Short: "Report workbook sizes for a snapshot or for the given cells",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var w *workbook.Workbook
			if len(args) == 1 {
				var err error
				if w, _, err = a.loadWorkbook(cmd, args[0]); err != nil {
					return err
				}
			} else {
				var err error
				if w, err = a.newWorkbook(); err != nil {
					return err
				}
				if err := in.fill(w); err != nil {
					w.Close()
					return err
				}
			}
			defer w.Close()

			st := w.Stats()
			if a.jsonOutput {
				return a.writeJSON(st)
			}
			rows := []struct {
				label string
				n     int
			}{
				{"worksheets", st.Worksheets},
				{"cells", st.Cells},
				{"formulas", st.Formulas},
				{"volatile", st.Volatile},
				{"names", st.Names},
				{"strings", st.Strings},
				{"tracked cells", st.Tracker.Cells},
				{"tracked areas", st.Tracker.Areas},
				{"cache hits", st.Tracker.CacheHits},
				{"cache misses", st.Tracker.CacheMisses},
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\n", r.label, humanize.Comma(int64(r.n)))
			}
			return tw.Flush()
		},
	}
	in.register(cmd)
	return cmd
}
