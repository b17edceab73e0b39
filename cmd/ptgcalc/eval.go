package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

func newEvalCmd(a *app) *cobra.Command {
	var (
		in        inputs
		at        string
		showCells bool
	)
	cmd := &cobra.Command{
		Use:   "eval [flags] FORMULA...",
		Short: "Evaluate formulas against a scratch workbook",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.newWorkbook()
			if err != nil {
				return err
			}
			defer w.Close()
			if err := in.fill(w); err != nil {
				return err
			}

			type result struct {
				Formula string `json:"formula"`
				Value   string `json:"value"`
				Kind    string `json:"kind"`
			}
			var results []result
			for _, formula := range args {
				v, err := w.Evaluate(at, formula)
				if err != nil {
					return err
				}
				if v == nil {
					v = token.Blank{}
				}
				results = append(results, result{Formula: formula, Value: display(v), Kind: v.Kind().String()})
			}

			if showCells {
				if err := a.printCells(w); err != nil {
					return err
				}
			}
			if a.jsonOutput {
				return a.writeJSON(results)
			}
			for _, r := range results {
				fmt.Fprintln(a.stdout, r.Value)
			}
			return nil
		},
	}
	in.register(cmd)
	cmd.Flags().StringVar(&at, "at", "A1", "Cell the formulas are evaluated from")
	cmd.Flags().BoolVar(&showCells, "cells", false, "Also print every cell after calculation")
	return cmd
}
