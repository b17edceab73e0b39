package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vogtb/go-spreadsheet/packages/formula/compile"
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

func newTokensCmd(a *app) *cobra.Command {
	var lexOnly bool
	cmd := &cobra.Command{
		Use:   "tokens FORMULA",
		Short: "Show the postfix tokens a formula compiles to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if lexOnly {
				lines, err := compile.Lex(args[0])
				if err != nil {
					return err
				}
				if a.jsonOutput {
					return a.writeJSON(lines)
				}
				for _, line := range lines {
					fmt.Fprintln(a.stdout, line)
				}
				return nil
			}

			tokens, err := compile.Compile(args[0], compile.WithAliases(a.cfg.Aliases))
			if err != nil {
				return err
			}
			type item struct {
				Kind string `json:"kind"`
				Text string `json:"text"`
			}
			items := make([]item, len(tokens))
			for i, t := range tokens {
				items[i] = item{Kind: t.Kind().String(), Text: t.String()}
			}
			if a.jsonOutput {
				return a.writeJSON(items)
			}
			for _, it := range items {
				fmt.Fprintf(a.stdout, "%s\t%s\n", it.Kind, it.Text)
			}
			if text, ok := token.Format(tokens); ok {
				fmt.Fprintf(a.stdout, "= %s\n", text)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&lexOnly, "lex", false, "Show lexical tokens instead of compiled ones")
	return cmd
}
