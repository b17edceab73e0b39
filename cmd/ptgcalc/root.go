package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vogtb/go-spreadsheet/packages/formula/config"
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
	"github.com/vogtb/go-spreadsheet/packages/formula/workbook"
)

type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	dbPath     string
	jsonOutput bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:     "ptgcalc",
		Short:   "Spreadsheet formula calculator",
		Version: version,
		Long: `Evaluate spreadsheet formulas against a scratch workbook.

Commands:
  eval      Fill cells, calculate and evaluate formulas.
  tokens    Show how a formula compiles.
  snapshot  Save, load, list and delete workbook snapshots.
  stats     Report workbook sizes.

Cells are filled with --set ADDRESS=INPUT, where input starting with '='
is a formula. Names are defined with --name NAME=FORMULA.

Examples:
  ptgcalc eval --set A1=2 --set A2=3 "SUM(A1:A2)*2"
  ptgcalc tokens "=IF(A1>0,A1,-A1)"
  ptgcalc snapshot save budget --set "A1=10" --set "B1==A1*2"
  ptgcalc snapshot load budget`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&a.dbPath, "db", "", "Snapshot database path (overrides store.path)")
	flags.BoolVar(&a.jsonOutput, "json", false, "Output JSON instead of text")

	root.AddCommand(
		newEvalCmd(a),
		newTokensCmd(a),
		newSnapshotCmd(a),
		newStatsCmd(a),
	)
	return root
}

func (a *app) setup(*cobra.Command, []string) error {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		if cfg, err = config.Load(a.configPath); err != nil {
			return err
		}
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.dbPath != "" {
		cfg.Store.Path = a.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := cfg.Logger(a.stderr)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) newWorkbook() (*workbook.Workbook, error) {
	settings, err := a.cfg.CalcSettings()
	if err != nil {
		return nil, err
	}
	return workbook.New(workbook.WithSettings(settings), workbook.WithLogger(a.logger)), nil
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// inputs are the flags that fill a scratch workbook
type inputs struct {
	sheets []string
	cells  []string
	names  []string
	file   string
}

func (in *inputs) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringArrayVar(&in.sheets, "sheet", nil, "Add a worksheet (repeatable; default Sheet1)")
	flags.StringArrayVar(&in.cells, "set", nil, "Set a cell, ADDRESS=INPUT (repeatable)")
	flags.StringArrayVar(&in.names, "name", nil, "Define a name, NAME=FORMULA (repeatable)")
	flags.StringVarP(&in.file, "file", "f", "", "Start from a YAML snapshot file")
}

// fill applies the inputs to w and calculates it
func (in *inputs) fill(w *workbook.Workbook) error {
	if in.file != "" {
		data, err := os.ReadFile(in.file)
		if err != nil {
			return err
		}
		var snap workbook.Snapshot
		if err := yaml.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("reading %s: %w", in.file, err)
		}
		if err := w.Restore(snap); err != nil {
			return err
		}
	}
	sheets := in.sheets
	if len(sheets) == 0 && len(w.Worksheets()) == 0 {
		sheets = []string{"Sheet1"}
	}
	for _, name := range sheets {
		if err := w.AddWorksheet(name); err != nil {
			return err
		}
	}
	for _, def := range in.names {
		name, formula, err := splitAssignment(def)
		if err != nil {
			return err
		}
		if err := w.DefineName(name, formula); err != nil {
			return err
		}
	}
	for _, set := range in.cells {
		address, input, err := splitAssignment(set)
		if err != nil {
			return err
		}
		if err := w.Set(address, input); err != nil {
			return err
		}
	}
	return w.Calculate()
}

// splitAssignment splits "A1==B1+1" into "A1" and "=B1+1"
func splitAssignment(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("expected KEY=VALUE, got %q", s)
	}
	return key, value, nil
}

// display renders a value for output; text is shown without quoting
func display(v token.Token) string {
	if s, ok := v.(token.Str); ok {
		return string(s)
	}
	return workbook.FormatInput(v)
}

type cellOutput struct {
	Sheet string `json:"sheet"`
	Cell  string `json:"cell"`
	Input string `json:"input"`
	Value string `json:"value"`
}

func (a *app) printCells(w *workbook.Workbook) error {
	var out []cellOutput
	for _, c := range w.Cells() {
		address := token.QuoteSheet(c.Sheet) + "!" + c.Cell
		v, err := w.Get(address)
		if err != nil {
			return err
		}
		out = append(out, cellOutput{Sheet: c.Sheet, Cell: c.Cell, Input: c.Input, Value: display(v)})
	}
	if a.jsonOutput {
		return a.writeJSON(out)
	}
	for _, c := range out {
		line := token.QuoteSheet(c.Sheet) + "!" + c.Cell + "\t" + c.Value
		if strings.HasPrefix(c.Input, "=") {
			line += "\t" + c.Input
		}
		fmt.Fprintln(a.stdout, line)
	}
	return nil
}
