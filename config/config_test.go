package config_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/vogtb/go-spreadsheet/packages/formula/calc"
	"github.com/vogtb/go-spreadsheet/packages/formula/config"
	"github.com/vogtb/go-spreadsheet/packages/formula/reference"
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
	"github.com/vogtb/go-spreadsheet/packages/formula/workbook"
)

const full = `
recursion_limit: 5
calc_mode: explicit
format: legacy
aliases:
  SUMME: SUM
  Mittelwert: average
log:
  level: debug
  format: json
store:
  path: /tmp/book.db
`

func TestDefaults(t *testing.T) {
	cfg, err := config.Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, config.Default()) {
		t.Errorf("empty document = %+v, want the defaults", cfg)
	}
	s, err := cfg.CalcSettings()
	if err != nil {
		t.Fatal(err)
	}
	if s.Mode != calc.Automatic || s.Format != reference.Extended || s.RecursionLimit != calc.DefaultRecursionLimit {
		t.Errorf("default settings = %+v", s)
	}
}

func TestParseFull(t *testing.T) {
	cfg, err := config.Parse([]byte(full))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Path != "/tmp/book.db" || cfg.Log.Format != "json" {
		t.Errorf("parsed = %+v", cfg)
	}
	s, err := cfg.CalcSettings()
	if err != nil {
		t.Fatal(err)
	}
	if s.Mode != calc.Explicit || s.Format != reference.Legacy || s.RecursionLimit != 5 {
		t.Errorf("settings = %+v", s)
	}
	if s.Aliases["SUMME"] != "SUM" || s.Aliases["Mittelwert"] != "average" {
		t.Errorf("aliases = %v", s.Aliases)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "colour: blue", "colour"},
		{"bad mode", "calc_mode: sometimes", "calc_mode"},
		{"bad format", "format: ods", "format"},
		{"negative limit", "recursion_limit: -1", "recursion_limit"},
		{"bad level", "log: {level: loud}", "log.level"},
		{"bad log format", "log: {format: xml}", "log.format"},
		{"empty alias", "aliases: {SUMME: ''}", "aliases"},
		{"not yaml", "recursion_limit: [", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatalf("Parse(%q) succeeded", tt.yaml)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ptgcalc.yaml")
	if err := os.WriteFile(path, []byte(full), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RecursionLimit != 5 {
		t.Errorf("recursion_limit = %d", cfg.RecursionLimit)
	}

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) = %v, want ErrNotExist", err)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg, err := config.Parse([]byte(full))
	if err != nil {
		t.Fatal(err)
	}
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	again, err := config.Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, again) {
		t.Errorf("round trip changed the config:\n%s", data)
	}
}

func TestLogger(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Format = "json"
	var buf bytes.Buffer
	logger, err := cfg.Logger(&buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hidden")
	logger.Info("shown", "cells", 3)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record written at info level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"cells":3`) {
		t.Errorf("unexpected json output: %s", out)
	}
}

func TestSettingsDriveWorkbook(t *testing.T) {
	cfg, err := config.Parse([]byte("aliases: {SUMME: SUM}\nrecursion_limit: 5\n"))
	if err != nil {
		t.Fatal(err)
	}
	s, err := cfg.CalcSettings()
	if err != nil {
		t.Fatal(err)
	}
	w := workbook.New(workbook.WithSettings(s))
	defer w.Close()
	if err := w.AddWorksheet("Sheet1"); err != nil {
		t.Fatal(err)
	}
	if err := w.Set("A1", "=SUMME(1,2)"); err != nil {
		t.Fatal(err)
	}
	v, err := w.Get("A1")
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := v.(token.Number); !ok || n != 3 {
		t.Errorf("SUMME(1,2) = %v, want 3", v)
	}
	if got := w.Settings().RecursionLimit; got != 5 {
		t.Errorf("recursion limit = %d, want 5", got)
	}
}
