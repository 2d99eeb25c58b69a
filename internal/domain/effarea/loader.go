package effarea

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load reads a table from path. Files ending in .yaml or .yml are read as
//
//	bins:
//	  - {eta_min: 0.0, eta_max: 1.0, area: 0.1752}
//
// anything else as the whitespace-separated text format understood by Parse.
func Load(_ context.Context, path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadTable, err)
	}
	defer func() { _ = f.Close() }()

	return Parse(path, f)
}

// Parse reads the text format: one "etaMin etaMax area" triple per line,
// lines starting with '#' and blank lines ignored.
func Parse(source string, r io.Reader) (*Table, error) {
	var bins []Bin
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		b, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: %s:%d: %w", ErrInvalidTable, source, lineNo, err)
		}
		bins = append(bins, b)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadTable, source, err)
	}
	return New(source, bins)
}

func parseLine(line string) (Bin, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return Bin{}, fmt.Errorf("expected 3 columns, got %d", len(fields))
	}
	var vals [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Bin{}, fmt.Errorf("column %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return Bin{EtaMin: vals[0], EtaMax: vals[1], Area: vals[2]}, nil
}

func loadYAML(path string) (*Table, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadTable, path, err)
	}
	var doc struct {
		Bins []Bin `koanf:"bins"`
	}
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidTable, path, err)
	}
	return New(path, doc.Bins)
}
