// Command miniiso-eval evaluates a stream of JSON events offline and writes
// one JSON result per event.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/miniiso/internal/adapters/repository"
	app "github.com/okian/miniiso/internal/app"
	"github.com/okian/miniiso/internal/domain/effarea"
	"github.com/okian/miniiso/internal/domain/model"
	"github.com/okian/miniiso/pkg/logger"
)

const (
	defaultElectronTable = "data/effAreaElectrons_cone03_pfNeuHadronsAndPhotons.txt"
	defaultMuonTable     = "data/effAreaMuons_cone03_pfNeuHadronsAndPhotons.txt"
)

// Config holds the evaluator's command-line settings.
type Config struct {
	Input         string // "-" reads stdin
	Output        string // "-" writes stdout
	ElectronTable string
	MuonTable     string
	FailFast      bool
}

// Summary counts what a run did.
type Summary struct {
	Events int
	Failed int
}

func main() {
	var (
		input    = flag.String("in", "-", "Input file of JSON events, one per line (- for stdin)")
		output   = flag.String("out", "-", "Output file for JSON results (- for stdout)")
		electron = flag.String("electron-ea", defaultElectronTable, "Electron effective-area table (text or YAML)")
		muon     = flag.String("muon-ea", defaultMuonTable, "Muon effective-area table (text or YAML)")
		level    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		failFast = flag.Bool("fail-fast", false, "Stop at the first event that fails evaluation")
	)
	flag.Parse()

	// Results go to stdout by default, so logs go to stderr.
	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(*level); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := Config{
		Input:         *input,
		Output:        *output,
		ElectronTable: *electron,
		MuonTable:     *muon,
		FailFast:      *failFast,
	}
	sum, err := runFiles(ctx, cfg, logger.Named("eval"))
	if err != nil {
		logger.Get().Error(ctx, "evaluation aborted", logger.Error(err))
		os.Exit(1)
	}
	logger.Get().Info(ctx, "evaluation finished",
		logger.Int("events", sum.Events),
		logger.Int("failed", sum.Failed))
	if sum.Failed > 0 {
		os.Exit(1)
	}
}

// runFiles opens the configured input and output and calls Run.
func runFiles(ctx context.Context, cfg Config, l logger.Logger) (Summary, error) {
	in := io.Reader(os.Stdin)
	if cfg.Input != "-" {
		f, err := os.Open(cfg.Input)
		if err != nil {
			return Summary{}, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	out := io.Writer(os.Stdout)
	if cfg.Output != "-" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return Summary{}, fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	return Run(ctx, cfg, in, out, l)
}

// Run evaluates every event decoded from in and writes one result per event
// to out, in input order. Events that fail evaluation are written with the
// failed status unless FailFast is set.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer, l logger.Logger) (Summary, error) {
	if l == nil {
		l = logger.Nop()
	}
	electronAreas, err := effarea.Load(ctx, cfg.ElectronTable)
	if err != nil {
		return Summary{}, fmt.Errorf("electron effective areas: %w", err)
	}
	muonAreas, err := effarea.Load(ctx, cfg.MuonTable)
	if err != nil {
		return Summary{}, fmt.Errorf("muon effective areas: %w", err)
	}
	proc, err := app.NewReplayProcessor(electronAreas, muonAreas, l)
	if err != nil {
		return Summary{}, err
	}

	dec := json.NewDecoder(in)
	enc := json.NewEncoder(out)
	var sum Summary

	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		var ev model.Event
		if err := dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return sum, nil
			}
			return sum, fmt.Errorf("decode event %d: %w", sum.Events+1, err)
		}
		sum.Events++

		res, err := proc.Process(ctx, &ev)
		if err != nil {
			if cfg.FailFast {
				return sum, fmt.Errorf("event %q: %w", ev.ID, err)
			}
			sum.Failed++
			l.Warn(ctx, "event failed", logger.String("event_id", ev.ID), logger.Error(err))
			res = repository.EventResult{
				EventID: ev.ID,
				Run:     ev.Run,
				Lumi:    ev.Lumi,
				Number:  ev.Number,
				Status:  repository.StatusFailed,
				Error:   err.Error(),
			}
		}
		if err := enc.Encode(res); err != nil {
			return sum, fmt.Errorf("write result %q: %w", ev.ID, err)
		}
	}
}
