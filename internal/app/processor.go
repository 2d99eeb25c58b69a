package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/miniiso/internal/adapters/mq/worker"
	"github.com/okian/miniiso/internal/adapters/provider/replay"
	"github.com/okian/miniiso/internal/adapters/repository"
	"github.com/okian/miniiso/internal/domain/impact"
	"github.com/okian/miniiso/internal/domain/isolation"
	"github.com/okian/miniiso/internal/domain/model"
	"github.com/okian/miniiso/internal/domain/record"
	"github.com/okian/miniiso/pkg/logger"
	"github.com/okian/miniiso/pkg/metrics"
)

// Processor evaluates every lepton of an event. It binds its provider to
// the event once, then runs each evaluator on each candidate and merges
// their records in evaluator order. A Processor must not be shared between
// goroutines processing different events.
type Processor struct {
	binder    isolation.EventBinder
	electrons []record.Evaluator[*model.Electron]
	muons     []record.Evaluator[*model.Muon]
	logger    logger.Logger
}

var _ worker.Processor = (*Processor)(nil)

// NewProcessor builds a processor. binder is the event-scoped provider the
// evaluators read from.
func NewProcessor(
	binder isolation.EventBinder,
	electrons []record.Evaluator[*model.Electron],
	muons []record.Evaluator[*model.Muon],
	l logger.Logger,
) *Processor {
	if l == nil {
		l = logger.Nop()
	}
	return &Processor{binder: binder, electrons: electrons, muons: muons, logger: l}
}

// NewReplayProcessor wires the replay provider, both mini-isolation
// aggregators and the impact-parameter tools.
func NewReplayProcessor(electronAreas, muonAreas isolation.AreaTable, l logger.Logger) (*Processor, error) {
	if l == nil {
		l = logger.Nop()
	}
	provider := replay.New(replay.WithLogger(l))

	electronIso, err := isolation.NewElectronAggregator(provider.Electrons(), electronAreas, isolation.WithLogger(l))
	if err != nil {
		return nil, fmt.Errorf("electron aggregator: %w", err)
	}
	muonIso, err := isolation.NewMuonAggregator(provider.Muons(), muonAreas, isolation.WithLogger(l))
	if err != nil {
		return nil, fmt.Errorf("muon aggregator: %w", err)
	}

	return NewProcessor(provider,
		[]record.Evaluator[*model.Electron]{electronIso, impact.ElectronTool{}},
		[]record.Evaluator[*model.Muon]{muonIso, impact.MuonTool{}},
		l.Named("processor"),
	), nil
}

// Process implements worker.Processor.
func (p *Processor) Process(ctx context.Context, ev *model.Event) (repository.EventResult, error) {
	if ev == nil {
		return repository.EventResult{}, ErrInvalidEvent
	}
	if err := p.binder.SetCurrentEvent(ev); err != nil {
		return repository.EventResult{}, fmt.Errorf("bind event %s: %w", ev.ID, err)
	}

	res := repository.EventResult{
		EventID:   ev.ID,
		Run:       ev.Run,
		Lumi:      ev.Lumi,
		Number:    ev.Number,
		Status:    repository.StatusDone,
		Electrons: make([]repository.CandidateResult, 0, len(ev.Electrons)),
		Muons:     make([]repository.CandidateResult, 0, len(ev.Muons)),
	}

	for i, el := range ev.Electrons {
		vars, err := evaluate(ctx, p.electrons, el, ev, model.KindElectron, el != nil && el.SuperCluster != nil)
		if err != nil {
			return repository.EventResult{}, fmt.Errorf("%s: %w", model.CandidateKey(model.KindElectron, i), err)
		}
		res.Electrons = append(res.Electrons, repository.CandidateResult{Kind: model.KindElectron, Index: i, Vars: vars})
	}
	for i, mu := range ev.Muons {
		vars, err := evaluate(ctx, p.muons, mu, ev, model.KindMuon, mu != nil)
		if err != nil {
			return repository.EventResult{}, fmt.Errorf("%s: %w", model.CandidateKey(model.KindMuon, i), err)
		}
		res.Muons = append(res.Muons, repository.CandidateResult{Kind: model.KindMuon, Index: i, Vars: vars})
	}

	res.ProcessedAt = time.Now().UTC()
	p.logger.Debug(ctx, "event evaluated",
		logger.String("event_id", ev.ID),
		logger.Int("electrons", len(res.Electrons)),
		logger.Int("muons", len(res.Muons)),
	)
	return res, nil
}

func evaluate[C any](
	ctx context.Context,
	evals []record.Evaluator[C],
	cand C,
	ev model.EventContext,
	kind model.Kind,
	valid bool,
) (*record.Record, error) {
	start := time.Now()
	out := record.New(0)
	for _, e := range evals {
		rec, err := e.Evaluate(ctx, cand, ev)
		if err != nil {
			metrics.RecordProviderError(string(kind))
			return nil, err
		}
		out.Merge(rec)
	}
	metrics.RecordCandidate(string(kind), valid)
	metrics.RecordEvaluationLatency(string(kind), float64(time.Since(start).Microseconds())/1000)
	return out, nil
}
