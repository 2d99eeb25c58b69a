// Package replay serves isolation cone sums that an upstream isolation
// engine recorded in the event payload.
package replay

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/miniiso/internal/domain/cone"
	"github.com/okian/miniiso/internal/domain/isolation"
	"github.com/okian/miniiso/internal/domain/model"
	"github.com/okian/miniiso/pkg/logger"
)

// Provider holds the current event and resolves candidates to the sums
// recorded for them. A Provider serves one event at a time; concurrent
// queries for candidates of that event are safe.
type Provider struct {
	mu        sync.RWMutex
	event     *model.Event
	electrons map[*model.Electron]string
	muons     map[*model.Muon]string

	logger logger.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger used for query tracing.
func WithLogger(l logger.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a provider with no current event.
func New(opts ...Option) *Provider {
	p := &Provider{logger: logger.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("replay_provider")
	return p
}

// SetCurrentEvent binds the provider to ev and indexes its candidates.
func (p *Provider) SetCurrentEvent(ev model.EventContext) error {
	e, ok := ev.(*model.Event)
	if !ok || e == nil {
		return ErrUnsupportedEvent
	}

	electrons := make(map[*model.Electron]string, len(e.Electrons))
	for i, el := range e.Electrons {
		if el != nil {
			electrons[el] = model.CandidateKey(model.KindElectron, i)
		}
	}
	muons := make(map[*model.Muon]string, len(e.Muons))
	for i, mu := range e.Muons {
		if mu != nil {
			muons[mu] = model.CandidateKey(model.KindMuon, i)
		}
	}

	p.mu.Lock()
	p.event, p.electrons, p.muons = e, electrons, muons
	p.mu.Unlock()
	return nil
}

func (p *Provider) sums(key string, found bool, category string, g cone.Geometry) (model.ConeSums, error) {
	p.mu.RLock()
	ev := p.event
	p.mu.RUnlock()
	if ev == nil {
		return model.ConeSums{}, ErrNoCurrentEvent
	}
	if !found {
		return model.ConeSums{}, fmt.Errorf("%w: candidate not in current event", ErrSumsMissing)
	}
	s, ok := ev.RecordedSums(key)
	if !ok {
		return model.ConeSums{}, fmt.Errorf("%w: %s", ErrSumsMissing, key)
	}

	p.logger.Debug(context.Background(), "cone sum",
		logger.String("event_id", ev.ID),
		logger.String("candidate", key),
		logger.String("category", category),
		logger.Float64("outer", g.Outer),
		logger.Float64("inner_veto", g.InnerVeto),
		logger.Float64("threshold", g.Threshold),
		logger.String("self_veto", g.SelfVeto.String()),
	)
	return s, nil
}

func (p *Provider) electronSums(el *model.Electron, category string, g cone.Geometry) (model.ConeSums, error) {
	p.mu.RLock()
	key, ok := p.electrons[el]
	p.mu.RUnlock()
	return p.sums(key, ok, category, g)
}

func (p *Provider) muonSums(mu *model.Muon, category string, g cone.Geometry) (model.ConeSums, error) {
	p.mu.RLock()
	key, ok := p.muons[mu]
	p.mu.RUnlock()
	return p.sums(key, ok, category, g)
}

// Electrons returns the electron view of p.
func (p *Provider) Electrons() *Electrons { return &Electrons{p: p} }

// Muons returns the muon view of p.
func (p *Provider) Muons() *Muons { return &Muons{p: p} }

// Electrons answers electron queries. Binding an event through it binds
// the underlying provider.
type Electrons struct{ p *Provider }

var _ isolation.ElectronSumProvider = (*Electrons)(nil)

func (e *Electrons) SetCurrentEvent(ev model.EventContext) error { return e.p.SetCurrentEvent(ev) }

func (e *Electrons) ChargedSum(el *model.Electron, g cone.Geometry) (float64, error) {
	s, err := e.p.electronSums(el, "charged", g)
	return s.Charged, err
}

func (e *Electrons) PileupSum(el *model.Electron, g cone.Geometry) (float64, error) {
	s, err := e.p.electronSums(el, "pileup", g)
	return s.Pileup, err
}

func (e *Electrons) PhotonSumRaw(el *model.Electron, g cone.Geometry) (float64, error) {
	s, err := e.p.electronSums(el, "photon_raw", g)
	return s.PhotonRaw, err
}

func (e *Electrons) NeutralHadronSumRaw(el *model.Electron, g cone.Geometry) (float64, error) {
	s, err := e.p.electronSums(el, "neutral_hadron_raw", g)
	return s.NeutralHadronRaw, err
}

func (e *Electrons) PhotonSumWeighted(el *model.Electron, g cone.Geometry) (float64, error) {
	s, err := e.p.electronSums(el, "photon_weighted", g)
	return s.PhotonWeighted, err
}

func (e *Electrons) NeutralHadronSumWeighted(el *model.Electron, g cone.Geometry) (float64, error) {
	s, err := e.p.electronSums(el, "neutral_hadron_weighted", g)
	return s.NeutralHadronWeighted, err
}

// Muons answers muon queries.
type Muons struct{ p *Provider }

var _ isolation.MuonSumProvider = (*Muons)(nil)

func (m *Muons) SetCurrentEvent(ev model.EventContext) error { return m.p.SetCurrentEvent(ev) }

func (m *Muons) ChargedSum(mu *model.Muon, g cone.Geometry) (float64, error) {
	s, err := m.p.muonSums(mu, "charged", g)
	return s.Charged, err
}

func (m *Muons) PileupSum(mu *model.Muon, g cone.Geometry) (float64, error) {
	s, err := m.p.muonSums(mu, "pileup", g)
	return s.Pileup, err
}

func (m *Muons) NeutralSumRaw(mu *model.Muon, g cone.Geometry) (float64, error) {
	s, err := m.p.muonSums(mu, "neutral_raw", g)
	return s.NeutralRaw, err
}

func (m *Muons) NeutralSumWeighted(mu *model.Muon, g cone.Geometry) (float64, error) {
	s, err := m.p.muonSums(mu, "neutral_weighted", g)
	return s.NeutralWeighted, err
}
