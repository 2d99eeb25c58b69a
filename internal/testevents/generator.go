package testevents

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/okian/miniiso/internal/domain/model"
	"github.com/okian/miniiso/pkg/logger"
)

// Ranges of the generated kinematics.
const (
	maxLeptonsPerKind = 3
	ptMin             = 5.0
	ptRange           = 295.0
	etaMax            = 2.5
	barrelEtaMax      = 1.479
	rhoMin            = 5.0
	rhoRange          = 35.0
	vertexSpreadXY    = 0.01
	vertexSpreadZ     = 5.0
	chargedSumMax     = 10.0
	neutralSumMax     = 6.0
	pileupSumMax      = 8.0
	ip3dMax           = 0.05
	ip3dErrorMin      = 0.001
	missingClusterPct = 10
	missingTrackPct   = 5
)

// generateEvents creates the configured number of events. Events are built
// from one PCG stream per event, so the result does not depend on how many
// workers generate them.
func generateEvents(ctx context.Context, config *Config, stats *Stats) ([]*model.Event, error) {
	logger.Get().Info(ctx, "generating events", logger.Int("numEvents", config.NumEvents))

	events := make([]*model.Event, config.NumEvents)

	type eventResult struct {
		index int
		event *model.Event
		err   error
	}
	resultChan := make(chan eventResult, config.NumEvents)

	workerCount := max(1, min(config.Workers, config.NumEvents))
	eventsPerWorker := config.NumEvents / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * eventsPerWorker
		end := start + eventsPerWorker
		if worker == workerCount-1 {
			end = config.NumEvents // Last worker gets remaining events
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- eventResult{index: i, err: ctx.Err()}
					return
				default:
					resultChan <- eventResult{index: i, event: generateSingleEvent(config.Seed, i)}
				}
			}
		}(start, end)
	}

	for i := 0; i < config.NumEvents; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during event generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate event %d: %w", result.index, result.err)
			}
			events[result.index] = result.event
		}
	}

	stats.EventsGenerated = len(events)
	logger.Get().Info(ctx, "generated events successfully", logger.Int("count", len(events)))

	return events, nil
}

// generateSingleEvent builds event index of the stream identified by seed.
// Every candidate that an isolation engine could have processed carries
// recorded cone sums.
func generateSingleEvent(seed uint64, index int) *model.Event {
	rng := rand.New(rand.NewPCG(seed, uint64(index)))

	var idBytes [16]byte
	binary.LittleEndian.PutUint64(idBytes[:8], rng.Uint64())
	binary.LittleEndian.PutUint64(idBytes[8:], rng.Uint64())
	id, err := uuid.NewRandomFromReader(bytes.NewReader(idBytes[:]))
	if err != nil {
		id = uuid.New()
	}
	rho := rhoMin + rng.Float64()*rhoRange
	ev := &model.Event{
		ID:     id.String(),
		Run:    1,
		Lumi:   uint32(index/1000) + 1,
		Number: uint64(index) + 1,
		Rho:    &rho,
		PV: &model.Vertex{Position: r3.Vec{
			X: rng.NormFloat64() * vertexSpreadXY,
			Y: rng.NormFloat64() * vertexSpreadXY,
			Z: rng.NormFloat64() * vertexSpreadZ,
		}},
		Electrons: []*model.Electron{},
		Muons:     []*model.Muon{},
		Sums:      map[string]model.ConeSums{},
	}

	for i := range rng.IntN(maxLeptonsPerKind + 1) {
		el := generateElectron(rng, ev.PV.Position)
		ev.Electrons = append(ev.Electrons, el)
		if el.SuperCluster != nil {
			ev.Sums[model.CandidateKey(model.KindElectron, i)] = generateElectronSums(rng)
		}
	}
	for i := range rng.IntN(maxLeptonsPerKind + 1) {
		ev.Muons = append(ev.Muons, generateMuon(rng, ev.PV.Position))
		ev.Sums[model.CandidateKey(model.KindMuon, i)] = generateMuonSums(rng)
	}
	return ev
}

func generateElectron(rng *rand.Rand, pv r3.Vec) *model.Electron {
	pt, eta, phi := generateKinematics(rng)
	el := &model.Electron{
		Pt:   pt,
		Eta:  eta,
		Phi:  phi,
		IsEB: math.Abs(eta) < barrelEtaMax,
		IP3D: generateIP3D(rng),
	}
	if rng.IntN(100) >= missingClusterPct {
		el.SuperCluster = &model.SuperCluster{Eta: eta, Phi: phi, Energy: pt * math.Cosh(eta)}
	}
	if rng.IntN(100) >= missingTrackPct {
		el.GsfTrack = generateTrack(rng, pv, pt, eta, phi)
	}
	return el
}

func generateMuon(rng *rand.Rand, pv r3.Vec) *model.Muon {
	pt, eta, phi := generateKinematics(rng)
	mu := &model.Muon{Pt: pt, Eta: eta, Phi: phi, IP3D: generateIP3D(rng)}
	if rng.IntN(100) >= missingTrackPct {
		mu.BestTrack = generateTrack(rng, pv, pt, eta, phi)
	}
	return mu
}

func generateKinematics(rng *rand.Rand) (pt, eta, phi float64) {
	pt = ptMin + rng.Float64()*ptRange
	eta = (rng.Float64()*2 - 1) * etaMax
	phi = (rng.Float64()*2 - 1) * math.Pi
	return pt, eta, phi
}

// generateTrack places the track reference point close to the vertex.
func generateTrack(rng *rand.Rand, pv r3.Vec, pt, eta, phi float64) *model.Track {
	offset := r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
	return &model.Track{
		Reference: r3.Add(pv, r3.Scale(ip3dMax, offset)),
		Momentum:  r3.Vec{X: pt * math.Cos(phi), Y: pt * math.Sin(phi), Z: pt * math.Sinh(eta)},
	}
}

func generateIP3D(rng *rand.Rand) model.ImpactParameter {
	return model.ImpactParameter{
		Value: rng.Float64() * ip3dMax,
		Error: ip3dErrorMin + rng.Float64()*ip3dMax/10,
	}
}

// Weighted sums never exceed their raw counterparts.
func generateElectronSums(rng *rand.Rand) model.ConeSums {
	photonRaw := rng.Float64() * neutralSumMax
	hadronRaw := rng.Float64() * neutralSumMax
	return model.ConeSums{
		Charged:               rng.Float64() * chargedSumMax,
		Pileup:                rng.Float64() * pileupSumMax,
		PhotonRaw:             photonRaw,
		NeutralHadronRaw:      hadronRaw,
		PhotonWeighted:        photonRaw * rng.Float64(),
		NeutralHadronWeighted: hadronRaw * rng.Float64(),
	}
}

func generateMuonSums(rng *rand.Rand) model.ConeSums {
	neutralRaw := rng.Float64() * neutralSumMax
	return model.ConeSums{
		Charged:         rng.Float64() * chargedSumMax,
		Pileup:          rng.Float64() * pileupSumMax,
		NeutralRaw:      neutralRaw,
		NeutralWeighted: neutralRaw * rng.Float64(),
	}
}
