package threat

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"v2x-sim/internal/telemetry"
)

// Generator produces at most one threat per call.
type Generator struct {
	Probability float64
	rand        *rand.Rand
	now         func() time.Time
}

// NewGenerator returns a generator firing with probability p per call.
// A nil now falls back to time.Now.
func NewGenerator(p float64, r *rand.Rand, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{Probability: p, rand: r, now: now}
}

// MaybeGenerate rolls once against Probability and, on success, builds a
// threat attributed to a random vehicle and detected by a random RSU.
// Empty populations never produce a threat.
func (g *Generator) MaybeGenerate(vehicles []telemetry.Vehicle, rsus []telemetry.RSU) (Threat, bool) {
	if len(vehicles) == 0 || len(rsus) == 0 {
		return Threat{}, false
	}
	if g.rand.Float64() >= g.Probability {
		return Threat{}, false
	}

	category := Categories[g.rand.Intn(len(Categories))]
	severity := g.randomSeverity()
	source := vehicles[g.rand.Intn(len(vehicles))]
	var target string
	if g.rand.Float64() > 0.5 {
		target = vehicles[g.rand.Intn(len(vehicles))].ID
	}
	pool := descriptions[category]
	description := pool[g.rand.Intn(len(pool))]
	confidence := 0.7 + g.rand.Float64()*0.3
	detector := rsus[g.rand.Intn(len(rsus))]

	ts := g.now()
	return Threat{
		ID:          g.newID(ts),
		Category:    category,
		Severity:    severity,
		Timestamp:   ts,
		SourceID:    source.ID,
		TargetID:    target,
		Description: description,
		Confidence:  confidence,
		Evidence: Evidence{
			DetectedBy:     detector.ID,
			SignalStrength: g.rand.Float64(),
			AnomalyScore:   g.rand.Float64(),
		},
	}, true
}

// randomSeverity skews toward low and medium.
func (g *Generator) randomSeverity() Severity {
	if g.rand.Float64() > 0.8 {
		return SeverityHigh
	}
	if g.rand.Float64() > 0.5 {
		return SeverityMedium
	}
	return SeverityLow
}

func (g *Generator) newID(ts time.Time) string {
	id, err := uuid.NewRandomFromReader(g.rand)
	if err != nil {
		id = uuid.New()
	}
	return fmt.Sprintf("T-%d-%s", ts.UnixMilli(), id.String())
}
