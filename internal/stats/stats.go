// Package stats provides the statistical signals behind smart suggestions.
// Everything here is pure; nothing in this package affects core ranking.
package stats

import (
	"math"
	"time"
)

const (
	// DefaultZ is the z-score for the Wilson interval (~90% one-sided).
	DefaultZ = 1.65

	// Sequence gating: pairs seen fewer than MinSequenceCount times, or with
	// weak lift/confidence, produce no signal at all.
	MinSequenceCount      = 3
	MinSequenceLift       = 1.2
	MinSequenceConfidence = 0.2

	// SuggestionThreshold is the minimum composite confidence for a
	// suggestion to surface; HighConfidence marks UI-prominent ones.
	SuggestionThreshold = 0.25
	HighConfidence      = 0.6

	minutesPerDay = 24 * 60
)

// WilsonLowerBound returns the lower bound of the Wilson score interval for
// an observed success ratio. It is deliberately conservative for small
// samples: fewer observations mean lower confidence at the same ratio.
func WilsonLowerBound(successes, total int, z float64) float64 {
	if total == 0 {
		return 0
	}
	if z <= 0 {
		z = DefaultZ
	}
	n := float64(total)
	p := float64(successes) / n
	z2 := z * z
	denom := 1 + z2/n
	center := p + z2/(2*n)
	margin := z * math.Sqrt(p*(1-p)/n+z2/(4*n*n))
	lb := (center - margin) / denom
	if lb < 0 {
		return 0
	}
	return lb
}

// SequenceMetrics holds association-rule style metrics for "A then B".
type SequenceMetrics struct {
	Support    float64
	Confidence float64
	Lift       float64
}

// Sequence computes support, confidence and lift for an observed A→B pair.
// All metrics are zero when A or the event set is empty.
func Sequence(countAB, countA, countB, total int) SequenceMetrics {
	if countA == 0 || total == 0 {
		return SequenceMetrics{}
	}
	m := SequenceMetrics{
		Support:    float64(countAB) / float64(total),
		Confidence: float64(countAB) / float64(countA),
	}
	if countB > 0 {
		m.Lift = m.Confidence / (float64(countB) / float64(total))
	}
	return m
}

// SequenceConfidence gates the sequence signal behind minimum counts, lift
// and confidence, then scales confidence by how convincing the lift is.
func SequenceConfidence(countAB, countA, countB, total int) float64 {
	if countAB < MinSequenceCount {
		return 0
	}
	m := Sequence(countAB, countA, countB, total)
	if m.Lift < MinSequenceLift || m.Confidence < MinSequenceConfidence {
		return 0
	}
	liftFactor := m.Lift / 2
	if liftFactor > 1 {
		liftFactor = 1
	}
	c := m.Confidence * liftFactor
	if c > 1 {
		return 1
	}
	return c
}

// DecayWeight returns an exponential decay weight for an observation:
// 1.0 now, 0.5 one half-life ago.
func DecayWeight(ts, now time.Time, halfLifeDays float64) float64 {
	if halfLifeDays <= 0 {
		return 0
	}
	ageDays := now.Sub(ts).Hours() / 24
	if ageDays <= 0 {
		return 1
	}
	lambda := math.Ln2 / halfLifeDays
	return math.Exp(-lambda * ageDays)
}

// WithinTimeWindow reports whether the current minute-of-day falls inside a
// circular window around a slot, handling midnight wraparound both ways.
func WithinTimeWindow(nowMinute, slotMinute, windowMinutes int) bool {
	diff := (nowMinute - slotMinute) % minutesPerDay
	if diff < 0 {
		diff += minutesPerDay
	}
	if diff > minutesPerDay/2 {
		diff = minutesPerDay - diff
	}
	return diff <= windowMinutes
}

// WeightedScore is one signal contributing to a composite confidence.
type WeightedScore struct {
	Score  float64
	Weight float64
}

// CompositeConfidence is the weighted mean over positive-score entries only;
// zero-score signals contribute nothing rather than dragging the mean down.
func CompositeConfidence(scores []WeightedScore) float64 {
	var sum, weight float64
	for _, s := range scores {
		if s.Score <= 0 || s.Weight <= 0 {
			continue
		}
		sum += s.Score * s.Weight
		weight += s.Weight
	}
	if weight == 0 {
		return 0
	}
	return sum / weight
}
