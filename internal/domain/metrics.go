package domain

import "strings"

// Reserved keys inside a per-model metrics payload.
const (
	// OverallScoreKey holds the judge's aggregate score for a model.
	OverallScoreKey = "overall_score"

	// ErrorKey holds a backend evaluation failure for a model or for the
	// retrieval metrics.
	ErrorKey = "error"

	// RagasPrefix marks metric keys produced by the RAGAS evaluator rather
	// than the judge model.
	RagasPrefix = "ragas_"
)

// Score thresholds for the qualitative tier shown next to every [0,1] score.
// This is a presentation policy and does not come from the backend.
const (
	ExcellentThreshold = 0.8
	GoodThreshold      = 0.6
	FairThreshold      = 0.4
)

// Tier is a qualitative bucket derived from a score.
type Tier int

const (
	// TierUnavailable marks a metric whose value is missing or unreadable.
	TierUnavailable Tier = iota
	TierPoor
	TierFair
	TierGood
	TierExcellent
)

// String returns a human-readable tier name.
func (t Tier) String() string {
	switch t {
	case TierExcellent:
		return "excellent"
	case TierGood:
		return "good"
	case TierFair:
		return "fair"
	case TierPoor:
		return "poor"
	default:
		return "unavailable"
	}
}

// ClampScore forces a score into [0,1].
func ClampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// TierFor buckets a score using the fixed thresholds.
func TierFor(score float64) Tier {
	s := ClampScore(score)
	switch {
	case s >= ExcellentThreshold:
		return TierExcellent
	case s >= GoodThreshold:
		return TierGood
	case s >= FairThreshold:
		return TierFair
	default:
		return TierPoor
	}
}

// TierOf buckets an optional score, returning TierUnavailable for nil.
func TierOf(score *float64) Tier {
	if score == nil {
		return TierUnavailable
	}
	return TierFor(*score)
}

// MetricOrigin distinguishes judge-produced metrics from RAGAS metrics.
type MetricOrigin int

const (
	OriginJudge MetricOrigin = iota
	OriginRagas
)

// OriginOf classifies a metric key by its prefix.
func OriginOf(key string) MetricOrigin {
	if strings.HasPrefix(key, RagasPrefix) {
		return OriginRagas
	}
	return OriginJudge
}

// MetricEntry is one normalized per-model metric. Bare numeric scores and
// structured {score, passing, feedback} records both end up here.
type MetricEntry struct {
	// Key is the raw metric key from the payload.
	Key string

	// Label is the display name derived from Key.
	Label string

	Origin MetricOrigin

	// Score is nil when the value was missing or not numeric.
	Score *float64

	// Passing is set only for structured records that carried it.
	Passing *bool

	// Feedback is the judge's explanation, when present.
	Feedback string

	// Structured is true when the entry came from an object record.
	Structured bool
}

// Available reports whether the entry carries a usable score.
func (e MetricEntry) Available() bool { return e.Score != nil }

// Tier returns the qualitative bucket for the entry's score.
func (e MetricEntry) Tier() Tier { return TierOf(e.Score) }

// MetricSet is the sparse, versioned metric mapping for one model.
// The reserved overall_score and error keys are lifted out of Entries.
type MetricSet struct {
	// Entries holds per-metric values in payload order.
	Entries []MetricEntry

	// Overall is the reserved overall_score, nil when absent.
	Overall *float64

	// Error is the reserved error string, empty when absent.
	Error string

	// Present reports that the backend sent a metrics object at all.
	Present bool
}

// Judge returns the judge-origin entries.
func (m MetricSet) Judge() []MetricEntry { return m.byOrigin(OriginJudge) }

// Ragas returns the RAGAS-origin entries.
func (m MetricSet) Ragas() []MetricEntry { return m.byOrigin(OriginRagas) }

// HasRagas reports whether any RAGAS-origin entry is present.
func (m MetricSet) HasRagas() bool { return len(m.Ragas()) > 0 }

// Get looks up an entry by raw key.
func (m MetricSet) Get(key string) (MetricEntry, bool) {
	for _, e := range m.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return MetricEntry{}, false
}

func (m MetricSet) byOrigin(origin MetricOrigin) []MetricEntry {
	var out []MetricEntry
	for _, e := range m.Entries {
		if e.Origin == origin {
			out = append(out, e)
		}
	}
	return out
}

// RetrievalShape identifies which retrieval-metrics payload generation was
// received. Shapes are told apart by field presence only.
type RetrievalShape int

const (
	RetrievalShapeUnknown RetrievalShape = iota
	RetrievalShapeLegacy
	RetrievalShapeLabelFree
	RetrievalShapeError
)

// String returns the shape name.
func (s RetrievalShape) String() string {
	switch s {
	case RetrievalShapeLegacy:
		return "legacy"
	case RetrievalShapeLabelFree:
		return "label_free"
	case RetrievalShapeError:
		return "error"
	default:
		return "unknown"
	}
}

// RetrievalMetrics is the normalized retrieval-quality payload.
// Every numeric field is optional.
type RetrievalMetrics struct {
	Shape RetrievalShape

	Query          string
	RetrievedCount *float64
	Error          string
	Metadata       map[string]any

	// Legacy hit-rate/MRR generation.
	HitRate        *float64
	MRR            *float64
	Interpretation string

	// Label-free generation.
	RetrievalTimeMs       *float64
	ScoreAt1              *float64
	MeanScore             *float64
	AcceptRateAtThreshold *float64
	QDMean                *float64
	DocDocCoherence       *float64
	Diversity             *float64
	UniqueSources         *float64
}

// MetricCard is one retrieval metric prepared for display.
type MetricCard struct {
	Key   string
	Label string

	// Value is nil when the metric is unavailable.
	Value *float64

	// Scored is true for [0,1] scores that get a tier; counts and
	// durations are shown as plain numbers.
	Scored bool

	// Unit is appended to unscored values ("ms").
	Unit string
}

// Tier returns the card's qualitative bucket, or TierUnavailable for
// unscored or missing values.
func (c MetricCard) Tier() Tier {
	if !c.Scored {
		return TierUnavailable
	}
	return TierOf(c.Value)
}

// Cards returns the metric cards for the detected shape. An error payload
// yields no cards.
func (r *RetrievalMetrics) Cards() []MetricCard {
	if r == nil {
		return nil
	}
	switch r.Shape {
	case RetrievalShapeError:
		return nil
	case RetrievalShapeLegacy:
		return []MetricCard{
			{Key: "hit_rate", Label: "Hit Rate", Value: r.HitRate, Scored: true},
			{Key: "mrr", Label: "MRR", Value: r.MRR, Scored: true},
			{Key: "retrieved_count", Label: "Retrieved", Value: r.RetrievedCount},
		}
	case RetrievalShapeLabelFree:
		cards := []MetricCard{
			{Key: "retrieved_count", Label: "Retrieved", Value: r.RetrievedCount},
			{Key: "retrieval_time_ms", Label: "Retrieval Time", Value: r.RetrievalTimeMs, Unit: "ms"},
		}
		optional := []MetricCard{
			{Key: "score_at_1", Label: "Score@1", Value: r.ScoreAt1, Scored: true},
			{Key: "mean_score", Label: "Mean Score", Value: r.MeanScore, Scored: true},
			{Key: "accept_rate_at_threshold", Label: "Accept Rate", Value: r.AcceptRateAtThreshold, Scored: true},
			{Key: "qd_mean", Label: "Query-Doc Mean", Value: r.QDMean, Scored: true},
			{Key: "docdoc_coherence", Label: "Doc-Doc Coherence", Value: r.DocDocCoherence, Scored: true},
			{Key: "diversity", Label: "Diversity", Value: r.Diversity, Scored: true},
			{Key: "unique_sources", Label: "Unique Sources", Value: r.UniqueSources},
		}
		for _, c := range optional {
			if c.Value != nil {
				cards = append(cards, c)
			}
		}
		return cards
	default:
		if r.RetrievedCount == nil {
			return nil
		}
		return []MetricCard{{Key: "retrieved_count", Label: "Retrieved", Value: r.RetrievedCount}}
	}
}
