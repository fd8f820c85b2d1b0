// Package scoring combines named, normalized sub-scores into one ranked list
// of recommendations.
//
// Every sub-score is expected to be in [0,1] already; the aggregator neither
// validates nor clamps. Negative weights and out-of-range sub-scores are a
// caller contract, not a runtime-checked invariant.
package scoring

import (
	"fmt"
	"sort"
)

// Default ranking configuration constants.
const (
	defaultMaxResults   = 10
	defaultHighCutoff   = 0.7
	defaultLowCutoff    = 0.5
	defaultReasonCutoff = 0.5
)

// Tier is the coarse priority bucket derived from an aggregate score.
type Tier string

// Priority tiers.
const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Weights maps sub-score names to their relative importance. Weights need not
// sum to one; they are applied as-is.
type Weights map[string]float64

// Candidate is one item offered for ranking, carrying its pre-computed
// sub-scores and the metadata availability predicates may inspect.
type Candidate struct {
	ID        string
	SubScores map[string]float64
	Category  string
	InStock   bool
	Quantity  int
}

// Result is a ranked candidate with its aggregate score, priority tier, and
// the reasons that drove the score.
type Result struct {
	ID      string
	Score   float64
	Tier    Tier
	Reasons []string
}

// Predicate filters candidates after scoring, e.g. an in-stock check.
type Predicate func(Candidate) bool

// Aggregator ranks candidates by the weighted sum of their sub-scores.
// The zero-configured Aggregator from New is ready to use; all methods are
// pure and safe for concurrent callers.
type Aggregator struct {
	weights      Weights
	minScore     float64
	maxResults   int
	highCutoff   float64
	lowCutoff    float64
	reasonCutoff float64
	available    Predicate
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithWeights sets the weight vector. The map is copied.
func WithWeights(w Weights) Option {
	return func(a *Aggregator) {
		a.weights = make(Weights, len(w))
		for name, weight := range w {
			a.weights[name] = weight
		}
	}
}

// WithMinScore sets the minimum aggregate score a result must reach.
func WithMinScore(min float64) Option {
	return func(a *Aggregator) {
		a.minScore = min
	}
}

// WithMaxResults caps the length of the ranked list.
func WithMaxResults(max int) Option {
	return func(a *Aggregator) {
		if max > 0 {
			a.maxResults = max
		}
	}
}

// WithTierCutoffs sets the aggregate-score cutoffs for the high and low
// tiers. Scores above high rank TierHigh, below low rank TierLow, and
// TierMedium otherwise.
func WithTierCutoffs(high, low float64) Option {
	return func(a *Aggregator) {
		if high >= low {
			a.highCutoff = high
			a.lowCutoff = low
		}
	}
}

// WithReasonCutoff sets the sub-score value above which a reason string is
// attached for that sub-score.
func WithReasonCutoff(cutoff float64) Option {
	return func(a *Aggregator) {
		a.reasonCutoff = cutoff
	}
}

// WithAvailability sets the availability predicate. Candidates failing it are
// dropped after threshold filtering.
func WithAvailability(p Predicate) Option {
	return func(a *Aggregator) {
		a.available = p
	}
}

// New creates an Aggregator with default cutoffs and the provided options.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		weights:      Weights{},
		minScore:     0,
		maxResults:   defaultMaxResults,
		highCutoff:   defaultHighCutoff,
		lowCutoff:    defaultLowCutoff,
		reasonCutoff: defaultReasonCutoff,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Aggregate computes the weighted sum of a candidate's sub-scores. Sub-scores
// with no configured weight, and weights with no matching sub-score,
// contribute zero.
func (a *Aggregator) Aggregate(c Candidate) float64 {
	var sum float64
	for name, score := range c.SubScores {
		sum += score * a.weights[name]
	}
	return sum
}

// Rank produces the descending-sorted recommendation list:
// score, filter by minimum threshold and availability, stable-sort, truncate,
// and annotate each survivor with its tier and reasons. Ties keep input
// order. An empty candidate set yields an empty list.
func (a *Aggregator) Rank(candidates []Candidate) []Result {
	type scored struct {
		candidate Candidate
		score     float64
	}

	kept := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		score := a.Aggregate(c)
		if score < a.minScore {
			continue
		}
		if a.available != nil && !a.available(c) {
			continue
		}
		kept = append(kept, scored{candidate: c, score: score})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].score > kept[j].score
	})

	if len(kept) > a.maxResults {
		kept = kept[:a.maxResults]
	}

	results := make([]Result, len(kept))
	for i, s := range kept {
		results[i] = Result{
			ID:      s.candidate.ID,
			Score:   s.score,
			Tier:    a.tier(s.score),
			Reasons: a.reasons(s.candidate),
		}
	}
	return results
}

// tier buckets an aggregate score using the configured cutoffs.
func (a *Aggregator) tier(score float64) Tier {
	switch {
	case score > a.highCutoff:
		return TierHigh
	case score < a.lowCutoff:
		return TierLow
	default:
		return TierMedium
	}
}

// reasons lists the sub-scores that contributed meaningfully, in stable
// name order.
func (a *Aggregator) reasons(c Candidate) []string {
	names := make([]string, 0, len(c.SubScores))
	for name := range c.SubScores {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []string
	for _, name := range names {
		if v := c.SubScores[name]; v > a.reasonCutoff {
			out = append(out, fmt.Sprintf("strong %s signal (%.2f)", name, v))
		}
	}
	return out
}
