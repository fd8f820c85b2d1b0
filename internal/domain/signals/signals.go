// Package signals computes the normalized [0,1] sub-scores that feed the
// aggregator: interest match, geographic proximity, recency, and popularity.
package signals

import (
	"math"
	"time"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
)

// Sub-score names as they appear in weight vectors and reports.
const (
	NameInterest   = "interest"
	NameProximity  = "proximity"
	NameRecency    = "recency"
	NamePopularity = "popularity"
)

// Default signal configuration constants.
const (
	defaultMatchThreshold = 0.8
	defaultRadiusKm       = 50.0
	defaultHalfLife       = 30 * 24 * time.Hour
	earthRadiusKm         = 6371.0
)

// foldCaser is a package-level Unicode case folder; cases.Fold is not cheap
// to construct per call.
var foldCaser = cases.Fold()

// InterestScorer scores the overlap between a profile's interest terms and a
// candidate's tags using Levenshtein similarity for fuzzy term matching.
type InterestScorer struct {
	matchThreshold float64
}

// InterestOption applies a configuration option to the InterestScorer.
type InterestOption func(*InterestScorer)

// WithMatchThreshold sets the minimum similarity for a term to count as a
// match. Values outside (0,1] are ignored.
func WithMatchThreshold(threshold float64) InterestOption {
	return func(s *InterestScorer) {
		if threshold > 0 && threshold <= 1 {
			s.matchThreshold = threshold
		}
	}
}

// NewInterestScorer creates an interest scorer with configuration options.
func NewInterestScorer(opts ...InterestOption) *InterestScorer {
	s := &InterestScorer{
		matchThreshold: defaultMatchThreshold,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Score returns the fraction of interest terms that fuzzily match at least
// one tag. No interests or no tags scores 0.
func (s *InterestScorer) Score(interests, tags []string) float64 {
	if len(interests) == 0 || len(tags) == 0 {
		return 0
	}

	matched := 0
	for _, interest := range interests {
		for _, tag := range tags {
			if Similarity(interest, tag) >= s.matchThreshold {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(interests))
}

// Similarity returns a [0,1] Levenshtein similarity between two terms after
// Unicode case folding. Identical folded terms score 1.
func Similarity(a, b string) float64 {
	fa := foldCaser.String(a)
	fb := foldCaser.String(b)
	if fa == fb {
		return 1
	}

	longest := len([]rune(fa))
	if l := len([]rune(fb)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}

	dist := levenshtein.ComputeDistance(fa, fb)
	return 1 - float64(dist)/float64(longest)
}

// ProximityScorer maps Haversine distance onto [0,1] against a configurable
// radius: 0 km scores 1, at or beyond the radius scores 0.
type ProximityScorer struct {
	radiusKm float64
}

// ProximityOption applies a configuration option to the ProximityScorer.
type ProximityOption func(*ProximityScorer)

// WithRadiusKm sets the distance at which the score reaches zero.
func WithRadiusKm(radius float64) ProximityOption {
	return func(s *ProximityScorer) {
		if radius > 0 {
			s.radiusKm = radius
		}
	}
}

// NewProximityScorer creates a proximity scorer with configuration options.
func NewProximityScorer(opts ...ProximityOption) *ProximityScorer {
	s := &ProximityScorer{
		radiusKm: defaultRadiusKm,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Score returns the proximity sub-score between two coordinates.
func (s *ProximityScorer) Score(lat1, lon1, lat2, lon2 float64) float64 {
	d := DistanceKm(lat1, lon1, lat2, lon2)
	if d >= s.radiusKm {
		return 0
	}
	return 1 - d/s.radiusKm
}

// DistanceKm computes the great-circle distance between two coordinates
// using the Haversine formula.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// RecencyScorer scores how recently a user last interacted with an item's
// category, decaying exponentially with a configurable half-life.
type RecencyScorer struct {
	halfLife time.Duration
}

// RecencyOption applies a configuration option to the RecencyScorer.
type RecencyOption func(*RecencyScorer)

// WithHalfLife sets the age at which a recency score halves.
func WithHalfLife(halfLife time.Duration) RecencyOption {
	return func(s *RecencyScorer) {
		if halfLife > 0 {
			s.halfLife = halfLife
		}
	}
}

// NewRecencyScorer creates a recency scorer with configuration options.
func NewRecencyScorer(opts ...RecencyOption) *RecencyScorer {
	s := &RecencyScorer{
		halfLife: defaultHalfLife,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Score decays from 1 toward 0 as the last interaction ages. A zero last
// timestamp, meaning no interaction at all, scores 0.
func (s *RecencyScorer) Score(last, now time.Time) float64 {
	if last.IsZero() {
		return 0
	}
	age := now.Sub(last)
	if age <= 0 {
		return 1
	}
	return math.Exp2(-float64(age) / float64(s.halfLife))
}

// Popularity normalizes an interaction count against the batch maximum.
// A zero maximum scores everything 0.
func Popularity(count, max int) float64 {
	if max <= 0 || count <= 0 {
		return 0
	}
	if count >= max {
		return 1
	}
	return float64(count) / float64(max)
}
