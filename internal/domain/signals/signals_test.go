package signals_test

import (
	"testing"
	"time"

	signals "github.com/nazjaz/shortlist/internal/domain/signals"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInterestScorer(t *testing.T) {
	Convey("Given an interest scorer with the default threshold", t, func() {
		scorer := signals.NewInterestScorer()

		Convey("When every interest matches a tag exactly", func() {
			score := scorer.Score([]string{"yoga", "running"}, []string{"running", "yoga", "cycling"})

			Convey("Then the score is 1", func() {
				So(score, ShouldEqual, 1.0)
			})
		})

		Convey("When matching is case-insensitive", func() {
			score := scorer.Score([]string{"Yoga"}, []string{"yoga"})

			Convey("Then folding makes it a full match", func() {
				So(score, ShouldEqual, 1.0)
			})
		})

		Convey("When a term has a small typo", func() {
			score := scorer.Score([]string{"runing"}, []string{"running"})

			Convey("Then fuzzy matching still counts it", func() {
				So(score, ShouldEqual, 1.0)
			})
		})

		Convey("When half the interests match", func() {
			score := scorer.Score([]string{"yoga", "chess"}, []string{"yoga"})

			Convey("Then the score is the matched fraction", func() {
				So(score, ShouldEqual, 0.5)
			})
		})

		Convey("When interests or tags are empty", func() {
			Convey("Then the score is 0", func() {
				So(scorer.Score(nil, []string{"yoga"}), ShouldEqual, 0)
				So(scorer.Score([]string{"yoga"}, nil), ShouldEqual, 0)
			})
		})

		Convey("When a stricter threshold is configured", func() {
			strict := signals.NewInterestScorer(signals.WithMatchThreshold(0.99))
			score := strict.Score([]string{"runing"}, []string{"running"})

			Convey("Then near-matches no longer count", func() {
				So(score, ShouldEqual, 0)
			})
		})
	})
}

func TestSimilarity(t *testing.T) {
	Convey("Given the term similarity function", t, func() {
		Convey("Then identical terms score 1", func() {
			So(signals.Similarity("hiking", "hiking"), ShouldEqual, 1.0)
		})

		Convey("And empty terms score 1 against each other", func() {
			So(signals.Similarity("", ""), ShouldEqual, 1.0)
		})

		Convey("And disjoint terms score near 0", func() {
			So(signals.Similarity("abc", "xyz"), ShouldBeLessThan, 0.2)
		})

		Convey("And similarity is symmetric", func() {
			So(signals.Similarity("piano", "pianos"), ShouldEqual, signals.Similarity("pianos", "piano"))
		})
	})
}

func TestProximityScorer(t *testing.T) {
	Convey("Given a proximity scorer with a 50km radius", t, func() {
		scorer := signals.NewProximityScorer()

		Convey("When the two points coincide", func() {
			So(scorer.Score(52.52, 13.405, 52.52, 13.405), ShouldEqual, 1.0)
		})

		Convey("When the points are beyond the radius", func() {
			// Berlin to Munich is roughly 500km.
			So(scorer.Score(52.52, 13.405, 48.137, 11.575), ShouldEqual, 0)
		})

		Convey("When the points are inside the radius", func() {
			// Berlin Mitte to Potsdam is roughly 26km.
			score := scorer.Score(52.52, 13.405, 52.4, 13.06)
			So(score, ShouldBeGreaterThan, 0)
			So(score, ShouldBeLessThan, 1)
		})
	})

	Convey("Given the Haversine distance", t, func() {
		Convey("Then known city pairs land near their true distance", func() {
			// Berlin to Munich: ~504km.
			d := signals.DistanceKm(52.52, 13.405, 48.137, 11.575)
			So(d, ShouldBeGreaterThan, 480)
			So(d, ShouldBeLessThan, 530)
		})

		Convey("And the distance from a point to itself is 0", func() {
			So(signals.DistanceKm(10, 20, 10, 20), ShouldEqual, 0)
		})
	})
}

func TestRecencyScorer(t *testing.T) {
	Convey("Given a recency scorer with a 30-day half-life", t, func() {
		scorer := signals.NewRecencyScorer()
		now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

		Convey("When the interaction just happened", func() {
			So(scorer.Score(now, now), ShouldEqual, 1.0)
		})

		Convey("When the interaction is one half-life old", func() {
			So(scorer.Score(now.Add(-30*24*time.Hour), now), ShouldAlmostEqual, 0.5, 1e-9)
		})

		Convey("When there was never an interaction", func() {
			So(scorer.Score(time.Time{}, now), ShouldEqual, 0)
		})

		Convey("When a shorter half-life is configured", func() {
			fast := signals.NewRecencyScorer(signals.WithHalfLife(24 * time.Hour))
			So(fast.Score(now.Add(-24*time.Hour), now), ShouldAlmostEqual, 0.5, 1e-9)
		})
	})
}

func TestPopularity(t *testing.T) {
	Convey("Given the popularity normalizer", t, func() {
		Convey("Then the batch maximum scores 1", func() {
			So(signals.Popularity(15, 15), ShouldEqual, 1.0)
		})

		Convey("And a fraction of the maximum scores proportionally", func() {
			So(signals.Popularity(3, 12), ShouldEqual, 0.25)
		})

		Convey("And zero counts or an empty batch score 0", func() {
			So(signals.Popularity(0, 10), ShouldEqual, 0)
			So(signals.Popularity(5, 0), ShouldEqual, 0)
		})
	})
}
