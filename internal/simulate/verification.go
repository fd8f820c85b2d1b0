package simulate

import (
	"fmt"
	"log"
	"sort"
)

// Recommendation tiers, as served by the API.
const (
	tierHigh   = "high"
	tierMedium = "medium"
	tierLow    = "low"
)

// verifyResults verifies the consistency of item rankings and recommendations.
func verifyResults(config *Config, rankings, recommendations []Entry) error {
	log.Println("verifying results...")

	if len(rankings) == 0 {
		return fmt.Errorf("no rankings to verify")
	}

	// Sort rankings by score (descending) to get the expected top items
	sortedRankings := make([]Entry, len(rankings))
	copy(sortedRankings, rankings)
	sort.Slice(sortedRankings, func(i, j int) bool {
		return sortedRankings[i].Score > sortedRankings[j].Score
	})

	// Verify recommendations consistency if we have recommendation data
	if len(recommendations) > 0 {
		if err := verifyRecommendationConsistency(sortedRankings, recommendations); err != nil {
			log.Printf("recommendation consistency warning: %v", err)
		} else {
			log.Println("recommendation consistency verified")
		}
	}

	// Display top items
	displayTopItems(sortedRankings, recommendations, config.Verbose)

	log.Println("result verification completed")
	return nil
}

// verifyRecommendationConsistency checks the recommendations against the
// per-item rankings: the top entry must match, the list must be sorted, and
// every tier must be one of the served values.
func verifyRecommendationConsistency(sortedRankings, recommendations []Entry) error {
	if len(recommendations) == 0 {
		return fmt.Errorf("empty recommendations")
	}

	// Check if the top recommendation matches the highest ranked item
	topRanking := sortedRankings[0]
	topRecommendation := recommendations[0]

	if topRanking.ItemID != topRecommendation.ItemID {
		return fmt.Errorf("top recommendation (%s) does not match top ranked item (%s)",
			topRecommendation.ItemID, topRanking.ItemID)
	}

	if topRanking.Score != topRecommendation.Score {
		return fmt.Errorf("top recommendation score (%.3f) does not match top ranked score (%.3f)",
			topRecommendation.Score, topRanking.Score)
	}

	// Check if recommendations are properly sorted
	for i := 1; i < len(recommendations); i++ {
		if recommendations[i].Score > recommendations[i-1].Score {
			return fmt.Errorf("recommendations not properly sorted: entry %d has higher score than entry %d",
				i, i-1)
		}
	}

	// Check every tier is a served value
	for i, entry := range recommendations {
		switch entry.Tier {
		case tierHigh, tierMedium, tierLow:
		default:
			return fmt.Errorf("entry %d has unknown tier %q", i, entry.Tier)
		}
	}

	return nil
}

// displayTopItems shows the top items from rankings and recommendations.
func displayTopItems(sortedRankings, recommendations []Entry, verbose bool) {
	topN := 10
	if len(sortedRankings) < topN {
		topN = len(sortedRankings)
	}

	log.Printf("top %d items from rankings:", topN)
	for i := 0; i < topN; i++ {
		entry := sortedRankings[i]
		log.Printf("   %d. %s - Score: %.3f (%s)", i+1, entry.ItemID, entry.Score, entry.Tier)
	}

	if len(recommendations) > 0 {
		recommendationTopN := topN
		if len(recommendations) < recommendationTopN {
			recommendationTopN = len(recommendations)
		}

		log.Printf("top %d recommendations:", recommendationTopN)
		for i := 0; i < recommendationTopN; i++ {
			entry := recommendations[i]
			log.Printf("   %d. %s - Score: %.3f (%s)", i+1, entry.ItemID, entry.Score, entry.Tier)
		}
	}

	if verbose {
		// Show some statistics
		if len(sortedRankings) > 0 {
			avgScore := calculateAverageScore(sortedRankings)
			maxScore := sortedRankings[0].Score
			minScore := sortedRankings[len(sortedRankings)-1].Score

			log.Printf(`score statistics:
   Average: %.3f
   Maximum: %.3f
   Minimum: %.3f
`, avgScore, maxScore, minScore)
		}
	}
}

// calculateAverageScore calculates the average score from rankings.
func calculateAverageScore(rankings []Entry) float64 {
	if len(rankings) == 0 {
		return 0
	}

	sum := 0.0
	for _, entry := range rankings {
		sum += entry.Score
	}

	return sum / float64(len(rankings))
}
