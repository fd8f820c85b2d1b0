// Package types contains common types used across the application
package types

// Recommendation represents one ranked recommendation entry
type Recommendation struct {
	Rank    int      `json:"rank"`
	ItemID  string   `json:"item_id"`
	Score   float64  `json:"score"`
	Tier    string   `json:"tier"`
	Reasons []string `json:"reasons,omitempty"`
}
