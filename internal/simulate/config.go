package simulate

import "time"

// Config holds configuration for the interaction simulation
type Config struct {
	BaseURL         string        // Base URL of the service
	NumInteractions int           // Number of interactions to generate
	NumItems        int           // Size of the item pool
	NumUsers        int           // Size of the user pool
	TopN            int           // Number of top recommendations to fetch
	Workers         int           // Number of concurrent workers
	Timeout         time.Duration // HTTP request timeout
	OutputFile      string        // Output file for interactions
	LogFile         string        // Log file for simulation output
	Verbose         bool          // Enable verbose logging
}

// Interaction represents an interaction to be submitted
type Interaction struct {
	InteractionID string  `json:"interaction_id"`
	UserID        string  `json:"user_id"`
	ItemID        string  `json:"item_id"`
	Kind          string  `json:"kind"`
	Value         float64 `json:"value"`
	TS            string  `json:"ts"`
}

// Entry represents a ranked recommendation
type Entry struct {
	Rank    int      `json:"rank"`
	ItemID  string   `json:"item_id"`
	Score   float64  `json:"score"`
	Tier    string   `json:"tier"`
	Reasons []string `json:"reasons,omitempty"`
}

// AckResponse represents the response from interaction submission
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds simulation statistics
type Stats struct {
	InteractionsGenerated  int
	InteractionsSubmitted  int
	InteractionsSuccessful int
	InteractionsDuplicate  int
	InteractionsFailed     int
	ItemsRetrieved         int
	RecommendationEntries  int
	StartTime              time.Time
	EndTime                time.Time
	Duration               time.Duration
}
