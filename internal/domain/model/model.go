// Package model contains domain models passed between layers.
package model

import "time"

// Candidate is an item eligible for recommendation: a product, an event,
// a content piece. Geo coordinates are optional and zero when unknown.
type Candidate struct {
	ID       string    // unique item identifier
	Name     string    // display name used in reports
	Category string    // catalog category, e.g. "fitness", "books"
	Tags     []string  // descriptive terms matched against profile interests
	Lat      float64   // latitude in degrees
	Lon      float64   // longitude in degrees
	InStock  bool      // availability flag
	Quantity int       // units on hand
	AddedAt  time.Time // catalog entry timestamp
}

// Interaction is a user action on an item submitted by clients or read from
// an interaction snapshot.
type Interaction struct {
	InteractionID string    // unique id for idempotency
	UserID        string    // acting user
	ItemID        string    // target item
	Kind          string    // "view", "purchase", "rating"
	Value         float64   // rating value; 1 for view/purchase
	TS            time.Time // interaction timestamp
}

// Interaction kinds.
const (
	KindView     = "view"
	KindPurchase = "purchase"
	KindRating   = "rating"
)

// Profile describes the consumer recommendations are computed for.
type Profile struct {
	UserID    string
	Interests []string // free-form interest terms
	Lat       float64
	Lon       float64
}

// ItemScore captures an item's best aggregate score used for ranking.
type ItemScore struct {
	ItemID string
	Score  float64
}
