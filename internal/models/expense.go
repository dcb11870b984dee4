package models

import "time"

// Expense represents a single shared cost.
type Expense struct {
	// ID is assigned by the store on creation.
	ID string `json:"id" bson:"_id"`

	// GroupID is the group the expense belongs to.
	GroupID string `json:"group_id" bson:"group_id"`

	// Description is what the money was spent on (e.g., "Dinner").
	Description string `json:"description" bson:"description"`

	// TotalAmount is the full amount paid.
	TotalAmount float64 `json:"total_amount" bson:"total_amount"`

	// PaidBy is the uid of the member who paid.
	PaidBy string `json:"paid_by" bson:"paid_by"`

	// SplitAmong lists the uids sharing the cost. The order decides the
	// order in which transactions are derived.
	SplitAmong []string `json:"split_among" bson:"split_among"`

	// PerPersonAmount is TotalAmount / len(SplitAmong), computed once at
	// creation and stored. Later sums use this value, never a recomputation.
	PerPersonAmount float64 `json:"per_person_amount" bson:"per_person_amount"`

	// CreatedAt is when the expense was recorded.
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
