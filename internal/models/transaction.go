package models

import "time"

// Transaction is a pairwise debt derived from an Expense.
// From owes To the Amount. To is always the payer of the originating expense.
type Transaction struct {
	ID        string    `json:"id" bson:"_id"`
	GroupID   string    `json:"group_id" bson:"group_id"`
	From      string    `json:"from" bson:"from"`
	To        string    `json:"to" bson:"to"`
	Amount    float64   `json:"amount" bson:"amount"`
	ExpenseID string    `json:"expense_id" bson:"expense_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
