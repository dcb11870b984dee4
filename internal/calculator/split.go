package calculator

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mmynk/tripsplit/internal/models"
)

// ErrInvalidExpense is matched by every validation failure from SplitExpense.
var ErrInvalidExpense = errors.New("invalid expense")

// ValidationError describes which input of an expense was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidExpense) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidExpense
}

// ExpenseInput is a new expense as entered by a member.
type ExpenseInput struct {
	GroupID     string
	Description string
	TotalAmount float64
	PaidBy      string
	SplitAmong  []string
}

// SplitExpense validates an expense and derives its debt transactions.
//
// The per-person share is TotalAmount divided by the number of participants,
// using plain float division. One transaction is derived for every
// participant other than the payer, in SplitAmong order, each for exactly the
// per-person share and owed to the payer.
//
// IDs and timestamps are left empty for the store to assign.
func SplitExpense(in ExpenseInput) (*models.Expense, []models.Transaction, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, nil, &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if math.IsNaN(in.TotalAmount) || math.IsInf(in.TotalAmount, 0) || in.TotalAmount <= 0 {
		return nil, nil, &ValidationError{Field: "total_amount", Reason: "must be a number greater than zero"}
	}
	if in.PaidBy == "" {
		return nil, nil, &ValidationError{Field: "paid_by", Reason: "must not be empty"}
	}
	if len(in.SplitAmong) == 0 {
		return nil, nil, &ValidationError{Field: "split_among", Reason: "must select at least one person"}
	}

	seen := make(map[string]bool, len(in.SplitAmong))
	for _, id := range in.SplitAmong {
		if id == "" {
			return nil, nil, &ValidationError{Field: "split_among", Reason: "contains an empty member id"}
		}
		if seen[id] {
			return nil, nil, &ValidationError{Field: "split_among", Reason: fmt.Sprintf("member %q listed twice", id)}
		}
		seen[id] = true
	}

	perPerson := in.TotalAmount / float64(len(in.SplitAmong))

	expense := &models.Expense{
		GroupID:         in.GroupID,
		Description:     description,
		TotalAmount:     in.TotalAmount,
		PaidBy:          in.PaidBy,
		SplitAmong:      append([]string(nil), in.SplitAmong...),
		PerPersonAmount: perPerson,
	}

	transactions := make([]models.Transaction, 0, len(in.SplitAmong))
	for _, member := range in.SplitAmong {
		if member == in.PaidBy {
			continue
		}
		transactions = append(transactions, models.Transaction{
			GroupID: in.GroupID,
			From:    member,
			To:      in.PaidBy,
			Amount:  perPerson,
		})
	}

	return expense, transactions, nil
}
