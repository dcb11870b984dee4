package calculator

import (
	"slices"

	"github.com/mmynk/tripsplit/internal/models"
)

// BalanceSummary is one user's view of a group's ledger.
type BalanceSummary struct {
	TotalPaid     float64 // Sum of expenses this user paid for
	PersonalShare float64 // This user's share of every expense they take part in
	YouOwe        float64 // Sum of transactions from this user
	OthersOweYou  float64 // Sum of transactions to this user
	NetBalance    float64 // Positive = owed money, Negative = owes money
}

// UserBalance is one roster row for a group member.
type UserBalance struct {
	UserID     string
	UserName   string
	UserPhoto  string
	TotalPaid  float64
	TotalOwed  float64
	NetBalance float64 // Positive = owed money, Negative = owes money
}

// SummarizeUser computes a single user's balance summary.
//
// NetBalance here is derived from the transaction ledger:
// OthersOweYou - YouOwe. SummarizeGroup derives its NetBalance from expense
// shares instead. The two agree while every transaction comes from exactly
// one expense participant and is never edited, so both are kept as written.
func SummarizeUser(userID string, expenses []*models.Expense, transactions []*models.Transaction) BalanceSummary {
	var s BalanceSummary
	for _, exp := range expenses {
		if exp.PaidBy == userID {
			s.TotalPaid += exp.TotalAmount
		}
		if slices.Contains(exp.SplitAmong, userID) {
			s.PersonalShare += exp.PerPersonAmount
		}
	}
	for _, txn := range transactions {
		if txn.From == userID {
			s.YouOwe += txn.Amount
		}
		if txn.To == userID {
			s.OthersOweYou += txn.Amount
		}
	}
	s.NetBalance = s.OthersOweYou - s.YouOwe
	return s
}

// SummarizeGroup computes one roster row per member, in member order.
//
// NetBalance is TotalPaid - TotalOwed, computed from the expenses alone.
// transactions is accepted so both summaries take the same snapshot, but the
// roster formula does not read it.
func SummarizeGroup(members []*models.User, expenses []*models.Expense, transactions []*models.Transaction) []UserBalance {
	balances := make([]UserBalance, 0, len(members))
	for _, member := range members {
		var totalPaid, totalOwed float64
		for _, exp := range expenses {
			if exp.PaidBy == member.UID {
				totalPaid += exp.TotalAmount
			}
			if slices.Contains(exp.SplitAmong, member.UID) {
				totalOwed += exp.PerPersonAmount
			}
		}
		balances = append(balances, UserBalance{
			UserID:     member.UID,
			UserName:   member.Name,
			UserPhoto:  member.PhotoURL,
			TotalPaid:  totalPaid,
			TotalOwed:  totalOwed,
			NetBalance: totalPaid - totalOwed,
		})
	}
	return balances
}
