package service

import (
	"github.com/mmynk/tripsplit/internal/calculator"
	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/pkg/api"
)

func toAPIGroup(g *models.Group) *api.Group {
	return &api.Group{
		ID:        g.ID,
		Name:      g.Name,
		JoinCode:  g.JoinCode,
		CreatedBy: g.CreatedBy,
		Members:   g.Members,
		CreatedAt: g.CreatedAt,
	}
}

func toAPIGroups(groups []*models.Group) []*api.Group {
	out := make([]*api.Group, len(groups))
	for i, g := range groups {
		out[i] = toAPIGroup(g)
	}
	return out
}

func toAPIUser(u *models.User) *api.User {
	return &api.User{
		UID:       u.UID,
		Name:      u.Name,
		Email:     u.Email,
		PhotoURL:  u.PhotoURL,
		CreatedAt: u.CreatedAt,
	}
}

func toAPIUsers(users []*models.User) []*api.User {
	out := make([]*api.User, len(users))
	for i, u := range users {
		out[i] = toAPIUser(u)
	}
	return out
}

func toAPIExpense(e *models.Expense) *api.Expense {
	return &api.Expense{
		ID:              e.ID,
		GroupID:         e.GroupID,
		Description:     e.Description,
		TotalAmount:     e.TotalAmount,
		PaidBy:          e.PaidBy,
		SplitAmong:      e.SplitAmong,
		PerPersonAmount: e.PerPersonAmount,
		CreatedAt:       e.CreatedAt,
	}
}

func toAPIExpenses(expenses []*models.Expense) []*api.Expense {
	out := make([]*api.Expense, len(expenses))
	for i, e := range expenses {
		out[i] = toAPIExpense(e)
	}
	return out
}

func toAPITransaction(t *models.Transaction) *api.Transaction {
	return &api.Transaction{
		ID:        t.ID,
		GroupID:   t.GroupID,
		From:      t.From,
		To:        t.To,
		Amount:    t.Amount,
		ExpenseID: t.ExpenseID,
		CreatedAt: t.CreatedAt,
	}
}

func toAPITransactions(txns []*models.Transaction) []*api.Transaction {
	out := make([]*api.Transaction, len(txns))
	for i, t := range txns {
		out[i] = toAPITransaction(t)
	}
	return out
}

func toAPISummary(s calculator.BalanceSummary) *api.BalanceSummary {
	return &api.BalanceSummary{
		TotalPaid:         s.TotalPaid,
		PersonalShare:     s.PersonalShare,
		YouOwe:            s.YouOwe,
		OthersOweYou:      s.OthersOweYou,
		NetBalance:        s.NetBalance,
		NetBalanceDisplay: calculator.FormatCurrency(s.NetBalance),
	}
}

func toAPIBalances(balances []calculator.UserBalance) []*api.UserBalance {
	out := make([]*api.UserBalance, len(balances))
	for i, b := range balances {
		out[i] = &api.UserBalance{
			UserID:            b.UserID,
			UserName:          b.UserName,
			UserPhoto:         b.UserPhoto,
			TotalPaid:         b.TotalPaid,
			TotalOwed:         b.TotalOwed,
			NetBalance:        b.NetBalance,
			NetBalanceDisplay: calculator.FormatCurrency(b.NetBalance),
		}
	}
	return out
}
