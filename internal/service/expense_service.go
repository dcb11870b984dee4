package service

import (
	"context"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/tripsplit/internal/calculator"
	"github.com/mmynk/tripsplit/internal/live"
	"github.com/mmynk/tripsplit/internal/metrics"
	"github.com/mmynk/tripsplit/internal/middleware"
	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
	"github.com/mmynk/tripsplit/pkg/api"
)

// ExpenseService implements the Connect ExpenseService
type ExpenseService struct {
	store   storage.Store
	hub     *live.Hub
	metrics *metrics.Metrics
}

// NewExpenseService creates a new ExpenseService with the given storage backend.
func NewExpenseService(store storage.Store, hub *live.Hub, m *metrics.Metrics) *ExpenseService {
	return &ExpenseService{store: store, hub: hub, metrics: m}
}

// RecordExpense splits an expense evenly and stores it together with the
// transactions it creates. Payer and participants must be group members.
func (s *ExpenseService) RecordExpense(ctx context.Context, req *connect.Request[api.RecordExpenseRequest]) (*connect.Response[api.RecordExpenseResponse], error) {
	uid := middleware.GetUserID(ctx)
	slog.Info("RecordExpense request received",
		"group_id", req.Msg.GroupID,
		"user_id", uid,
		"total", req.Msg.TotalAmount,
		"participants", len(req.Msg.SplitAmong),
	)

	group, err := requireMember(ctx, s.store, req.Msg.GroupID, uid)
	if err != nil {
		return nil, toConnectError("RecordExpense", err)
	}

	expense, txns, err := calculator.SplitExpense(calculator.ExpenseInput{
		GroupID:     group.ID,
		Description: cleanText(req.Msg.Description),
		TotalAmount: req.Msg.TotalAmount,
		PaidBy:      req.Msg.PaidBy,
		SplitAmong:  req.Msg.SplitAmong,
	})
	if err != nil {
		return nil, toConnectError("RecordExpense", err)
	}
	if err := checkParticipants(group, expense); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	if err := s.store.RecordExpense(ctx, expense, txns); err != nil {
		return nil, toConnectError("RecordExpense", err)
	}
	s.metrics.ExpensesRecorded.Inc()

	slog.Info("Expense recorded",
		"expense_id", expense.ID,
		"group_id", group.ID,
		"per_person", expense.PerPersonAmount,
		"transactions", len(txns),
	)
	s.hub.Publish(live.Event{Type: live.EventExpenseRecorded, GroupID: group.ID, UserID: uid}, live.GroupTopic(group.ID))

	out := make([]*api.Transaction, len(txns))
	for i := range txns {
		out[i] = toAPITransaction(&txns[i])
	}
	return connect.NewResponse(&api.RecordExpenseResponse{
		Expense:      toAPIExpense(expense),
		Transactions: out,
	}), nil
}

func checkParticipants(group *models.Group, expense *models.Expense) error {
	if !group.HasMember(expense.PaidBy) {
		return fmt.Errorf("paid_by %q is not a member of this group", expense.PaidBy)
	}
	for _, id := range expense.SplitAmong {
		if !group.HasMember(id) {
			return fmt.Errorf("split_among: %q is not a member of this group", id)
		}
	}
	return nil
}

// ListExpenses returns the group's expenses, newest first.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	group, err := requireMember(ctx, s.store, req.Msg.GroupID, middleware.GetUserID(ctx))
	if err != nil {
		return nil, toConnectError("ListExpenses", err)
	}

	expenses, err := s.store.ListExpenses(ctx, group.ID)
	if err != nil {
		return nil, toConnectError("ListExpenses", err)
	}
	return connect.NewResponse(&api.ListExpensesResponse{Expenses: toAPIExpenses(expenses)}), nil
}

// ListTransactions returns the group's transactions, newest first.
func (s *ExpenseService) ListTransactions(ctx context.Context, req *connect.Request[api.ListTransactionsRequest]) (*connect.Response[api.ListTransactionsResponse], error) {
	group, err := requireMember(ctx, s.store, req.Msg.GroupID, middleware.GetUserID(ctx))
	if err != nil {
		return nil, toConnectError("ListTransactions", err)
	}

	txns, err := s.store.ListTransactions(ctx, group.ID)
	if err != nil {
		return nil, toConnectError("ListTransactions", err)
	}
	return connect.NewResponse(&api.ListTransactionsResponse{Transactions: toAPITransactions(txns)}), nil
}
