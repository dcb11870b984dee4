package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/tripsplit/internal/calculator"
	"github.com/mmynk/tripsplit/internal/live"
	"github.com/mmynk/tripsplit/internal/middleware"
	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
	"github.com/mmynk/tripsplit/pkg/api"
)

// BalanceService derives balances from a group's ledger. Nothing it returns
// is stored; every call recomputes from expenses and transactions.
type BalanceService struct {
	store storage.Store
	hub   *live.Hub
}

// NewBalanceService creates a new BalanceService.
func NewBalanceService(store storage.Store, hub *live.Hub) *BalanceService {
	return &BalanceService{store: store, hub: hub}
}

type ledger struct {
	group        *models.Group
	expenses     []*models.Expense
	transactions []*models.Transaction
}

func (s *BalanceService) loadLedger(ctx context.Context, groupID, uid string) (*ledger, error) {
	group, err := requireMember(ctx, s.store, groupID, uid)
	if err != nil {
		return nil, err
	}
	expenses, err := s.store.ListExpenses(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	txns, err := s.store.ListTransactions(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	return &ledger{group: group, expenses: expenses, transactions: txns}, nil
}

// GetUserBalance returns the caller's summary for one group.
func (s *BalanceService) GetUserBalance(ctx context.Context, req *connect.Request[api.GetUserBalanceRequest]) (*connect.Response[api.GetUserBalanceResponse], error) {
	uid := middleware.GetUserID(ctx)

	l, err := s.loadLedger(ctx, req.Msg.GroupID, uid)
	if err != nil {
		return nil, toConnectError("GetUserBalance", err)
	}

	summary := calculator.SummarizeUser(uid, l.expenses, l.transactions)
	return connect.NewResponse(&api.GetUserBalanceResponse{Summary: toAPISummary(summary)}), nil
}

// GetGroupBalances returns one row per member, in member order.
func (s *BalanceService) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	l, err := s.loadLedger(ctx, req.Msg.GroupID, middleware.GetUserID(ctx))
	if err != nil {
		return nil, toConnectError("GetGroupBalances", err)
	}

	profiles, err := memberProfiles(ctx, s.store, l.group)
	if err != nil {
		return nil, toConnectError("GetGroupBalances", err)
	}

	balances := calculator.SummarizeGroup(profiles, l.expenses, l.transactions)
	return connect.NewResponse(&api.GetGroupBalancesResponse{Balances: toAPIBalances(balances)}), nil
}

// WatchGroup streams a snapshot of the group on subscribe and after every
// change, until the client goes away. Changes that arrive while a snapshot
// is being sent are folded into the next one.
func (s *BalanceService) WatchGroup(ctx context.Context, req *connect.Request[api.WatchGroupRequest], stream *connect.ServerStream[api.GroupSnapshot]) error {
	uid := middleware.GetUserID(ctx)

	// Subscribe first so no change between the first read and the loop is lost.
	sub := s.hub.Subscribe(live.GroupTopic(req.Msg.GroupID))
	defer sub.Close()

	snapshot, err := s.snapshot(ctx, req.Msg.GroupID, uid)
	if err != nil {
		return toConnectError("WatchGroup", err)
	}
	if err := stream.Send(snapshot); err != nil {
		return err
	}
	slog.Info("WatchGroup started", "group_id", req.Msg.GroupID, "user_id", uid)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			snapshot, err := s.snapshot(ctx, req.Msg.GroupID, uid)
			if err != nil {
				return toConnectError("WatchGroup", err)
			}
			if err := stream.Send(snapshot); err != nil {
				return err
			}
			slog.Debug("WatchGroup snapshot sent", "group_id", req.Msg.GroupID, "user_id", uid, "event", ev.Type)
		}
	}
}

func (s *BalanceService) snapshot(ctx context.Context, groupID, uid string) (*api.GroupSnapshot, error) {
	l, err := s.loadLedger(ctx, groupID, uid)
	if err != nil {
		return nil, err
	}
	profiles, err := memberProfiles(ctx, s.store, l.group)
	if err != nil {
		return nil, err
	}

	return &api.GroupSnapshot{
		Group:        toAPIGroup(l.group),
		Members:      toAPIUsers(profiles),
		Expenses:     toAPIExpenses(l.expenses),
		Transactions: toAPITransactions(l.transactions),
		MySummary:    toAPISummary(calculator.SummarizeUser(uid, l.expenses, l.transactions)),
		Balances:     toAPIBalances(calculator.SummarizeGroup(profiles, l.expenses, l.transactions)),
	}, nil
}
