package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mmynk/tripsplit/internal/models"
)

// RecordExpense writes the expense and its transactions in one session
// transaction.
func (s *Store) RecordExpense(ctx context.Context, expense *models.Expense, transactions []models.Transaction) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}

	docs := make([]interface{}, len(transactions))
	for i := range transactions {
		txn := &transactions[i]
		if txn.ID == "" {
			txn.ID = uuid.New().String()
		}
		txn.GroupID = expense.GroupID
		txn.ExpenseID = expense.ID
		txn.CreatedAt = expense.CreatedAt
		docs[i] = txn
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := s.expenses.InsertOne(sc, expense); err != nil {
			return nil, fmt.Errorf("failed to insert expense: %w", err)
		}
		if len(docs) > 0 {
			if _, err := s.transactions.InsertMany(sc, docs); err != nil {
				return nil, fmt.Errorf("failed to insert transactions: %w", err)
			}
		}
		return nil, nil
	})
	return err
}

func (s *Store) ListExpenses(ctx context.Context, groupID string) ([]*models.Expense, error) {
	cur, err := s.expenses.Find(ctx, bson.M{"group_id": groupID}, newestFirst())
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	var expenses []*models.Expense
	if err := cur.All(ctx, &expenses); err != nil {
		return nil, fmt.Errorf("failed to decode expenses: %w", err)
	}
	return expenses, nil
}

func (s *Store) ListTransactions(ctx context.Context, groupID string) ([]*models.Transaction, error) {
	cur, err := s.transactions.Find(ctx, bson.M{"group_id": groupID}, newestFirst())
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	var transactions []*models.Transaction
	if err := cur.All(ctx, &transactions); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	return transactions, nil
}
