package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/tripsplit/internal/models"
)

// RecordExpense inserts the expense, its split list and every derived
// transaction in a single SQL transaction.
func (s *SQLiteStore) RecordExpense(ctx context.Context, expense *models.Expense, transactions []models.Transaction) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO expenses (id, group_id, description, total_amount, paid_by, per_person_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.GroupID, expense.Description, expense.TotalAmount,
		expense.PaidBy, expense.PerPersonAmount, toUnix(expense.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i, uid := range expense.SplitAmong {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO expense_splits (expense_id, position, user_id) VALUES (?, ?, ?)",
			expense.ID, i, uid,
		); err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}

	for i := range transactions {
		txn := &transactions[i]
		if txn.ID == "" {
			txn.ID = uuid.New().String()
		}
		txn.GroupID = expense.GroupID
		txn.ExpenseID = expense.ID
		txn.CreatedAt = expense.CreatedAt

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (id, group_id, from_user, to_user, amount, expense_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			txn.ID, txn.GroupID, txn.From, txn.To, txn.Amount, txn.ExpenseID, toUnix(txn.CreatedAt),
		); err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListExpenses returns a group's expenses, newest first.
func (s *SQLiteStore) ListExpenses(ctx context.Context, groupID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, description, total_amount, paid_by, per_person_amount, created_at
		FROM expenses
		WHERE group_id = ?
		ORDER BY created_at DESC, rowid DESC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	byID := make(map[string]*models.Expense)
	for rows.Next() {
		exp := &models.Expense{}
		var createdAt int64
		if err := rows.Scan(&exp.ID, &exp.GroupID, &exp.Description, &exp.TotalAmount,
			&exp.PaidBy, &exp.PerPersonAmount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		exp.CreatedAt = fromUnix(createdAt)
		exp.SplitAmong = []string{}
		expenses = append(expenses, exp)
		byID[exp.ID] = exp
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	rows.Close()

	if len(expenses) == 0 {
		return expenses, nil
	}

	splitRows, err := s.db.QueryContext(ctx, `
		SELECT s.expense_id, s.user_id
		FROM expense_splits s
		JOIN expenses e ON e.id = s.expense_id
		WHERE e.group_id = ?
		ORDER BY s.expense_id, s.position`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}
	defer splitRows.Close()

	for splitRows.Next() {
		var expenseID, uid string
		if err := splitRows.Scan(&expenseID, &uid); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		if exp, ok := byID[expenseID]; ok {
			exp.SplitAmong = append(exp.SplitAmong, uid)
		}
	}
	if err := splitRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}

	return expenses, nil
}

// ListTransactions returns a group's transactions, newest first.
func (s *SQLiteStore) ListTransactions(ctx context.Context, groupID string) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, from_user, to_user, amount, expense_id, created_at
		FROM transactions
		WHERE group_id = ?
		ORDER BY created_at DESC, rowid DESC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		txn := &models.Transaction{}
		var createdAt int64
		if err := rows.Scan(&txn.ID, &txn.GroupID, &txn.From, &txn.To, &txn.Amount,
			&txn.ExpenseID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.CreatedAt = fromUnix(createdAt)
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return transactions, nil
}
