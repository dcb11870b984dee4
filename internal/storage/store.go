// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mmynk/tripsplit/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrJoinCodeTaken is returned by CreateGroup when another group already uses the join code.
	ErrJoinCodeTaken = errors.New("join code already in use")
	// ErrEmailTaken is returned by CreateAccount when the email is registered.
	ErrEmailTaken = errors.New("email already registered")
)

// Store defines the interface for group, user and ledger storage.
// This abstraction allows swapping storage backends (SQLite, MongoDB)
// without changing the service layer.
type Store interface {
	// CreateGroup persists a new group. ID and CreatedAt are assigned by the
	// store when empty.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its members in join order.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// FindGroupByJoinCode retrieves the group using the given join code.
	FindGroupByJoinCode(ctx context.Context, code string) (*models.Group, error)

	// ListGroupsForMember returns every group uid belongs to, newest first.
	ListGroupsForMember(ctx context.Context, uid string) ([]*models.Group, error)

	// AddGroupMember appends uid to the group's members.
	// Returns false when uid was already a member.
	AddGroupMember(ctx context.Context, groupID, uid string) (bool, error)

	// UpsertUser stores the user unless a record with the same UID exists.
	// Returns the stored record and whether it was created.
	UpsertUser(ctx context.Context, user *models.User) (*models.User, bool, error)

	// GetUser retrieves a user profile by UID.
	GetUser(ctx context.Context, uid string) (*models.User, error)

	// GetUsersByIDs retrieves several users. Missing users are omitted.
	GetUsersByIDs(ctx context.Context, uids []string) (map[string]*models.User, error)

	// RecordExpense stores an expense and its transactions in one commit.
	// The store assigns IDs and CreatedAt, and sets each transaction's
	// ExpenseID and GroupID to the expense's.
	RecordExpense(ctx context.Context, expense *models.Expense, transactions []models.Transaction) error

	// ListExpenses returns a group's expenses, newest first.
	ListExpenses(ctx context.Context, groupID string) ([]*models.Expense, error)

	// ListTransactions returns a group's transactions, newest first.
	ListTransactions(ctx context.Context, groupID string) ([]*models.Transaction, error)

	// CreateAccount stores a local password identity together with its
	// profile. Either both are written or neither is.
	CreateAccount(ctx context.Context, cred *models.Credential, profile *models.User) error

	// GetCredentialByEmail retrieves a local password identity.
	GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error)

	// RevokeToken records a signed-out token id until expiresAt.
	// Revoking the same id again replaces its expiry.
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error

	// ListRevokedTokens returns the revoked token ids that expire after now.
	ListRevokedTokens(ctx context.Context, now time.Time) (map[string]time.Time, error)

	// PruneRevokedTokens deletes revocations that expired before now.
	PruneRevokedTokens(ctx context.Context, now time.Time) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
