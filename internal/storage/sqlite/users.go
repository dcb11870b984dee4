package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
)

// UpsertUser inserts the user unless the UID already exists.
// The existing record is never overwritten.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *models.User) (*models.User, bool, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO users (uid, name, email, photo_url, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		user.UID, user.Name, user.Email, user.PhotoURL, toUnix(user.CreatedAt),
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert user: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 1 {
		stored := *user
		return &stored, true, nil
	}

	existing, err := s.GetUser(ctx, user.UID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetUser retrieves a user by UID.
func (s *SQLiteStore) GetUser(ctx context.Context, uid string) (*models.User, error) {
	user := &models.User{}
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT uid, name, email, photo_url, created_at FROM users WHERE uid = ?",
		uid,
	).Scan(&user.UID, &user.Name, &user.Email, &user.PhotoURL, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", uid, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.CreatedAt = fromUnix(createdAt)
	return user, nil
}

// GetUsersByIDs retrieves multiple users by their UIDs.
// Users that don't exist are omitted from the result.
func (s *SQLiteStore) GetUsersByIDs(ctx context.Context, uids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User, len(uids))
	if len(uids) == 0 {
		return users, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT uid, name, email, photo_url, created_at FROM users WHERE uid IN ("+placeholders(len(uids))+")",
		stringArgs(uids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get users by IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user := &models.User{}
		var createdAt int64
		if err := rows.Scan(&user.UID, &user.Name, &user.Email, &user.PhotoURL, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		user.CreatedAt = fromUnix(createdAt)
		users[user.UID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// CreateAccount stores a local password identity and its profile in one
// transaction.
func (s *SQLiteStore) CreateAccount(ctx context.Context, cred *models.Credential, profile *models.User) error {
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now().UTC()
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = cred.CreatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO credentials (uid, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		cred.UID, cred.Email, cred.PasswordHash, toUnix(cred.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err, "email") {
			return storage.ErrEmailTaken
		}
		return fmt.Errorf("failed to create credential: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO users (uid, name, email, photo_url, created_at) VALUES (?, ?, ?, ?, ?)",
		profile.UID, profile.Name, profile.Email, profile.PhotoURL, toUnix(profile.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit account: %w", err)
	}
	return nil
}

// GetCredentialByEmail retrieves a local password identity by email.
func (s *SQLiteStore) GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error) {
	cred := &models.Credential{}
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT uid, email, password_hash, created_at FROM credentials WHERE email = ?",
		email,
	).Scan(&cred.UID, &cred.Email, &cred.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("credential %s: %w", email, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	cred.CreatedAt = fromUnix(createdAt)
	return cred, nil
}
