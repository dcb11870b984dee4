package sqlite

import (
	"context"
	"fmt"
	"time"
)

// RevokeToken records a signed-out token id until expiresAt.
func (s *SQLiteStore) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)",
		jti, toUnix(expiresAt),
	)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// ListRevokedTokens returns the revocations still in force at now.
func (s *SQLiteStore) ListRevokedTokens(ctx context.Context, now time.Time) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT jti, expires_at FROM revoked_tokens WHERE expires_at >= ?",
		toUnix(now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list revoked tokens: %w", err)
	}
	defer rows.Close()

	revoked := make(map[string]time.Time)
	for rows.Next() {
		var jti string
		var expiresAt int64
		if err := rows.Scan(&jti, &expiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan revoked token: %w", err)
		}
		revoked[jti] = fromUnix(expiresAt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating revoked tokens: %w", err)
	}
	return revoked, nil
}

// PruneRevokedTokens deletes revocations that expired before now.
func (s *SQLiteStore) PruneRevokedTokens(ctx context.Context, now time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM revoked_tokens WHERE expires_at < ?", toUnix(now))
	if err != nil {
		return 0, fmt.Errorf("failed to prune revoked tokens: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return int(n), nil
}
