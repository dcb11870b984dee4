package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RevocationStore persists revoked token ids so a sign-out outlives the process.
type RevocationStore interface {
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	ListRevokedTokens(ctx context.Context, now time.Time) (map[string]time.Time, error)
	PruneRevokedTokens(ctx context.Context, now time.Time) (int, error)
}

// RevocationList remembers signed-out token ids until their expiry.
// Lookups are served from memory; a backing store, when set, is written
// through on Revoke and Prune.
type RevocationList struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	store   RevocationStore
}

// NewRevocationList returns a list that lives only in memory.
func NewRevocationList() *RevocationList {
	return &RevocationList{entries: make(map[string]time.Time)}
}

// LoadRevocationList returns a list backed by store, seeded with every
// revocation that has not yet expired.
func LoadRevocationList(ctx context.Context, store RevocationStore) (*RevocationList, error) {
	entries, err := store.ListRevokedTokens(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to load revoked tokens: %w", err)
	}
	if entries == nil {
		entries = make(map[string]time.Time)
	}
	return &RevocationList{entries: entries, store: store}, nil
}

// Revoke marks jti as signed out. The in-memory entry is kept even when the
// store write fails, so this process still rejects the token.
func (l *RevocationList) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	l.mu.Lock()
	l.entries[jti] = expiresAt
	l.mu.Unlock()

	if l.store == nil {
		return nil
	}
	if err := l.store.RevokeToken(ctx, jti, expiresAt); err != nil {
		return fmt.Errorf("failed to persist revocation: %w", err)
	}
	return nil
}

func (l *RevocationList) IsRevoked(jti string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[jti]
	return ok
}

// Prune drops entries that expired before now and returns how many were
// removed from memory.
func (l *RevocationList) Prune(ctx context.Context, now time.Time) (int, error) {
	l.mu.Lock()
	removed := 0
	for jti, exp := range l.entries {
		if exp.Before(now) {
			delete(l.entries, jti)
			removed++
		}
	}
	l.mu.Unlock()

	if l.store == nil {
		return removed, nil
	}
	if _, err := l.store.PruneRevokedTokens(ctx, now); err != nil {
		return removed, fmt.Errorf("failed to prune revoked tokens: %w", err)
	}
	return removed, nil
}

func (l *RevocationList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
