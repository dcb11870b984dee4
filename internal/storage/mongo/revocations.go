package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type revokedToken struct {
	JTI       string    `bson:"_id"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// RevokeToken records a signed-out token id. The TTL index on expires_at lets
// the server drop it once the token could no longer be used anyway.
func (s *Store) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := s.revoked.UpdateOne(ctx,
		bson.M{"_id": jti},
		bson.M{"$set": bson.M{"expires_at": expiresAt.UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (s *Store) ListRevokedTokens(ctx context.Context, now time.Time) (map[string]time.Time, error) {
	cur, err := s.revoked.Find(ctx, bson.M{"expires_at": bson.M{"$gte": now.UTC()}})
	if err != nil {
		return nil, fmt.Errorf("failed to list revoked tokens: %w", err)
	}
	var docs []revokedToken
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode revoked tokens: %w", err)
	}

	revoked := make(map[string]time.Time, len(docs))
	for _, d := range docs {
		revoked[d.JTI] = d.ExpiresAt
	}
	return revoked, nil
}

// PruneRevokedTokens deletes expired revocations the TTL monitor has not
// reached yet.
func (s *Store) PruneRevokedTokens(ctx context.Context, now time.Time) (int, error) {
	res, err := s.revoked.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": now.UTC()}})
	if err != nil {
		return 0, fmt.Errorf("failed to prune revoked tokens: %w", err)
	}
	return int(res.DeletedCount), nil
}
