// Package mongo provides a MongoDB-backed implementation of the storage.Store interface.
//
// Each record type lives in its own collection. Group membership is an array
// on the group document, updated with $addToSet so repeated joins are no-ops.
// RecordExpense uses a multi-document transaction, which requires the server
// to run as a replica set.
package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mmynk/tripsplit/internal/storage"
)

var _ storage.Store = (*Store)(nil)

const (
	joinCodeIndex = "idx_groups_join_code"
	emailIndex    = "idx_credentials_email"
)

const (
	groupsCollection       = "groups"
	usersCollection        = "users"
	expensesCollection     = "expenses"
	transactionsCollection = "transactions"
	credentialsCollection  = "credentials"
	revokedCollection      = "revoked_tokens"
)

// Store implements storage.Store using MongoDB.
type Store struct {
	client       *mongo.Client
	groups       *mongo.Collection
	users        *mongo.Collection
	expenses     *mongo.Collection
	transactions *mongo.Collection
	credentials  *mongo.Collection
	revoked      *mongo.Collection
}

// New connects to uri, selects database and ensures indexes.
func New(ctx context.Context, uri, database string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:       client,
		groups:       db.Collection(groupsCollection),
		users:        db.Collection(usersCollection),
		expenses:     db.Collection(expensesCollection),
		transactions: db.Collection(transactionsCollection),
		credentials:  db.Collection(credentialsCollection),
		revoked:      db.Collection(revokedCollection),
	}

	if err := s.EnsureIndexes(connectCtx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	return s, nil
}

// EnsureIndexes creates the indexes the queries and uniqueness rules rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := []struct {
		c       *mongo.Collection
		indexes []mongo.IndexModel
	}{
		{s.groups, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "join_code", Value: 1}},
				Options: options.Index().SetUnique(true).SetName(joinCodeIndex),
			},
			{
				Keys:    bson.D{{Key: "members", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("idx_groups_members"),
			},
		}},
		{s.expenses, []mongo.IndexModel{{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_expenses_group"),
		}}},
		{s.transactions, []mongo.IndexModel{{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_transactions_group"),
		}}},
		{s.credentials, []mongo.IndexModel{{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(emailIndex),
		}}},
		{s.revoked, []mongo.IndexModel{{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_revoked_tokens_ttl"),
		}}},
	}

	for _, spec := range specs {
		if _, err := spec.c.Indexes().CreateMany(ctx, spec.indexes); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", spec.c.Name(), err)
		}
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// newestFirst sorts by creation time, ties broken by id.
func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
}

// isDuplicateOn reports whether err is a duplicate key error raised by the
// named unique index. A clash on _id or any other index does not match.
func isDuplicateOn(err error, index string) bool {
	if !mongo.IsDuplicateKeyError(err) {
		return false
	}
	return strings.Contains(err.Error(), "index: "+index)
}
