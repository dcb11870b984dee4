package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
)

// UpsertUser inserts with $setOnInsert so an existing profile is left as is.
func (s *Store) UpsertUser(ctx context.Context, user *models.User) (*models.User, bool, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": user.UID},
		bson.M{"$setOnInsert": bson.M{
			"name":       user.Name,
			"email":      user.Email,
			"photo_url":  user.PhotoURL,
			"created_at": user.CreatedAt,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert user: %w", err)
	}
	if res.UpsertedCount == 1 {
		stored := *user
		return &stored, true, nil
	}

	existing, err := s.GetUser(ctx, user.UID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *Store) GetUser(ctx context.Context, uid string) (*models.User, error) {
	var u models.User
	err := s.users.FindOne(ctx, bson.M{"_id": uid}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("user %s: %w", uid, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, uids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User, len(uids))
	if len(uids) == 0 {
		return users, nil
	}

	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": uids}})
	if err != nil {
		return nil, fmt.Errorf("failed to get users by IDs: %w", err)
	}
	var list []*models.User
	if err := cur.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	for _, u := range list {
		users[u.UID] = u
	}
	return users, nil
}

// CreateAccount inserts the credential and the profile in one session
// transaction.
func (s *Store) CreateAccount(ctx context.Context, cred *models.Credential, profile *models.User) error {
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now().UTC()
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = cred.CreatedAt
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := s.credentials.InsertOne(sc, cred); err != nil {
			if isDuplicateOn(err, emailIndex) {
				return nil, storage.ErrEmailTaken
			}
			return nil, fmt.Errorf("failed to create credential: %w", err)
		}
		if _, err := s.users.InsertOne(sc, profile); err != nil {
			return nil, fmt.Errorf("failed to create profile: %w", err)
		}
		return nil, nil
	})
	return err
}

func (s *Store) GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error) {
	var c models.Credential
	err := s.credentials.FindOne(ctx, bson.M{"email": email}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("credential %s: %w", email, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return &c, nil
}
