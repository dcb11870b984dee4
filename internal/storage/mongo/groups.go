package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
)

func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}
	if group.Members == nil {
		group.Members = []string{}
	}

	if _, err := s.groups.InsertOne(ctx, group); err != nil {
		if isDuplicateOn(err, joinCodeIndex) {
			return storage.ErrJoinCodeTaken
		}
		return fmt.Errorf("failed to insert group: %w", err)
	}
	return nil
}

func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return s.findGroup(ctx, bson.M{"_id": groupID})
}

func (s *Store) FindGroupByJoinCode(ctx context.Context, code string) (*models.Group, error) {
	return s.findGroup(ctx, bson.M{"join_code": code})
}

func (s *Store) findGroup(ctx context.Context, filter bson.M) (*models.Group, error) {
	var g models.Group
	err := s.groups.FindOne(ctx, filter).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("group: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return &g, nil
}

func (s *Store) ListGroupsForMember(ctx context.Context, uid string) ([]*models.Group, error) {
	cur, err := s.groups.Find(ctx, bson.M{"members": uid}, newestFirst())
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	var groups []*models.Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode groups: %w", err)
	}
	return groups, nil
}

// AddGroupMember appends uid with $addToSet, which keeps existing order and
// never duplicates.
func (s *Store) AddGroupMember(ctx context.Context, groupID, uid string) (bool, error) {
	res, err := s.groups.UpdateOne(ctx,
		bson.M{"_id": groupID},
		bson.M{"$addToSet": bson.M{"members": uid}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to add member: %w", err)
	}
	if res.MatchedCount == 0 {
		return false, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	return res.ModifiedCount == 1, nil
}
