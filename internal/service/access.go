package service

import (
	"context"
	"fmt"

	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
)

// requireMember loads the group and checks uid belongs to it.
func requireMember(ctx context.Context, store storage.Store, groupID, uid string) (*models.Group, error) {
	if groupID == "" {
		return nil, errGroupRequired
	}
	group, err := store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(uid) {
		return nil, fmt.Errorf("group %s: %w", groupID, errNotMember)
	}
	return group, nil
}

// memberProfiles returns one profile per member, in member order. Members
// without a stored profile get a placeholder with the default name.
func memberProfiles(ctx context.Context, store storage.Store, group *models.Group) ([]*models.User, error) {
	users, err := store.GetUsersByIDs(ctx, group.Members)
	if err != nil {
		return nil, err
	}
	profiles := make([]*models.User, len(group.Members))
	for i, uid := range group.Members {
		if u, ok := users[uid]; ok {
			profiles[i] = u
		} else {
			profiles[i] = &models.User{UID: uid, Name: models.DefaultUserName}
		}
	}
	return profiles, nil
}
