package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/tripsplit/internal/joincode"
	"github.com/mmynk/tripsplit/internal/live"
	"github.com/mmynk/tripsplit/internal/metrics"
	"github.com/mmynk/tripsplit/internal/middleware"
	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
	"github.com/mmynk/tripsplit/pkg/api"
)

// createRetries bounds how often CreateGroup redraws a join code after the
// store reports a clash with a concurrently created group.
const createRetries = 3

// GroupService implements the Connect GroupService
type GroupService struct {
	store   storage.Store
	hub     *live.Hub
	metrics *metrics.Metrics
	codes   joincode.Generator
}

// NewGroupService creates a new GroupService. maxAttempts bounds the join
// code candidates drawn per group; zero means joincode.DefaultMaxAttempts.
func NewGroupService(store storage.Store, hub *live.Hub, m *metrics.Metrics, maxAttempts int) *GroupService {
	s := &GroupService{store: store, hub: hub, metrics: m}
	s.codes = joincode.Generator{Lookup: s.joinCodeInUse, MaxAttempts: maxAttempts}
	return s
}

func (s *GroupService) joinCodeInUse(ctx context.Context, code string) (bool, error) {
	_, err := s.store.FindGroupByJoinCode(ctx, code)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// CreateGroup creates a group with the caller as its only member.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	uid := middleware.GetUserID(ctx)
	name := cleanText(req.Msg.Name)
	slog.Info("CreateGroup request received", "name", name, "user_id", uid)

	if name == "" {
		return nil, invalidArgument("group name is required")
	}

	for range createRetries {
		code, attempts, err := s.codes.EnsureUnique(ctx)
		s.metrics.JoinCodeAttempts.Observe(float64(attempts))
		if err != nil {
			return nil, toConnectError("CreateGroup", err)
		}

		group := &models.Group{
			Name:      name,
			JoinCode:  code,
			CreatedBy: uid,
			Members:   []string{uid},
		}
		err = s.store.CreateGroup(ctx, group)
		if errors.Is(err, storage.ErrJoinCodeTaken) {
			slog.Warn("Join code clashed, retrying", "code", code)
			continue
		}
		if err != nil {
			return nil, toConnectError("CreateGroup", err)
		}

		slog.Info("Group created", "group_id", group.ID, "join_code", group.JoinCode)
		s.hub.Publish(live.Event{Type: live.EventGroupCreated, GroupID: group.ID, UserID: uid}, live.UserTopic(uid))

		return connect.NewResponse(&api.CreateGroupResponse{Group: toAPIGroup(group)}), nil
	}

	return nil, toConnectError("CreateGroup", joincode.ErrExhausted)
}

// JoinGroup adds the caller to the group owning the join code.
// Joining a group twice succeeds and leaves the members unchanged.
func (s *GroupService) JoinGroup(ctx context.Context, req *connect.Request[api.JoinGroupRequest]) (*connect.Response[api.JoinGroupResponse], error) {
	uid := middleware.GetUserID(ctx)
	slog.Info("JoinGroup request received", "user_id", uid)

	if err := joincode.Validate(req.Msg.JoinCode); err != nil {
		return nil, toConnectError("JoinGroup", err)
	}

	group, err := s.store.FindGroupByJoinCode(ctx, strings.TrimSpace(req.Msg.JoinCode))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("no group uses that join code"))
	}
	if err != nil {
		return nil, toConnectError("JoinGroup", err)
	}

	added, err := s.store.AddGroupMember(ctx, group.ID, uid)
	if err != nil {
		return nil, toConnectError("JoinGroup", err)
	}
	if !added {
		slog.Info("Already a member", "group_id", group.ID, "user_id", uid)
		return connect.NewResponse(&api.JoinGroupResponse{Group: toAPIGroup(group), AlreadyMember: true}), nil
	}

	group, err = s.store.GetGroup(ctx, group.ID)
	if err != nil {
		return nil, toConnectError("JoinGroup", err)
	}

	slog.Info("Member joined", "group_id", group.ID, "user_id", uid, "members", len(group.Members))
	s.hub.Publish(live.Event{Type: live.EventMemberJoined, GroupID: group.ID, UserID: uid},
		live.GroupTopic(group.ID), live.UserTopic(uid))

	return connect.NewResponse(&api.JoinGroupResponse{Group: toAPIGroup(group)}), nil
}

// GetGroup retrieves a group and its member profiles. Members only.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	uid := middleware.GetUserID(ctx)

	group, err := requireMember(ctx, s.store, req.Msg.GroupID, uid)
	if err != nil {
		return nil, toConnectError("GetGroup", err)
	}

	profiles, err := memberProfiles(ctx, s.store, group)
	if err != nil {
		return nil, toConnectError("GetGroup", err)
	}

	return connect.NewResponse(&api.GetGroupResponse{
		Group:   toAPIGroup(group),
		Members: toAPIUsers(profiles),
	}), nil
}

// ListGroups returns the caller's groups, newest first.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	uid := middleware.GetUserID(ctx)

	groups, err := s.store.ListGroupsForMember(ctx, uid)
	if err != nil {
		return nil, toConnectError("ListGroups", err)
	}

	slog.Info("ListGroups successful", "user_id", uid, "count", len(groups))
	return connect.NewResponse(&api.ListGroupsResponse{Groups: toAPIGroups(groups)}), nil
}

// WatchGroups sends the caller's group list now and again whenever they
// create or join a group, until the client goes away.
func (s *GroupService) WatchGroups(ctx context.Context, req *connect.Request[api.WatchGroupsRequest], stream *connect.ServerStream[api.WatchGroupsResponse]) error {
	uid := middleware.GetUserID(ctx)

	sub := s.hub.Subscribe(live.UserTopic(uid))
	defer sub.Close()

	send := func() error {
		groups, err := s.store.ListGroupsForMember(ctx, uid)
		if err != nil {
			return toConnectError("WatchGroups", err)
		}
		return stream.Send(&api.WatchGroupsResponse{Groups: toAPIGroups(groups)})
	}

	if err := send(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err := send(); err != nil {
				return err
			}
		}
	}
}
