package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/tripsplit/internal/auth"
	"github.com/mmynk/tripsplit/internal/middleware"
	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
	"github.com/mmynk/tripsplit/pkg/api"
)

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	store         storage.Store
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, store storage.Store, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		store:         store,
		logger:        logger,
	}
}

// Register creates a password account and signs it in.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[api.RegisterRequest]) (*connect.Response[api.RegisterResponse], error) {
	s.logger.Info("Register request", "email", req.Msg.Email)

	if strings.TrimSpace(req.Msg.Email) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	identity, err := s.authenticator.Register(ctx, req.Msg.Email, cleanText(req.Msg.DisplayName), req.Msg.Password)
	if err != nil {
		s.logger.Warn("Registration failed", "email", req.Msg.Email, "error", err)
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			return nil, connect.NewError(connect.CodeAlreadyExists, err)
		case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidCredentials):
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return nil, toConnectError("Register", err)
	}

	user, token, err := s.SignInIdentity(ctx, identity)
	if err != nil {
		return nil, toConnectError("Register", err)
	}

	s.logger.Info("User registered", "user_id", user.UID)
	return connect.NewResponse(&api.RegisterResponse{User: toAPIUser(user), Token: token}), nil
}

// SignIn verifies an email and password and issues a session token.
func (s *AuthService) SignIn(ctx context.Context, req *connect.Request[api.SignInRequest]) (*connect.Response[api.SignInResponse], error) {
	s.logger.Info("SignIn request", "email", req.Msg.Email)

	if req.Msg.Email == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	identity, err := s.authenticator.Authenticate(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		s.logger.Warn("SignIn failed", "email", req.Msg.Email, "error", err)
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}

	user, token, err := s.SignInIdentity(ctx, identity)
	if err != nil {
		return nil, toConnectError("SignIn", err)
	}

	s.logger.Info("User signed in", "user_id", user.UID)
	return connect.NewResponse(&api.SignInResponse{User: toAPIUser(user), Token: token}), nil
}

// SignOut revokes the token the call was made with.
func (s *AuthService) SignOut(ctx context.Context, req *connect.Request[api.SignOutRequest]) (*connect.Response[api.SignOutResponse], error) {
	claims := middleware.GetClaims(ctx)
	if claims == nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	if err := s.jwtManager.Revoke(ctx, claims); err != nil {
		// The token is already rejected by this process.
		s.logger.Error("Failed to persist sign-out", "user_id", claims.UserID, "error", err)
	}

	s.logger.Info("User signed out", "user_id", claims.UserID)
	return connect.NewResponse(&api.SignOutResponse{}), nil
}

// GetCurrentUser returns the stored profile of the caller.
func (s *AuthService) GetCurrentUser(ctx context.Context, req *connect.Request[api.GetCurrentUserRequest]) (*connect.Response[api.GetCurrentUserResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, toConnectError("GetCurrentUser", err)
	}
	return connect.NewResponse(&api.GetCurrentUserResponse{User: toAPIUser(user)}), nil
}

// SignInIdentity makes sure a profile exists for the identity and issues a
// session token for it. A profile is created on first sign-in only; later
// sign-ins leave the stored name and photo alone.
func (s *AuthService) SignInIdentity(ctx context.Context, identity *auth.Identity) (*models.User, string, error) {
	name := strings.TrimSpace(identity.DisplayName)
	if name == "" {
		name = models.DefaultUserName
	}

	user, created, err := s.store.UpsertUser(ctx, &models.User{
		UID:      identity.UID,
		Name:     name,
		Email:    identity.Email,
		PhotoURL: identity.PhotoURL,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to store profile: %w", err)
	}
	if created {
		s.logger.Info("Profile created", "user_id", user.UID)
	}

	token, err := s.jwtManager.Generate(user.UID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	return user, token, nil
}

// PublicProcedures run without a session token.
var PublicProcedures = []string{
	api.AuthServiceRegisterProcedure,
	api.AuthServiceSignInProcedure,
}
