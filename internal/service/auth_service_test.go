package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/tripsplit/internal/auth"
	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
	"github.com/mmynk/tripsplit/pkg/api"
)

func TestRegister(t *testing.T) {
	env := setupTestServer(t)

	resp, err := env.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Email:       "Asha@Example.com",
		Password:    "password123",
		DisplayName: "Asha",
	}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if resp.Msg.Token == "" {
		t.Error("expected a session token")
	}
	if resp.Msg.User.Name != "Asha" || resp.Msg.User.Email != "asha@example.com" {
		t.Errorf("unexpected user: %+v", resp.Msg.User)
	}

	stored, err := env.store.GetUser(context.Background(), resp.Msg.User.UID)
	if err != nil {
		t.Fatalf("profile not stored: %v", err)
	}
	if stored.Name != "Asha" {
		t.Errorf("stored name: expected Asha, got %q", stored.Name)
	}
}

func TestRegister_DefaultName(t *testing.T) {
	env := setupTestServer(t)

	resp, err := env.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Email:    "quiet@example.com",
		Password: "password123",
	}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if resp.Msg.User.Name != models.DefaultUserName {
		t.Errorf("name: expected %q, got %q", models.DefaultUserName, resp.Msg.User.Name)
	}
}

// failingUpserts rejects every UpsertUser call.
type failingUpserts struct {
	storage.Store
}

func (failingUpserts) UpsertUser(context.Context, *models.User) (*models.User, bool, error) {
	return nil, false, errors.New("profile store unavailable")
}

func TestRegister_ProfileStoredWithCredential(t *testing.T) {
	env := setupTestServer(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	broken := failingUpserts{Store: env.store}
	svc := NewAuthService(auth.NewPasswordAuthenticator(broken).WithCost(bcrypt.MinCost), env.jwt, broken, logger)

	_, err := svc.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Email:       "asha@example.com",
		Password:    "password123",
		DisplayName: "Asha",
	}))
	assertCode(t, err, connect.CodeInternal)

	resp, err := env.auth.SignIn(context.Background(), connect.NewRequest(&api.SignInRequest{
		Email:    "asha@example.com",
		Password: "password123",
	}))
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if resp.Msg.User.Name != "Asha" {
		t.Errorf("name: expected the registered name, got %q", resp.Msg.User.Name)
	}
}

func TestRegister_Errors(t *testing.T) {
	env := setupTestServer(t)
	env.signUp(t, "Asha")

	tests := []struct {
		name string
		req  *api.RegisterRequest
		want connect.Code
	}{
		{"duplicate email", &api.RegisterRequest{Email: "ASHA@example.com", Password: "password123"}, connect.CodeAlreadyExists},
		{"weak password", &api.RegisterRequest{Email: "new@example.com", Password: "short"}, connect.CodeInvalidArgument},
		{"missing email", &api.RegisterRequest{Email: " ", Password: "password123"}, connect.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Register(context.Background(), connect.NewRequest(tt.req))
			assertCode(t, err, tt.want)
		})
	}
}

func TestSignIn(t *testing.T) {
	env := setupTestServer(t)
	asha := env.signUp(t, "Asha")

	resp, err := env.auth.SignIn(context.Background(), connect.NewRequest(&api.SignInRequest{
		Email:    "asha@example.com",
		Password: "password123",
	}))
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if resp.Msg.User.UID != asha.uid {
		t.Errorf("uid: expected %s, got %s", asha.uid, resp.Msg.User.UID)
	}
	if resp.Msg.User.Name != "Asha" {
		t.Errorf("sign-in must keep the stored name, got %q", resp.Msg.User.Name)
	}

	_, err = env.auth.SignIn(context.Background(), connect.NewRequest(&api.SignInRequest{
		Email:    "asha@example.com",
		Password: "wrong password",
	}))
	assertCode(t, err, connect.CodeUnauthenticated)
}

func TestGetCurrentUser(t *testing.T) {
	env := setupTestServer(t)
	asha := env.signUp(t, "Asha")

	resp, err := env.auth.GetCurrentUser(context.Background(), authed(asha, &api.GetCurrentUserRequest{}))
	if err != nil {
		t.Fatalf("GetCurrentUser failed: %v", err)
	}
	if resp.Msg.User.UID != asha.uid || resp.Msg.User.Name != "Asha" {
		t.Errorf("unexpected user: %+v", resp.Msg.User)
	}

	_, err = env.auth.GetCurrentUser(context.Background(), connect.NewRequest(&api.GetCurrentUserRequest{}))
	assertCode(t, err, connect.CodeUnauthenticated)
}

func TestSignOut(t *testing.T) {
	env := setupTestServer(t)
	asha := env.signUp(t, "Asha")

	if _, err := env.auth.SignOut(context.Background(), authed(asha, &api.SignOutRequest{})); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}

	_, err := env.auth.GetCurrentUser(context.Background(), authed(asha, &api.GetCurrentUserRequest{}))
	assertCode(t, err, connect.CodeUnauthenticated)

	// A fresh process loads the sign-out from the store.
	reloaded, err := auth.LoadRevocationList(context.Background(), env.store)
	if err != nil {
		t.Fatalf("LoadRevocationList failed: %v", err)
	}
	restarted := auth.NewJWTManager("test-secret", time.Hour, reloaded)
	if _, err := restarted.Validate(asha.token); !errors.Is(err, auth.ErrRevokedToken) {
		t.Errorf("expected ErrRevokedToken after reload, got %v", err)
	}
}
