package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/tripsplit/internal/auth"
	"github.com/mmynk/tripsplit/internal/live"
	"github.com/mmynk/tripsplit/internal/metrics"
	"github.com/mmynk/tripsplit/internal/middleware"
	"github.com/mmynk/tripsplit/internal/storage"
	"github.com/mmynk/tripsplit/internal/storage/sqlite"
	"github.com/mmynk/tripsplit/pkg/api"
)

type testEnv struct {
	store    storage.Store
	hub      *live.Hub
	jwt      *auth.JWTManager
	sessions *auth.SessionManager
	authSvc  *AuthService

	auth     api.AuthServiceClient
	groups   api.GroupServiceClient
	expenses api.ExpenseServiceClient
	balances api.BalanceServiceClient
}

type testUser struct {
	uid   string
	token string
}

// setupTestServer wires every service against a temp SQLite database
// behind a real HTTP server, the way the binary does.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	hub := live.NewHub()
	m := metrics.NewNop()
	revoked, err := auth.LoadRevocationList(context.Background(), store)
	if err != nil {
		t.Fatalf("failed to load revocations: %v", err)
	}
	jwtManager := auth.NewJWTManager("test-secret", time.Hour, revoked)
	sessions := auth.NewSessionManager(strings.Repeat("k", 32), false)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	authSvc := NewAuthService(auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost), jwtManager, store, logger)
	interceptors := connect.WithInterceptors(
		middleware.NewAuthInterceptor(jwtManager, sessions, PublicProcedures...),
		middleware.LoggingInterceptor(),
	)

	mux := http.NewServeMux()
	mux.Handle(api.NewAuthServiceHandler(authSvc, interceptors))
	mux.Handle(api.NewGroupServiceHandler(NewGroupService(store, hub, m, 0), interceptors))
	mux.Handle(api.NewExpenseServiceHandler(NewExpenseService(store, hub, m), interceptors))
	mux.Handle(api.NewBalanceServiceHandler(NewBalanceService(store, hub), interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{
		store:    store,
		hub:      hub,
		jwt:      jwtManager,
		sessions: sessions,
		authSvc:  authSvc,
		auth:     api.NewAuthServiceClient(server.Client(), server.URL),
		groups:   api.NewGroupServiceClient(server.Client(), server.URL),
		expenses: api.NewExpenseServiceClient(server.Client(), server.URL),
		balances: api.NewBalanceServiceClient(server.Client(), server.URL),
	}
}

func authed[T any](u testUser, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+u.token)
	return req
}

func (e *testEnv) signUp(t *testing.T, name string) testUser {
	t.Helper()
	resp, err := e.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Email:       strings.ToLower(name) + "@example.com",
		Password:    "password123",
		DisplayName: name,
	}))
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", name, err)
	}
	return testUser{uid: resp.Msg.User.UID, token: resp.Msg.Token}
}

func (e *testEnv) createGroup(t *testing.T, owner testUser, name string) *api.Group {
	t.Helper()
	resp, err := e.groups.CreateGroup(context.Background(), authed(owner, &api.CreateGroupRequest{Name: name}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return resp.Msg.Group
}

func (e *testEnv) join(t *testing.T, u testUser, code string) *api.JoinGroupResponse {
	t.Helper()
	resp, err := e.groups.JoinGroup(context.Background(), authed(u, &api.JoinGroupRequest{JoinCode: code}))
	if err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}
	return resp.Msg
}

func (e *testEnv) record(t *testing.T, u testUser, req *api.RecordExpenseRequest) *api.RecordExpenseResponse {
	t.Helper()
	resp, err := e.expenses.RecordExpense(context.Background(), authed(u, req))
	if err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}
	return resp.Msg
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected connect.Error, got %T: %v", err, err)
	}
	if connectErr.Code() != want {
		t.Errorf("expected %v, got %v (%v)", want, connectErr.Code(), err)
	}
}

func approx(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
