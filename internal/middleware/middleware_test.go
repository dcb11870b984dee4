package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/tripsplit/internal/auth"
	"github.com/mmynk/tripsplit/internal/metrics"
	"github.com/mmynk/tripsplit/pkg/api"
)

const (
	whoAmIProcedure = "/test.v1.Echo/WhoAmI"
	publicProcedure = "/test.v1.Echo/Public"
	watchProcedure  = "/test.v1.Echo/Watch"
)

type echo struct {
	UserID string `json:"user_id"`
}

func whoAmI(ctx context.Context, _ *connect.Request[echo]) (*connect.Response[echo], error) {
	return connect.NewResponse(&echo{UserID: GetUserID(ctx)}), nil
}

func watch(ctx context.Context, _ *connect.Request[echo], stream *connect.ServerStream[echo]) error {
	return stream.Send(&echo{UserID: GetUserID(ctx)})
}

type testEnv struct {
	url      string
	jwt      *auth.JWTManager
	sessions *auth.SessionManager
}

func setup(t *testing.T, interceptors ...connect.Interceptor) testEnv {
	t.Helper()

	jwtManager := auth.NewJWTManager("secret", time.Hour, auth.NewRevocationList())
	sessions := auth.NewSessionManager(strings.Repeat("s", 32), false)

	all := append([]connect.Interceptor{NewAuthInterceptor(jwtManager, sessions, publicProcedure)}, interceptors...)
	opts := []connect.HandlerOption{api.WithJSON(), connect.WithInterceptors(all...)}

	mux := http.NewServeMux()
	mux.Handle(whoAmIProcedure, connect.NewUnaryHandler(whoAmIProcedure, whoAmI, opts...))
	mux.Handle(publicProcedure, connect.NewUnaryHandler(publicProcedure, whoAmI, opts...))
	mux.Handle(watchProcedure, connect.NewServerStreamHandler(watchProcedure, watch, opts...))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return testEnv{url: server.URL, jwt: jwtManager, sessions: sessions}
}

func call(t *testing.T, env testEnv, procedure string, header http.Header) (*connect.Response[echo], error) {
	t.Helper()
	client := connect.NewClient[echo, echo](http.DefaultClient, env.url+procedure, api.WithJSON())
	req := connect.NewRequest(&echo{})
	for k, v := range header {
		req.Header()[k] = v
	}
	return client.CallUnary(context.Background(), req)
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func TestAuthInterceptor_Unary(t *testing.T) {
	env := setup(t)
	token, err := env.jwt.Generate("uid-1", "a@example.com")
	require.NoError(t, err)

	t.Run("valid bearer token", func(t *testing.T) {
		resp, err := call(t, env, whoAmIProcedure, bearer(token))
		require.NoError(t, err)
		assert.Equal(t, "uid-1", resp.Msg.UserID)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := call(t, env, whoAmIProcedure, nil)
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("malformed header", func(t *testing.T) {
		_, err := call(t, env, whoAmIProcedure, http.Header{"Authorization": []string{"Token " + token}})
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("public procedure without token", func(t *testing.T) {
		resp, err := call(t, env, publicProcedure, nil)
		require.NoError(t, err)
		assert.Empty(t, resp.Msg.UserID)
	})

	t.Run("public procedure still sees a valid token", func(t *testing.T) {
		resp, err := call(t, env, publicProcedure, bearer(token))
		require.NoError(t, err)
		assert.Equal(t, "uid-1", resp.Msg.UserID)
	})

	t.Run("session cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, env.sessions.SetToken(rec, httptest.NewRequest(http.MethodGet, "/", nil), token))
		header := http.Header{}
		for _, c := range rec.Result().Cookies() {
			header.Add("Cookie", c.String())
		}
		resp, err := call(t, env, whoAmIProcedure, header)
		require.NoError(t, err)
		assert.Equal(t, "uid-1", resp.Msg.UserID)
	})

	t.Run("revoked token", func(t *testing.T) {
		revoked, _ := env.jwt.Generate("uid-2", "")
		claims, err := env.jwt.Validate(revoked)
		require.NoError(t, err)
		require.NoError(t, env.jwt.Revoke(context.Background(), claims))

		_, err = call(t, env, whoAmIProcedure, bearer(revoked))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})
}

func TestAuthInterceptor_Stream(t *testing.T) {
	env := setup(t)
	token, _ := env.jwt.Generate("uid-1", "")
	client := connect.NewClient[echo, echo](http.DefaultClient, env.url+watchProcedure, api.WithJSON())

	req := connect.NewRequest(&echo{})
	req.Header().Set("Authorization", "Bearer "+token)
	stream, err := client.CallServerStream(context.Background(), req)
	require.NoError(t, err)
	require.True(t, stream.Receive(), "expected a message: %v", stream.Err())
	assert.Equal(t, "uid-1", stream.Msg().UserID)
	stream.Close()

	stream, err = client.CallServerStream(context.Background(), connect.NewRequest(&echo{}))
	if err == nil {
		assert.False(t, stream.Receive())
		err = stream.Err()
		stream.Close()
	}
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}, whoAmIProcedure)
	env := setup(t, limiter.Interceptor())

	alice, _ := env.jwt.Generate("alice", "")
	bob, _ := env.jwt.Generate("bob", "")

	for i := 0; i < 2; i++ {
		_, err := call(t, env, whoAmIProcedure, bearer(alice))
		require.NoError(t, err)
	}
	_, err := call(t, env, whoAmIProcedure, bearer(alice))
	assert.Equal(t, connect.CodeResourceExhausted, connect.CodeOf(err))

	_, err = call(t, env, whoAmIProcedure, bearer(bob))
	assert.NoError(t, err, "limits are per user")

	_, err = call(t, env, publicProcedure, bearer(alice))
	assert.NoError(t, err, "other procedures are not limited")

	assert.Equal(t, 0, limiter.Sweep(time.Hour))
	assert.Equal(t, 2, limiter.Sweep(-time.Second))
}

func TestMetricsInterceptor(t *testing.T) {
	m := metrics.NewNop()
	env := setup(t, MetricsInterceptor(m), LoggingInterceptor())
	token, _ := env.jwt.Generate("uid-1", "")

	_, err := call(t, env, whoAmIProcedure, bearer(token))
	require.NoError(t, err)

	_, err = call(t, env, whoAmIProcedure, nil)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCRequests.WithLabelValues(whoAmIProcedure, "ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RPCRequests.WithLabelValues(whoAmIProcedure, "unauthenticated")),
		"auth runs before metrics here, so rejected calls are not counted")
}
