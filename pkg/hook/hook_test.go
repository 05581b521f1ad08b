package hook

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/ajitpratap0/indexima/pkg/config"
	"github.com/ajitpratap0/indexima/pkg/connection"
	"github.com/ajitpratap0/indexima/pkg/errors"
	"github.com/ajitpratap0/indexima/pkg/hive"
	"github.com/ajitpratap0/indexima/pkg/hive/hivetest"
	"github.com/ajitpratap0/indexima/pkg/testutil"
)

const connID = "indexima_test"

func testRegistry() *connection.StaticRegistry {
	return connection.NewStaticRegistry(&connection.Connection{
		ID:       connID,
		Host:     "indexima.local",
		Login:    "admin",
		Password: "secret",
		Schema:   "analytics",
		Extra:    `{"region":"eu"}`,
	})
}

func newTestHook(t *testing.T, cfg config.HookConfig, opts ...Option) (*Hook, *hivetest.FakeClient) {
	t.Helper()
	if cfg.ConnectionID == "" {
		cfg.ConnectionID = connID
	}
	client := hivetest.NewFakeClient()
	opts = append([]Option{WithLogger(testutil.TestLogger(t))}, opts...)
	return New(cfg, testRegistry(), client, opts...), client
}

func TestHook_LazyOpen(t *testing.T) {
	ctx := context.Background()
	h, client := newTestHook(t, config.HookConfig{})

	assert.Equal(t, StateUnopened, h.State())
	assert.Equal(t, 0, client.OpenCount())

	_, err := h.Run(ctx, "SELECT 1")
	require.NoError(t, err)
	_, err = h.Run(ctx, "SELECT 2")
	require.NoError(t, err)

	assert.Equal(t, StateOpen, h.State())
	assert.Equal(t, 1, client.OpenCount())
	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, client.Statements())

	opens := client.Opens()
	require.Len(t, opens, 1)
	assert.Equal(t, "indexima.local", opens[0].Host)
	assert.Equal(t, 10000, opens[0].Port)
	assert.Equal(t, "analytics", opens[0].Database)
	assert.Equal(t, "admin", opens[0].Username)
	assert.Equal(t, DefaultConfiguration(), opens[0].Configuration)
	assert.NotNil(t, opens[0].Transport)
	assert.False(t, opens[0].Transport.IsOpen())
}

func TestHook_SchemaOverride(t *testing.T) {
	h, client := newTestHook(t, config.HookConfig{Schema: "staging"})

	_, err := h.GetConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "staging", client.Opens()[0].Database)
}

func TestHook_UnknownConnection(t *testing.T) {
	h, client := newTestHook(t, config.HookConfig{ConnectionID: "missing"})

	_, err := h.Run(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.True(t, connection.IsNotFound(err))
	assert.Contains(t, err.Error(), "no connection identifier found with missing")
	assert.Equal(t, StateUnopened, h.State())
	assert.Equal(t, 0, client.OpenCount())
}

func TestHook_InvalidAuthParameters(t *testing.T) {
	registry := connection.NewStaticRegistry(&connection.Connection{ID: connID, Host: "h", Login: "admin"})
	h := New(config.HookConfig{ConnectionID: connID, Auth: "LDAP"}, registry, hivetest.NewFakeClient(),
		WithLogger(testutil.TestLogger(t)))

	_, err := h.GetConnection(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestHook_NoTransportMatch(t *testing.T) {
	registry := connection.NewStaticRegistry(&connection.Connection{ID: connID, Host: "h"})
	h := New(config.HookConfig{ConnectionID: connID, Auth: "NONE"}, registry, hivetest.NewFakeClient(),
		WithLogger(testutil.TestLogger(t)))

	_, err := h.GetConnection(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestHook_NoSASLWithoutCredentials(t *testing.T) {
	registry := connection.NewStaticRegistry(&connection.Connection{
		ID: connID, Host: "h", Extra: `{"auth":"NOSASL","timeout_seconds":5}`,
	})
	client := hivetest.NewFakeClient()
	h := New(config.HookConfig{ConnectionID: connID}, registry, client, WithLogger(testutil.TestLogger(t)))

	_, err := h.GetConnection(context.Background())
	require.NoError(t, err)
	assert.Empty(t, client.Opens()[0].Username)
}

func TestHook_DecoratorSeesMergedSettings(t *testing.T) {
	var seen *connection.Connection
	spy := connection.DecoratorFunc(func(_ context.Context, c *connection.Connection) (*connection.Connection, error) {
		seen = c.Clone()
		c.Login = "vault-user"
		return c, nil
	})

	keepalive := true
	h, client := newTestHook(t, config.HookConfig{
		Auth:            "CUSTOM",
		Timeout:         90 * time.Second,
		SocketKeepalive: &keepalive,
	}, WithDecorator(spy))

	_, err := h.GetConnection(context.Background())
	require.NoError(t, err)

	require.NotNil(t, seen)
	assert.JSONEq(t, `{"region":"eu","auth":"CUSTOM","timeout_seconds":90,"socket_keepalive":true}`, seen.Extra)
	assert.Equal(t, "vault-user", client.Opens()[0].Username)
}

func TestHook_DecoratorFailure(t *testing.T) {
	failing := connection.DecoratorFunc(func(context.Context, *connection.Connection) (*connection.Connection, error) {
		return nil, errors.New(errors.ErrorTypeConnection, "vault sealed")
	})
	h, _ := newTestHook(t, config.HookConfig{}, WithDecorator(failing))

	_, err := h.GetConnection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault sealed")
}

func TestHook_DecoratorReturnsNoConnection(t *testing.T) {
	empty := connection.DecoratorFunc(func(context.Context, *connection.Connection) (*connection.Connection, error) {
		return nil, nil
	})
	h, client := newTestHook(t, config.HookConfig{}, WithDecorator(empty))

	_, err := h.GetConnection(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.Equal(t, 0, client.OpenCount())
	assert.Equal(t, StateUnopened, h.State())
}

func TestHook_LogFields(t *testing.T) {
	log, logs := testutil.ObservedLogger(zapcore.InfoLevel)
	h, _ := newTestHook(t, config.HookConfig{DryRun: true}, WithLogger(log))

	_, err := h.Run(context.Background(), "SELECT 1")
	require.NoError(t, err)

	require.NotZero(t, logs.Len())
	for _, entry := range logs.All() {
		counts := map[string]int{}
		for _, f := range entry.Context {
			counts[f.Key]++
		}
		assert.Equal(t, 1, counts["connection_id"], entry.Message)
		assert.Equal(t, 1, counts["session_id"], entry.Message)
		assert.Equal(t, connID, entry.ContextMap()["connection_id"])
		assert.Equal(t, h.SessionID(), entry.ContextMap()["session_id"])
	}
}

func TestHook_DryRun(t *testing.T) {
	ctx := context.Background()
	log, logs := testutil.ObservedLogger(zapcore.WarnLevel)
	h, client := newTestHook(t, config.HookConfig{DryRun: true}, WithLogger(log))

	assert.True(t, h.IsDryRun())

	cursor, err := h.Run(ctx, "SELECT 1")
	require.NoError(t, err)
	assert.NotNil(t, cursor)

	require.NoError(t, h.Commit(ctx, "sales"))
	require.NoError(t, h.Rollback(ctx, "sales"))
	require.NoError(t, h.Pause(ctx, time.Second))
	require.NoError(t, h.CheckLoadErrors(ctx, cursor))

	assert.Empty(t, client.Statements(), "nothing reaches the server")

	var messages []string
	for _, entry := range logs.All() {
		messages = append(messages, entry.Message)
	}
	assert.Equal(t, []string{"SELECT 1", "COMMIT sales", "ROLLBACK sales", "PAUSE 1000"}, messages)
}

func TestHook_Statements(t *testing.T) {
	ctx := context.Background()
	h, client := newTestHook(t, config.HookConfig{})

	require.NoError(t, h.Commit(ctx, "sales"))
	require.NoError(t, h.Rollback(ctx, "sales"))
	require.NoError(t, h.Pause(ctx, 1500*time.Millisecond))

	assert.Equal(t, []string{"COMMIT sales", "ROLLBACK sales", "PAUSE 1500"}, client.Statements())
}

func TestHook_RunFailure(t *testing.T) {
	h, client := newTestHook(t, config.HookConfig{})
	client.FailOn("SELEC 1", assert.AnError)

	_, err := h.Run(context.Background(), "SELEC 1")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeQuery))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestHook_GetRecords(t *testing.T) {
	ctx := context.Background()
	h, client := newTestHook(t, config.HookConfig{})
	client.SetResult("SHOW TABLES", hive.Row{"sales"}, hive.Row{"users"})

	cursor, err := h.GetRecords(ctx, "SHOW TABLES")
	require.NoError(t, err)

	rows, err := hive.FetchAll(ctx, cursor)
	require.NoError(t, err)
	assert.Equal(t, []hive.Row{{"sales"}, {"users"}}, rows)
}

func TestHook_CheckLoadErrors(t *testing.T) {
	ctx := context.Background()
	load := "LOAD DATA INPATH 's3://b/p' \nINTO TABLE sales;"

	t.Run("errors are aggregated", func(t *testing.T) {
		h, client := newTestHook(t, config.HookConfig{})
		client.SetResult(load,
			hive.Row{"p1", int64(10), int64(0), ""},
			hive.Row{"p2", int64(5), int64(2), "bad"},
			hive.Row{"p3", int64(1), int64(1), "worse"},
		)

		cursor, err := h.Run(ctx, load)
		require.NoError(t, err)

		err = h.CheckLoadErrors(ctx, cursor)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeLoadData))
		assert.Contains(t, err.Error(), "(p2, 5, 2: bad")
		assert.Contains(t, err.Error(), "(p3, 1, 1: worse")
		assert.NotContains(t, err.Error(), "p1")
	})

	t.Run("no errors", func(t *testing.T) {
		h, client := newTestHook(t, config.HookConfig{})
		client.SetResult(load,
			hive.Row{"p1", int64(10), int64(0), ""},
			hive.Row{"p2", int64(5), int64(0), ""},
		)

		cursor, err := h.Run(ctx, load)
		require.NoError(t, err)
		assert.NoError(t, h.CheckLoadErrors(ctx, cursor))
	})

	t.Run("empty result", func(t *testing.T) {
		h, _ := newTestHook(t, config.HookConfig{})
		cursor, err := h.Run(ctx, load)
		require.NoError(t, err)
		assert.NoError(t, h.CheckLoadErrors(ctx, cursor))
	})

	t.Run("malformed row", func(t *testing.T) {
		h, client := newTestHook(t, config.HookConfig{})
		client.SetResult(load, hive.Row{"p1", int64(10)})

		cursor, err := h.Run(ctx, load)
		require.NoError(t, err)
		err = h.CheckLoadErrors(ctx, cursor)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeQuery))
		assert.Contains(t, err.Error(), "unexpected load result row with 2 columns")
	})

	t.Run("string counts", func(t *testing.T) {
		h, client := newTestHook(t, config.HookConfig{})
		client.SetResult(load, hive.Row{"p1", "10", "3", "bad"})

		cursor, err := h.Run(ctx, load)
		require.NoError(t, err)
		assert.Error(t, h.CheckLoadErrors(ctx, cursor))
	})
}

func TestHook_CloseIsTerminal(t *testing.T) {
	ctx := context.Background()
	h, client := newTestHook(t, config.HookConfig{})

	_, err := h.Run(ctx, "SELECT 1")
	require.NoError(t, err)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	assert.Equal(t, StateClosed, h.State())
	assert.Equal(t, 1, client.CloseCount())

	_, err = h.Run(ctx, "SELECT 1")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeExecution))

	assert.Error(t, h.Reconnect(ctx))
}

func TestHook_CloseUnopened(t *testing.T) {
	h, client := newTestHook(t, config.HookConfig{})
	require.NoError(t, h.Close())
	assert.Equal(t, StateClosed, h.State())
	assert.Equal(t, 0, client.CloseCount())
}

func TestHook_Reconnect(t *testing.T) {
	ctx := context.Background()
	h, client := newTestHook(t, config.HookConfig{})

	_, err := h.GetConnection(ctx)
	require.NoError(t, err)
	require.NoError(t, h.Reconnect(ctx))

	assert.Equal(t, StateOpen, h.State())
	assert.Equal(t, 2, client.OpenCount())
	assert.Equal(t, 1, client.CloseCount())
}

func TestHook_WithSession(t *testing.T) {
	ctx := context.Background()

	t.Run("normal return", func(t *testing.T) {
		h, client := newTestHook(t, config.HookConfig{})
		err := h.WithSession(ctx, func(ctx context.Context, h *Hook) error {
			assert.Equal(t, StateOpen, h.State())
			_, err := h.Run(ctx, "SELECT 1")
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, StateClosed, h.State())
		assert.Equal(t, 1, client.CloseCount())
	})

	t.Run("error", func(t *testing.T) {
		h, client := newTestHook(t, config.HookConfig{})
		err := h.WithSession(ctx, func(context.Context, *Hook) error {
			return assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, StateClosed, h.State())
		assert.Equal(t, 1, client.CloseCount())
	})

	t.Run("panic", func(t *testing.T) {
		h, client := newTestHook(t, config.HookConfig{})
		assert.Panics(t, func() {
			_ = h.WithSession(ctx, func(context.Context, *Hook) error {
				panic("boom")
			})
		})
		assert.Equal(t, StateClosed, h.State())
		assert.Equal(t, 1, client.CloseCount())
	})

	t.Run("open failure", func(t *testing.T) {
		h, _ := newTestHook(t, config.HookConfig{ConnectionID: "missing"})
		called := false
		err := h.WithSession(ctx, func(context.Context, *Hook) error {
			called = true
			return nil
		})
		assert.True(t, connection.IsNotFound(err))
		assert.False(t, called)
		assert.Equal(t, StateClosed, h.State())
	})
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "UNOPENED", StateUnopened.String())
	assert.Equal(t, "OPEN", StateOpen.String())
	assert.Equal(t, "CLOSED", StateClosed.String())
	assert.True(t, strings.HasPrefix(State(9).String(), "State("))
}
