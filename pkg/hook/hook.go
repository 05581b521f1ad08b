// Package hook implements the session wrapper used by the operators. A Hook
// resolves a named connection, builds the transport its auth mode calls for
// and lazily opens one server session, through which statements are run.
//
// A Hook moves through three states:
//
//	UNOPENED --GetConnection/Run--> OPEN --Close--> CLOSED
//
// CLOSED is terminal. WithSession scopes a Hook so it is closed on every exit
// path:
//
//	h := hook.New(cfg, registry, hive.NewThriftClient())
//	err := h.WithSession(ctx, func(ctx context.Context, h *hook.Hook) error {
//	    _, err := h.Run(ctx, "SELECT 1")
//	    return err
//	})
package hook

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ajitpratap0/indexima/pkg/config"
	"github.com/ajitpratap0/indexima/pkg/connection"
	"github.com/ajitpratap0/indexima/pkg/errors"
	"github.com/ajitpratap0/indexima/pkg/hive"
	"github.com/ajitpratap0/indexima/pkg/logger"
	"github.com/ajitpratap0/indexima/pkg/metrics"
	"github.com/ajitpratap0/indexima/pkg/observability"
	"github.com/ajitpratap0/indexima/pkg/transport"
)

// Defaults applied when neither the hook nor the connection sets a value
const (
	DefaultTimeoutSeconds = 60
	DefaultAuth           = transport.AuthCustom
)

// State is the lifecycle state of a Hook
type State int

const (
	StateUnopened State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "UNOPENED"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// DefaultConfiguration returns the session configuration sent on open. The
// long idle and read timeouts keep sessions alive through multi-hour loads.
func DefaultConfiguration() map[string]string {
	return map[string]string{
		"hive.server.read.socket.timeout":           "3600000",
		"hive.server2.session.check.interval":       "3600000",
		"hive.server2.idle.session.check.operation": "true",
		"hive.server2.idle.operation.timeout":       "86400000",
		"hive.server2.idle.session.timeout":         "259200000",
	}
}

// Option configures a Hook
type Option func(*Hook)

// WithDecorator post-processes the connection after the hook settings are
// merged into it, e.g. to inject credentials from a secret store
func WithDecorator(d connection.Decorator) Option {
	return func(h *Hook) { h.decorator = d }
}

// WithLogger sets the base logger
func WithLogger(l *zap.Logger) Option {
	return func(h *Hook) { h.logger = l }
}

// Hook is a session wrapper around one named connection
type Hook struct {
	cfg       config.HookConfig
	registry  connection.Registry
	client    hive.Client
	decorator connection.Decorator
	logger    *zap.Logger
	metrics   *metrics.Collector
	sessionID string

	mu    sync.Mutex
	state State
	conn  hive.Conn
}

// New creates an unopened Hook. Nothing is resolved or dialed until the
// first GetConnection or Run.
func New(cfg config.HookConfig, registry connection.Registry, client hive.Client, opts ...Option) *Hook {
	h := &Hook{
		cfg:       cfg,
		registry:  registry,
		client:    client,
		metrics:   metrics.NewCollector(cfg.ConnectionID),
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get()
	}
	return h
}

// log returns the hook logger carrying the connection and session ids
func (h *Hook) log(ctx context.Context) *zap.Logger {
	return logger.FromContext(h.withIDs(ctx), h.logger)
}

func (h *Hook) withIDs(ctx context.Context) context.Context {
	ctx = logger.WithConnectionID(ctx, h.cfg.ConnectionID)
	return logger.WithSessionID(ctx, h.sessionID)
}

// ConnectionID returns the named connection the hook uses
func (h *Hook) ConnectionID() string { return h.cfg.ConnectionID }

// SessionID identifies the hook in logs
func (h *Hook) SessionID() string { return h.sessionID }

// IsDryRun reports whether statements are only logged
func (h *Hook) IsDryRun() bool { return h.cfg.DryRun }

// State returns the current lifecycle state
func (h *Hook) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// settings are the overrides merged into the connection extra
func (h *Hook) settings() connection.HiveSettings {
	var s connection.HiveSettings
	if h.cfg.Auth != "" {
		auth := h.cfg.Auth
		s.Auth = &auth
	}
	if h.cfg.KerberosServiceName != "" {
		name := h.cfg.KerberosServiceName
		s.KerberosServiceName = &name
	}
	s.TimeoutSeconds = h.cfg.TimeoutSeconds()
	if h.cfg.SocketKeepalive != nil {
		keepalive := *h.cfg.SocketKeepalive
		s.SocketKeepalive = &keepalive
	}
	return s
}

// GetConnection opens the session if needed and returns it
func (h *Hook) GetConnection(ctx context.Context) (hive.Conn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case StateOpen:
		return h.conn, nil
	case StateClosed:
		return nil, errors.New(errors.ErrorTypeExecution, "hook is closed").
			WithDetail("connection_id", h.cfg.ConnectionID)
	}

	conn, err := h.open(ctx)
	h.metrics.SessionOpened(err)
	if err != nil {
		return nil, err
	}
	h.conn = conn
	h.state = StateOpen
	return conn, nil
}

func (h *Hook) open(ctx context.Context) (_ hive.Conn, err error) {
	ctx, span := observability.StartSpan(ctx, "indexima.get_connection")
	defer func() { span.End(err) }()
	span.SetAttribute("connection.id", h.cfg.ConnectionID)

	log := h.log(ctx)

	conn, err := h.registry.Get(ctx, h.cfg.ConnectionID)
	if err != nil {
		return nil, err
	}
	if conn, err = connection.ApplyHiveSettings(conn, h.settings()); err != nil {
		return nil, err
	}
	if conn, err = connection.Apply(ctx, h.decorator, conn); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "connection decorator failed").
			WithDetail("connection_id", h.cfg.ConnectionID)
	}
	if conn == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "connection decorator returned no connection").
			WithDetail("connection_id", h.cfg.ConnectionID)
	}

	log.Info("connect to",
		zap.String("host", conn.Host),
		zap.String("login", conn.Login),
		zap.Int("port", conn.Port))

	settings, err := connection.ExtractHiveSettings(conn)
	if err != nil {
		return nil, err
	}

	opts := transport.Options{
		Socket: transport.SocketConfig{
			Host:           conn.Host,
			Port:           conn.Port,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		Auth: DefaultAuth,
	}
	if opts.Socket.Port == 0 {
		opts.Socket.Port = transport.DefaultPort
	}
	if settings.TimeoutSeconds != nil && *settings.TimeoutSeconds > 0 {
		opts.Socket.TimeoutSeconds = *settings.TimeoutSeconds
	}
	if settings.SocketKeepalive != nil {
		opts.Socket.SocketKeepalive = *settings.SocketKeepalive
	}
	if settings.Auth != nil && *settings.Auth != "" {
		opts.Auth = transport.AuthMode(*settings.Auth)
	}
	if conn.Login != "" {
		opts.Username = &conn.Login
	}
	if conn.Password != "" {
		opts.Password = &conn.Password
	}
	if settings.KerberosServiceName != nil && *settings.KerberosServiceName != "" {
		opts.KerberosServiceName = settings.KerberosServiceName
	}

	span.SetAttribute("auth", string(opts.Auth))
	span.SetAttribute("host", conn.Host)

	tr, err := transport.New(opts)
	if err != nil {
		log.Error("failed to build transport", zap.Error(err), zap.String("auth", string(opts.Auth)))
		return nil, err
	}

	database := h.cfg.Schema
	if database == "" {
		database = conn.Schema
	}

	hc, err := h.client.Open(ctx, hive.OpenOptions{
		Host:          conn.Host,
		Port:          opts.Socket.Port,
		Database:      database,
		Transport:     tr,
		Configuration: DefaultConfiguration(),
		Username:      conn.Login,
	})
	if err != nil {
		log.Error("failed to open session", zap.Error(err))
		return nil, err
	}
	return hc, nil
}

// Run executes sql, opening the session first when needed. In dry-run mode
// the statement is logged and the returned cursor was never executed.
func (h *Hook) Run(ctx context.Context, sql string) (_ hive.Cursor, err error) {
	conn, err := h.GetConnection(ctx)
	if err != nil {
		return nil, err
	}
	cursor := conn.Cursor()

	log := h.log(ctx)
	kind := metrics.StatementKind(sql)

	if h.cfg.DryRun {
		log.Warn(sql)
		h.metrics.RecordDryRun(kind)
		return cursor, nil
	}

	ctx, span := observability.StartSpan(ctx, "indexima.run")
	defer func() { span.End(err) }()
	span.SetAttribute("statement.kind", kind)

	log.Debug("execute", zap.String("sql", sql))
	timer := metrics.NewTimer(kind)
	err = cursor.Execute(ctx, sql)
	h.metrics.RecordStatement(kind, timer.Stop(), err)
	if err != nil {
		log.Error("statement failed", zap.String("kind", kind), zap.Error(err))
		_ = cursor.Close()
		return nil, asQueryError(err, sql)
	}
	return cursor, nil
}

// GetRecords is an alias of Run
func (h *Hook) GetRecords(ctx context.Context, sql string) (hive.Cursor, error) {
	return h.Run(ctx, sql)
}

// exec runs a statement whose result is not read
func (h *Hook) exec(ctx context.Context, sql string) error {
	cursor, err := h.Run(ctx, sql)
	if err != nil {
		return err
	}
	return cursor.Close()
}

// Commit issues COMMIT <table>
func (h *Hook) Commit(ctx context.Context, table string) error {
	return h.exec(ctx, "COMMIT "+table)
}

// Rollback issues ROLLBACK <table>
func (h *Hook) Rollback(ctx context.Context, table string) error {
	return h.exec(ctx, "ROLLBACK "+table)
}

// Pause asks the server to wait for d before serving the next statement
func (h *Hook) Pause(ctx context.Context, d time.Duration) error {
	return h.exec(ctx, "PAUSE "+strconv.FormatInt(d.Milliseconds(), 10))
}

// CheckLoadErrors reads the result of a load statement, one row per file
// shaped (path, inserts, errors, message), and fails with a single
// load_data error listing every file reported with errors.
func (h *Hook) CheckLoadErrors(ctx context.Context, cursor hive.Cursor) error {
	if h.cfg.DryRun {
		return nil
	}

	var (
		failures []error
		paths    []string
	)
	for {
		row, err := cursor.FetchOne(ctx)
		if err != nil {
			return err
		}
		if row == nil {
			break
		}
		if len(row) < 4 {
			return errors.Newf(errors.ErrorTypeQuery, "unexpected load result row with %d columns", len(row))
		}

		count, ok := toInt64(row[2])
		if !ok {
			return errors.Newf(errors.ErrorTypeQuery, "unexpected error count %v", row[2])
		}
		if count > 0 {
			failures = append(failures, fmt.Errorf("(%v, %v, %v: %v", row[0], row[1], row[2], row[3]))
			paths = append(paths, fmt.Sprint(row[0]))
		}
	}

	if len(failures) == 0 {
		return nil
	}

	h.metrics.RecordLoadErrors(len(failures))
	h.log(ctx).Error("load reported errors", zap.Strings("paths", paths))

	return errors.Wrap(multierr.Combine(failures...), errors.ErrorTypeLoadData,
		fmt.Sprintf("load failed on %d file(s)", len(failures))).
		WithDetail("paths", paths)
}

// Reconnect drops the current session, if any, and opens a fresh one
func (h *Hook) Reconnect(ctx context.Context) error {
	h.mu.Lock()
	if h.state == StateClosed {
		h.mu.Unlock()
		return errors.New(errors.ErrorTypeExecution, "hook is closed").
			WithDetail("connection_id", h.cfg.ConnectionID)
	}
	if h.state == StateOpen {
		if err := h.conn.Close(); err != nil {
			h.log(ctx).Warn("failed to close session before reconnecting", zap.Error(err))
		}
		h.metrics.SessionClosed()
		h.conn = nil
		h.state = StateUnopened
	}
	h.mu.Unlock()

	_, err := h.GetConnection(ctx)
	return err
}

// Close closes the session. The hook cannot be reopened afterwards.
func (h *Hook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == StateClosed {
		return nil
	}
	wasOpen := h.state == StateOpen
	h.state = StateClosed

	if !wasOpen {
		return nil
	}
	conn := h.conn
	h.conn = nil
	h.metrics.SessionClosed()
	if err := conn.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to close session")
	}
	return nil
}

// WithSession opens the session, runs fn and closes the hook whether fn
// returns normally, fails or panics
func (h *Hook) WithSession(ctx context.Context, fn func(ctx context.Context, h *Hook) error) (err error) {
	defer func() {
		err = multierr.Append(err, h.Close())
	}()

	if _, err = h.GetConnection(ctx); err != nil {
		return err
	}
	return fn(ctx, h)
}

// asQueryError keeps structured errors and wraps the others as query errors
func asQueryError(err error, sql string) error {
	var e *errors.Error
	if errors.As(err, &e) {
		return err
	}
	return errors.Wrap(err, errors.ErrorTypeQuery, "failed to execute statement").
		WithDetail("sql", sql)
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}
