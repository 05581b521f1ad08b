// Package uri builds the JDBC load paths a LOAD DATA statement reads from
// when the source is another database rather than files:
//
//	jdbc:<type>://<host>:<port>/<schema>?user=<login>&password=<password>[&<key>=<value>...]
//
// Extra settings of the source connection are appended as query parameters
// in key order. Values are written as is, without escaping, because the
// server parses the path verbatim.
package uri

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ajitpratap0/indexima/pkg/connection"
	"github.com/ajitpratap0/indexima/pkg/errors"
)

// JDBC types with a shortcut
const (
	TypeRedshift   = "redshift"
	TypePostgreSQL = "postgresql"
)

// Generator builds a load path from a connection identifier
type Generator func(ctx context.Context, registry connection.Registry, connectionID string, decorator connection.Decorator) (string, error)

// Factory returns a load path; it is exposed to templates as a function
type Factory func(ctx context.Context) (string, error)

// JDBC resolves connectionID, decorates it when decorator is not nil and
// renders its load path
func JDBC(ctx context.Context, jdbcType string, registry connection.Registry, connectionID string, decorator connection.Decorator) (string, error) {
	if jdbcType == "" {
		return "", errors.New(errors.ErrorTypeValidation, "jdbc type is required")
	}
	conn, err := registry.Get(ctx, connectionID)
	if err != nil {
		return "", err
	}
	conn, err = connection.Apply(ctx, decorator, conn)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeConfig, "failed to decorate connection").
			WithDetail("connection_id", connectionID)
	}
	return Format(jdbcType, conn)
}

// Format renders the load path of conn
func Format(jdbcType string, conn *connection.Connection) (string, error) {
	extra, err := conn.ExtraDejson()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "jdbc:%s://%s:%d/%s?user=%s&password=%s",
		jdbcType, conn.Host, conn.Port, conn.Schema, conn.Login, conn.Password)

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "&%s=%v", k, extra[k])
	}
	return b.String(), nil
}

// Redshift is JDBC with the redshift type
func Redshift(ctx context.Context, registry connection.Registry, connectionID string, decorator connection.Decorator) (string, error) {
	return JDBC(ctx, TypeRedshift, registry, connectionID, decorator)
}

// PostgreSQL is JDBC with the postgresql type
func PostgreSQL(ctx context.Context, registry connection.Registry, connectionID string, decorator connection.Decorator) (string, error) {
	return JDBC(ctx, TypePostgreSQL, registry, connectionID, decorator)
}

// ForType returns the generator of jdbcType
func ForType(jdbcType string) Generator {
	return func(ctx context.Context, registry connection.Registry, connectionID string, decorator connection.Decorator) (string, error) {
		return JDBC(ctx, jdbcType, registry, connectionID, decorator)
	}
}

// DefineLoadPathFactory binds a generator to a connection and a decorator.
// The connection is resolved again on every call.
func DefineLoadPathFactory(registry connection.Registry, connectionID string, decorator connection.Decorator, generator Generator) Factory {
	return func(ctx context.Context) (string, error) {
		return generator(ctx, registry, connectionID, decorator)
	}
}
