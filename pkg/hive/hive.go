// Package hive defines the narrow client surface the connector needs from a
// HiveServer2-compatible server: open a session, execute a statement, fetch
// rows, close. ThriftClient implements it over the TCLIService protocol;
// hivetest provides an in-memory fake.
package hive

import (
	"context"

	"github.com/apache/thrift/lib/go/thrift"
)

// Row is one result row, in column order
type Row []interface{}

// OpenOptions describes the session to open
type OpenOptions struct {
	Host string
	Port int
	// Database is selected with USE after the session opens when set
	Database string
	// Transport is opened by the client if it is not open yet
	Transport thrift.TTransport
	// Configuration is sent with the open session request
	Configuration map[string]string
	Username      string
	Password      string
}

// Client opens sessions
type Client interface {
	Open(ctx context.Context, opts OpenOptions) (Conn, error)
}

// Conn is an open session
type Conn interface {
	// Cursor returns a new cursor bound to the session
	Cursor() Cursor
	// Close closes the session and its transport
	Close() error
}

// Cursor executes statements and iterates their results
type Cursor interface {
	Execute(ctx context.Context, sql string) error
	// FetchOne returns the next row, or nil when the result is exhausted
	FetchOne(ctx context.Context) (Row, error)
	Close() error
}

// FetchAll drains the cursor
func FetchAll(ctx context.Context, c Cursor) ([]Row, error) {
	var rows []Row
	for {
		row, err := c.FetchOne(ctx)
		if err != nil {
			return rows, err
		}
		if row == nil {
			return rows, nil
		}
		rows = append(rows, row)
	}
}
