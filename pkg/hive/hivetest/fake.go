// Package hivetest provides an in-memory hive.Client for tests
package hivetest

import (
	"context"
	"sync"

	"github.com/ajitpratap0/indexima/pkg/errors"
	"github.com/ajitpratap0/indexima/pkg/hive"
)

// FakeClient records sessions and statements and replays canned results
type FakeClient struct {
	mu sync.Mutex

	results map[string][]hive.Row
	errs    map[string]error

	// OpenErr is returned by Open when set
	OpenErr error

	opens    []hive.OpenOptions
	executed []string
	closes   int
}

var _ hive.Client = (*FakeClient)(nil)

// NewFakeClient creates an empty fake
func NewFakeClient() *FakeClient {
	return &FakeClient{
		results: make(map[string][]hive.Row),
		errs:    make(map[string]error),
	}
}

// SetResult makes sql return rows
func (f *FakeClient) SetResult(sql string, rows ...hive.Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[sql] = rows
}

// FailOn makes executing sql return err
func (f *FakeClient) FailOn(sql string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[sql] = err
}

// Statements returns every executed statement, failed ones included
func (f *FakeClient) Statements() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.executed...)
}

// Opens returns the options of every opened session
func (f *FakeClient) Opens() []hive.OpenOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]hive.OpenOptions(nil), f.opens...)
}

// OpenCount is the number of opened sessions
func (f *FakeClient) OpenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.opens)
}

// CloseCount is the number of closed sessions
func (f *FakeClient) CloseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

// Open implements hive.Client
func (f *FakeClient) Open(_ context.Context, opts hive.OpenOptions) (hive.Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	f.opens = append(f.opens, opts)
	return &fakeConn{client: f}, nil
}

type fakeConn struct {
	client *FakeClient
	closed bool
}

func (c *fakeConn) Cursor() hive.Cursor {
	return &fakeCursor{conn: c}
}

func (c *fakeConn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	c.client.mu.Lock()
	defer c.client.mu.Unlock()
	c.client.closes++
	return nil
}

type fakeCursor struct {
	conn     *fakeConn
	rows     []hive.Row
	executed bool
}

func (c *fakeCursor) Execute(_ context.Context, sql string) error {
	if c.conn.closed {
		return errors.New(errors.ErrorTypeExecution, "session is closed")
	}

	f := c.conn.client
	f.mu.Lock()
	defer f.mu.Unlock()

	f.executed = append(f.executed, sql)
	c.executed = true
	c.rows = nil
	if err, ok := f.errs[sql]; ok {
		return err
	}
	c.rows = append([]hive.Row(nil), f.results[sql]...)
	return nil
}

func (c *fakeCursor) FetchOne(context.Context) (hive.Row, error) {
	if !c.executed {
		return nil, errors.New(errors.ErrorTypeExecution, "no statement executed")
	}
	if len(c.rows) == 0 {
		return nil, nil
	}
	row := c.rows[0]
	c.rows = c.rows[1:]
	return row, nil
}

func (c *fakeCursor) Close() error {
	c.rows = nil
	return nil
}
