package hive

import (
	"context"
	"fmt"
	"sync"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/beltran/gohive/hiveserver"

	"github.com/ajitpratap0/indexima/pkg/errors"
)

// DefaultFetchSize is the number of rows requested per fetch round trip
const DefaultFetchSize = 1000

// service is the subset of TCLIService the client calls
type service interface {
	OpenSession(ctx context.Context, req *hiveserver.TOpenSessionReq) (*hiveserver.TOpenSessionResp, error)
	CloseSession(ctx context.Context, req *hiveserver.TCloseSessionReq) (*hiveserver.TCloseSessionResp, error)
	ExecuteStatement(ctx context.Context, req *hiveserver.TExecuteStatementReq) (*hiveserver.TExecuteStatementResp, error)
	FetchResults(ctx context.Context, req *hiveserver.TFetchResultsReq) (*hiveserver.TFetchResultsResp, error)
	CloseOperation(ctx context.Context, req *hiveserver.TCloseOperationReq) (*hiveserver.TCloseOperationResp, error)
}

// ThriftClient opens HiveServer2 sessions over the TCLIService protocol
type ThriftClient struct {
	// FetchSize defaults to DefaultFetchSize
	FetchSize int64

	// newService is replaced in tests
	newService func(t thrift.TTransport) service
}

var _ Client = (*ThriftClient)(nil)

// NewThriftClient creates a client using the binary protocol
func NewThriftClient() *ThriftClient {
	return &ThriftClient{FetchSize: DefaultFetchSize}
}

func (c *ThriftClient) dial(t thrift.TTransport) service {
	if c.newService != nil {
		return c.newService(t)
	}
	return hiveserver.NewTCLIServiceClientFactory(t, thrift.NewTBinaryProtocolFactoryConf(nil))
}

// Open implements Client
func (c *ThriftClient) Open(ctx context.Context, opts OpenOptions) (Conn, error) {
	if opts.Transport == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "no transport to open a session on")
	}

	if !opts.Transport.IsOpen() {
		if err := opts.Transport.Open(); err != nil {
			// a SASL transport may fail after the socket is dialed
			_ = opts.Transport.Close()
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to open transport").
				WithDetail("host", opts.Host).
				WithDetail("port", opts.Port)
		}
	}

	svc := c.dial(opts.Transport)

	req := hiveserver.NewTOpenSessionReq()
	req.ClientProtocol = hiveserver.TProtocolVersion_HIVE_CLI_SERVICE_PROTOCOL_V6
	req.Configuration = opts.Configuration
	if opts.Username != "" {
		req.Username = &opts.Username
	}
	if opts.Password != "" {
		req.Password = &opts.Password
	}

	resp, err := svc.OpenSession(ctx, req)
	if err == nil {
		err = checkStatus(resp.GetStatus())
	}
	if err != nil {
		_ = opts.Transport.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to open session").
			WithDetail("host", opts.Host).
			WithDetail("port", opts.Port)
	}

	fetchSize := c.FetchSize
	if fetchSize <= 0 {
		fetchSize = DefaultFetchSize
	}

	conn := &thriftConn{
		svc:       svc,
		transport: opts.Transport,
		session:   resp.GetSessionHandle(),
		fetchSize: fetchSize,
	}

	if opts.Database != "" {
		cur := conn.Cursor()
		err := cur.Execute(ctx, fmt.Sprintf("USE `%s`", opts.Database))
		_ = cur.Close()
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	return conn, nil
}

type thriftConn struct {
	svc       service
	transport thrift.TTransport
	session   *hiveserver.TSessionHandle
	fetchSize int64

	mu     sync.Mutex
	closed bool
}

func (c *thriftConn) Cursor() Cursor {
	return &thriftCursor{conn: c}
}

func (c *thriftConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	req := hiveserver.NewTCloseSessionReq()
	req.SessionHandle = c.session
	resp, err := c.svc.CloseSession(context.Background(), req)
	if err == nil {
		err = checkStatus(resp.GetStatus())
	}
	if cerr := c.transport.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to close session")
	}
	return nil
}

func (c *thriftConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type thriftCursor struct {
	conn      *thriftConn
	operation *hiveserver.TOperationHandle
	buffer    []Row
	finished  bool
}

func (c *thriftCursor) Execute(ctx context.Context, sql string) error {
	if c.conn.isClosed() {
		return errors.New(errors.ErrorTypeExecution, "session is closed")
	}
	if err := c.closeOperation(ctx); err != nil {
		return err
	}

	req := hiveserver.NewTExecuteStatementReq()
	req.SessionHandle = c.conn.session
	req.Statement = sql
	req.RunAsync = false

	resp, err := c.conn.svc.ExecuteStatement(ctx, req)
	if err == nil {
		err = checkStatus(resp.GetStatus())
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to execute statement").
			WithDetail("sql", sql)
	}

	c.operation = resp.GetOperationHandle()
	c.buffer = nil
	c.finished = c.operation == nil || !c.operation.GetHasResultSet()
	return nil
}

func (c *thriftCursor) FetchOne(ctx context.Context) (Row, error) {
	if c.operation == nil {
		return nil, errors.New(errors.ErrorTypeExecution, "no statement executed")
	}

	for len(c.buffer) == 0 && !c.finished {
		if err := c.fetch(ctx); err != nil {
			return nil, err
		}
	}
	if len(c.buffer) == 0 {
		return nil, nil
	}

	row := c.buffer[0]
	c.buffer = c.buffer[1:]
	return row, nil
}

// fetch requests the next batch. HasMoreRows is unreliable on several
// servers so the result is finished when a batch comes back empty.
func (c *thriftCursor) fetch(ctx context.Context) error {
	req := hiveserver.NewTFetchResultsReq()
	req.OperationHandle = c.operation
	req.Orientation = hiveserver.TFetchOrientation_FETCH_NEXT
	req.MaxRows = c.conn.fetchSize

	resp, err := c.conn.svc.FetchResults(ctx, req)
	if err == nil {
		err = checkStatus(resp.GetStatus())
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to fetch results")
	}

	rows := columnsToRows(resp.GetResults())
	if len(rows) == 0 {
		c.finished = true
	}
	c.buffer = append(c.buffer, rows...)
	return nil
}

func (c *thriftCursor) Close() error {
	return c.closeOperation(context.Background())
}

func (c *thriftCursor) closeOperation(ctx context.Context) error {
	if c.operation == nil {
		return nil
	}
	op := c.operation
	c.operation = nil
	c.buffer = nil

	if c.conn.isClosed() {
		return nil
	}

	req := hiveserver.NewTCloseOperationReq()
	req.OperationHandle = op
	resp, err := c.conn.svc.CloseOperation(ctx, req)
	if err == nil {
		err = checkStatus(resp.GetStatus())
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to close operation")
	}
	return nil
}

func checkStatus(status *hiveserver.TStatus) error {
	if status == nil {
		return errors.New(errors.ErrorTypeQuery, "response carries no status")
	}
	switch status.GetStatusCode() {
	case hiveserver.TStatusCode_SUCCESS_STATUS, hiveserver.TStatusCode_SUCCESS_WITH_INFO_STATUS:
		return nil
	}
	return errors.New(errors.ErrorTypeQuery, status.GetErrorMessage()).
		WithDetail("status", status.GetStatusCode().String()).
		WithDetail("sql_state", status.GetSqlState())
}

// columnsToRows transposes a columnar row set
func columnsToRows(set *hiveserver.TRowSet) []Row {
	if set == nil || len(set.GetColumns()) == 0 {
		return nil
	}

	columns := make([][]interface{}, len(set.GetColumns()))
	n := 0
	for i, col := range set.GetColumns() {
		columns[i] = columnValues(col)
		if len(columns[i]) > n {
			n = len(columns[i])
		}
	}

	rows := make([]Row, n)
	for r := range rows {
		row := make(Row, len(columns))
		for c, values := range columns {
			if r < len(values) {
				row[c] = values[r]
			}
		}
		rows[r] = row
	}
	return rows
}

func columnValues(col *hiveserver.TColumn) []interface{} {
	switch {
	case col.IsSetStringVal():
		return collect(col.StringVal.Values, col.StringVal.Nulls)
	case col.IsSetI64Val():
		return collect(col.I64Val.Values, col.I64Val.Nulls)
	case col.IsSetI32Val():
		return collect(col.I32Val.Values, col.I32Val.Nulls)
	case col.IsSetI16Val():
		return collect(col.I16Val.Values, col.I16Val.Nulls)
	case col.IsSetByteVal():
		return collect(col.ByteVal.Values, col.ByteVal.Nulls)
	case col.IsSetDoubleVal():
		return collect(col.DoubleVal.Values, col.DoubleVal.Nulls)
	case col.IsSetBoolVal():
		return collect(col.BoolVal.Values, col.BoolVal.Nulls)
	case col.IsSetBinaryVal():
		return collect(col.BinaryVal.Values, col.BinaryVal.Nulls)
	}
	return nil
}

func collect[T any](values []T, nulls []byte) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		if isNull(nulls, i) {
			continue
		}
		out[i] = v
	}
	return out
}

func isNull(nulls []byte, i int) bool {
	b := i / 8
	return b < len(nulls) && nulls[b]&(1<<(uint(i)%8)) != 0
}
