package transport

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/apache/thrift/lib/go/thrift"
)

// DefaultPort is the HiveServer2 binary port
const DefaultPort = 10000

// keepAlivePeriod is the TCP keepalive probe interval when keepalive is on
const keepAlivePeriod = 30 * time.Second

// SocketConfig describes the TCP socket under a transport
type SocketConfig struct {
	Host string
	// Port defaults to DefaultPort when zero
	Port int
	// TimeoutSeconds applies to connect, read and write when positive
	TimeoutSeconds int
	// SocketKeepalive enables TCP keepalive; off by default
	SocketKeepalive bool
}

// Socket is a thrift.TTransport over TCP that dials on Open. Unlike
// thrift.TSocket it controls TCP keepalive.
type Socket struct {
	host      string
	port      int
	timeout   time.Duration
	keepalive bool

	conn *thrift.TSocket
}

var _ thrift.TTransport = (*Socket)(nil)

// NewSocket creates an unconnected socket
func NewSocket(cfg SocketConfig) *Socket {
	s := &Socket{
		host:      cfg.Host,
		port:      cfg.Port,
		keepalive: cfg.SocketKeepalive,
	}
	if s.port == 0 {
		s.port = DefaultPort
	}
	if cfg.TimeoutSeconds > 0 {
		s.timeout = time.Duration(cfg.TimeoutSeconds*1000) * time.Millisecond
	}
	return s
}

// Host returns the remote host
func (s *Socket) Host() string { return s.host }

// Port returns the remote port
func (s *Socket) Port() int { return s.port }

// Addr returns host:port
func (s *Socket) Addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

// TimeoutMillis returns the socket timeout in milliseconds, 0 when unset
func (s *Socket) TimeoutMillis() int64 {
	return s.timeout.Milliseconds()
}

// KeepAlive reports whether TCP keepalive is enabled
func (s *Socket) KeepAlive() bool { return s.keepalive }

// Open dials the server
func (s *Socket) Open() error {
	if s.IsOpen() {
		return thrift.NewTTransportException(thrift.ALREADY_OPEN, "socket already connected")
	}
	if s.host == "" {
		return thrift.NewTTransportException(thrift.NOT_OPEN, "cannot open socket without host")
	}

	dialer := net.Dialer{Timeout: s.timeout, KeepAlive: -1}
	if s.keepalive {
		dialer.KeepAlive = keepAlivePeriod
	}

	conn, err := dialer.Dial("tcp", s.Addr())
	if err != nil {
		return thrift.NewTTransportException(thrift.NOT_OPEN, err.Error())
	}

	s.conn = thrift.NewTSocketFromConnConf(conn, &thrift.TConfiguration{
		ConnectTimeout: s.timeout,
		SocketTimeout:  s.timeout,
	})
	return nil
}

// IsOpen reports whether the socket is connected
func (s *Socket) IsOpen() bool {
	return s.conn != nil && s.conn.IsOpen()
}

// Close closes the connection; closing an unopened socket is a no-op
func (s *Socket) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Read implements io.Reader
func (s *Socket) Read(p []byte) (int, error) {
	if s.conn == nil {
		return 0, notOpen()
	}
	return s.conn.Read(p)
}

// Write implements io.Writer
func (s *Socket) Write(p []byte) (int, error) {
	if s.conn == nil {
		return 0, notOpen()
	}
	return s.conn.Write(p)
}

// Flush implements thrift.TTransport
func (s *Socket) Flush(ctx context.Context) error {
	if s.conn == nil {
		return notOpen()
	}
	return s.conn.Flush(ctx)
}

// RemainingBytes implements thrift.TTransport
func (s *Socket) RemainingBytes() uint64 {
	if s.conn == nil {
		return 0
	}
	return s.conn.RemainingBytes()
}

func notOpen() error {
	return thrift.NewTTransportException(thrift.NOT_OPEN, "socket not open")
}
