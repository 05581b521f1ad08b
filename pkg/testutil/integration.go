package testutil

import (
	"os"
	"strconv"
	"testing"

	"github.com/ajitpratap0/indexima/pkg/transport"
)

// Environment variables describing a live server for integration tests
const (
	EnvHost     = "INDEXIMA_TEST_HOST"
	EnvPort     = "INDEXIMA_TEST_PORT"
	EnvAuth     = "INDEXIMA_TEST_AUTH"
	EnvUser     = "INDEXIMA_TEST_USER"
	EnvPassword = "INDEXIMA_TEST_PASSWORD"
)

// LiveServer describes the server integration tests run against
type LiveServer struct {
	Host     string
	Port     int
	Auth     transport.AuthMode
	Username string
	Password string
}

// TransportOptions returns transport options reaching the server
func (s LiveServer) TransportOptions() transport.Options {
	opts := transport.Options{
		Socket: transport.SocketConfig{Host: s.Host, Port: s.Port},
		Auth:   s.Auth,
	}
	if s.Username != "" {
		opts.Username = &s.Username
	}
	if s.Password != "" {
		opts.Password = &s.Password
	}
	return opts
}

// IntegrationTest skips the test in short mode or when no live server is
// configured, and returns the server otherwise
func IntegrationTest(t *testing.T) LiveServer {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	host := os.Getenv(EnvHost)
	if host == "" {
		t.Skipf("Skipping integration test: %s is not set", EnvHost)
	}

	server := LiveServer{
		Host:     host,
		Port:     transport.DefaultPort,
		Auth:     transport.AuthNoSASL,
		Username: os.Getenv(EnvUser),
		Password: os.Getenv(EnvPassword),
	}
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			t.Fatalf("invalid %s: %v", EnvPort, err)
		}
		server.Port = port
	}
	if a := os.Getenv(EnvAuth); a != "" {
		mode, err := transport.ParseAuthMode(a)
		if err != nil {
			t.Fatalf("invalid %s: %v", EnvAuth, err)
		}
		server.Auth = mode
	}
	return server
}
