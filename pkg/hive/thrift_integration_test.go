package hive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/indexima/pkg/testutil"
	"github.com/ajitpratap0/indexima/pkg/transport"
)

// Runs against the server named by INDEXIMA_TEST_HOST
func TestThriftClient_Live(t *testing.T) {
	server := testutil.IntegrationTest(t)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	trans, err := transport.New(server.TransportOptions())
	require.NoError(t, err)

	conn, err := NewThriftClient().Open(ctx, OpenOptions{
		Host:      server.Host,
		Port:      server.Port,
		Transport: trans,
		Username:  server.Username,
	})
	require.NoError(t, err)
	defer conn.Close()

	cursor := conn.Cursor()
	require.NoError(t, cursor.Execute(ctx, "SELECT 1"))
	rows, err := FetchAll(ctx, cursor)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 1, rows[0][0])
	require.NoError(t, cursor.Close())
}
