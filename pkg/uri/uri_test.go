package uri

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/indexima/pkg/connection"
	"github.com/ajitpratap0/indexima/pkg/errors"
)

func sourceRegistry() connection.Registry {
	return connection.NewStaticRegistry(&connection.Connection{
		ID:       "my_conn_id",
		ConnType: "postgres",
		Host:     "my-private-instance.com",
		Port:     5439,
		Login:    "etl-user",
		Password: "XXXXXXXX",
		Schema:   "db_client",
		Extra:    `{"ssl": true}`,
	})
}

func TestShortcuts(t *testing.T) {
	ctx := context.Background()

	got, err := Redshift(ctx, sourceRegistry(), "my_conn_id", nil)
	require.NoError(t, err)
	assert.Equal(t, "jdbc:redshift://my-private-instance.com:5439/db_client?user=etl-user&password=XXXXXXXX&ssl=true", got)

	got, err = PostgreSQL(ctx, sourceRegistry(), "my_conn_id", nil)
	require.NoError(t, err)
	assert.Equal(t, "jdbc:postgresql://my-private-instance.com:5439/db_client?user=etl-user&password=XXXXXXXX&ssl=true", got)
}

func TestJDBC(t *testing.T) {
	ctx := context.Background()

	t.Run("decorator", func(t *testing.T) {
		got, err := JDBC(ctx, "test", sourceRegistry(), "my_conn_id", connection.Credentials{Password: "YYY"})
		require.NoError(t, err)
		assert.Equal(t, "jdbc:test://my-private-instance.com:5439/db_client?user=etl-user&password=YYY&ssl=true", got)
	})

	t.Run("decorator does not leak into the registry", func(t *testing.T) {
		reg := sourceRegistry()
		_, err := JDBC(ctx, "test", reg, "my_conn_id", connection.Credentials{Password: "YYY"})
		require.NoError(t, err)

		conn, err := reg.Get(ctx, "my_conn_id")
		require.NoError(t, err)
		assert.Equal(t, "XXXXXXXX", conn.Password)
	})

	t.Run("extra keys are sorted", func(t *testing.T) {
		reg := connection.NewStaticRegistry(&connection.Connection{
			ID: "src", Host: "db", Port: 5432, Schema: "s", Login: "u", Password: "p",
			Extra: `{"tcpKeepAlive": true, "loginTimeout": 30, "ssl": "require"}`,
		})
		got, err := JDBC(ctx, TypePostgreSQL, reg, "src", nil)
		require.NoError(t, err)
		assert.Equal(t, "jdbc:postgresql://db:5432/s?user=u&password=p&loginTimeout=30&ssl=require&tcpKeepAlive=true", got)
	})

	t.Run("no extra", func(t *testing.T) {
		reg := connection.NewStaticRegistry(&connection.Connection{ID: "src", Host: "db", Port: 5432, Schema: "s", Login: "u", Password: "p"})
		got, err := JDBC(ctx, TypePostgreSQL, reg, "src", nil)
		require.NoError(t, err)
		assert.Equal(t, "jdbc:postgresql://db:5432/s?user=u&password=p", got)
	})

	t.Run("unknown connection", func(t *testing.T) {
		_, err := JDBC(ctx, TypeRedshift, sourceRegistry(), "missing", nil)
		assert.True(t, connection.IsNotFound(err))
	})

	t.Run("missing type", func(t *testing.T) {
		_, err := JDBC(ctx, "", sourceRegistry(), "my_conn_id", nil)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	})

	t.Run("decorator failure", func(t *testing.T) {
		failing := connection.DecoratorFunc(func(context.Context, *connection.Connection) (*connection.Connection, error) {
			return nil, errors.New(errors.ErrorTypeAuthentication, "denied")
		})
		_, err := JDBC(ctx, TypeRedshift, sourceRegistry(), "my_conn_id", failing)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		assert.True(t, errors.HasType(err, errors.ErrorTypeAuthentication))
	})

	t.Run("invalid extra", func(t *testing.T) {
		reg := connection.NewStaticRegistry(&connection.Connection{ID: "src", Extra: "not json"})
		_, err := JDBC(ctx, TypeRedshift, reg, "src", nil)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})
}

func TestDefineLoadPathFactory(t *testing.T) {
	decorator := connection.Credentials{Login: "oops", Password: "YYY"}
	factory := DefineLoadPathFactory(sourceRegistry(), "my_conn_id", decorator, Redshift)

	want := "jdbc:redshift://my-private-instance.com:5439/db_client?user=oops&password=YYY&ssl=true"
	for i := 0; i < 2; i++ {
		got, err := factory(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	custom := DefineLoadPathFactory(sourceRegistry(), "my_conn_id", nil, ForType("mysql"))
	got, err := custom(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "jdbc:mysql://my-private-instance.com:5439/db_client?user=etl-user&password=XXXXXXXX&ssl=true", got)
}
