package connection

import (
	"math"
	"strconv"

	gojson "github.com/goccy/go-json"
)

// Keys of the hive settings stored in the connection extra
const (
	ExtraAuth                = "auth"
	ExtraKerberosServiceName = "kerberos_service_name"
	ExtraTimeoutSeconds      = "timeout_seconds"
	ExtraSocketKeepalive     = "socket_keepalive"
)

// HiveSettings are the transport settings carried in a connection extra.
// A nil field is absent.
type HiveSettings struct {
	Auth                *string
	KerberosServiceName *string
	TimeoutSeconds      *int
	SocketKeepalive     *bool
}

// IsEmpty reports whether no setting is present
func (s HiveSettings) IsEmpty() bool {
	return s.Auth == nil && s.KerberosServiceName == nil && s.TimeoutSeconds == nil && s.SocketKeepalive == nil
}

// ApplyHiveSettings merges the present fields of settings into conn.Extra,
// keeping unrelated keys, and re-serializes it. conn is modified in place and
// returned.
func ApplyHiveSettings(conn *Connection, settings HiveSettings) (*Connection, error) {
	extra, err := conn.ExtraDejson()
	if err != nil {
		return nil, err
	}

	if settings.Auth != nil {
		extra[ExtraAuth] = *settings.Auth
	}
	if settings.KerberosServiceName != nil {
		extra[ExtraKerberosServiceName] = *settings.KerberosServiceName
	}
	if settings.TimeoutSeconds != nil {
		extra[ExtraTimeoutSeconds] = *settings.TimeoutSeconds
	}
	if settings.SocketKeepalive != nil {
		extra[ExtraSocketKeepalive] = *settings.SocketKeepalive
	}

	if err := conn.SetExtra(extra); err != nil {
		return nil, err
	}
	return conn, nil
}

// ExtractHiveSettings reads the hive settings back from conn.Extra.
// Missing or mistyped keys are absent.
func ExtractHiveSettings(conn *Connection) (HiveSettings, error) {
	extra, err := conn.ExtraDejson()
	if err != nil {
		return HiveSettings{}, err
	}

	var settings HiveSettings
	if v, ok := extra[ExtraAuth].(string); ok {
		settings.Auth = &v
	}
	if v, ok := extra[ExtraKerberosServiceName].(string); ok {
		settings.KerberosServiceName = &v
	}
	if v, ok := toInt(extra[ExtraTimeoutSeconds]); ok {
		settings.TimeoutSeconds = &v
	}
	if v, ok := toBool(extra[ExtraSocketKeepalive]); ok {
		settings.SocketKeepalive = &v
	}
	return settings, nil
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case gojson.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

func toBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, false
		}
		return parsed, true
	}
	return false, false
}
