// Package transport builds the Thrift transports used to reach a
// HiveServer2-compatible server. The authentication mode decides which
// transport wraps the TCP socket:
//
//   - KERBEROS: SASL GSSAPI, negotiated with host and service name
//   - NOSASL: buffered pass-through, no negotiation
//   - NONE, CUSTOM, LDAP: SASL PLAIN with username and optional password
package transport

import (
	"fmt"
	"strings"

	"github.com/ajitpratap0/indexima/pkg/errors"
)

// AuthMode is the authentication strategy negotiated at transport setup
type AuthMode string

const (
	AuthNone     AuthMode = "NONE"
	AuthCustom   AuthMode = "CUSTOM"
	AuthLDAP     AuthMode = "LDAP"
	AuthKerberos AuthMode = "KERBEROS"
	AuthNoSASL   AuthMode = "NOSASL"
)

// AuthModes lists the supported modes
var AuthModes = []AuthMode{AuthNone, AuthCustom, AuthKerberos, AuthNoSASL, AuthLDAP}

// Valid reports whether m is a supported mode
func (m AuthMode) Valid() bool {
	for _, mode := range AuthModes {
		if m == mode {
			return true
		}
	}
	return false
}

// RequiresPassword reports whether the mode cannot work without a password
func (m AuthMode) RequiresPassword() bool {
	return m == AuthLDAP || m == AuthCustom
}

// UsesPlainSASL reports whether the mode negotiates SASL PLAIN
func (m AuthMode) UsesPlainSASL() bool {
	return m == AuthNone || m == AuthCustom || m == AuthLDAP
}

// ParseAuthMode parses a mode name. Matching is exact: "custom" is rejected.
func ParseAuthMode(s string) (AuthMode, error) {
	m := AuthMode(s)
	if !m.Valid() {
		return "", errors.New(errors.ErrorTypeValidation,
			fmt.Sprintf("unknown auth parameter '%s' (use one of %s)", s, modeList())).
			WithDetail("auth", s)
	}
	return m, nil
}

// CheckParameters validates an authentication parameter set. Absent
// parameters are nil; the username is checked when the session is opened.
func CheckParameters(auth string, username, password, kerberosServiceName *string) error {
	mode, err := ParseAuthMode(auth)
	if err != nil {
		return err
	}

	if mode.RequiresPassword() && password == nil {
		return errors.New(errors.ErrorTypeValidation,
			"password should be set in LDAP or CUSTOM mode; remove password or use one of those modes").
			WithDetail("auth", auth)
	}
	if mode == AuthKerberos && kerberosServiceName == nil {
		return errors.New(errors.ErrorTypeValidation, "kerberos_service_name should be set in KERBEROS mode").
			WithDetail("auth", auth)
	}
	return nil
}

func modeList() string {
	names := make([]string, len(AuthModes))
	for i, m := range AuthModes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}
