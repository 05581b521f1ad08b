package transport

import (
	"github.com/apache/thrift/lib/go/thrift"
	"github.com/beltran/gohive"

	"github.com/ajitpratap0/indexima/pkg/errors"
)

// SASL mechanisms
const (
	MechanismPlain  = "PLAIN"
	MechanismGSSAPI = "GSSAPI"
)

// bufferSize of the NOSASL buffered transport
const bufferSize = 4096

// Options selects and configures a transport
type Options struct {
	Socket SocketConfig
	Auth   AuthMode

	// Username, Password and KerberosServiceName are nil when absent
	Username            *string
	Password            *string
	KerberosServiceName *string
}

// Transport is an unconnected Thrift transport together with its socket
type Transport struct {
	thrift.TTransport

	Socket    *Socket
	Mechanism string
}

// New validates opts and builds the transport implied by the auth mode.
// The result is not connected; the caller opens it.
func New(opts Options) (*Transport, error) {
	if err := CheckParameters(string(opts.Auth), opts.Username, opts.Password, opts.KerberosServiceName); err != nil {
		return nil, err
	}

	sock := NewSocket(opts.Socket)

	switch {
	case opts.Auth == AuthKerberos:
		sasl, err := gohive.NewTSaslTransport(sock, sock.Host(), MechanismGSSAPI,
			map[string]string{"service": *opts.KerberosServiceName}, gohive.DEFAULT_MAX_LENGTH)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create GSSAPI transport")
		}
		return &Transport{TTransport: sasl, Socket: sock, Mechanism: MechanismGSSAPI}, nil

	case opts.Auth == AuthNoSASL:
		return &Transport{TTransport: thrift.NewTBufferedTransport(sock, bufferSize), Socket: sock}, nil

	case opts.Auth.UsesPlainSASL() && opts.Username != nil:
		password := ""
		if opts.Password != nil {
			password = *opts.Password
		}
		sasl, err := gohive.NewTSaslTransport(sock, sock.Host(), MechanismPlain,
			map[string]string{"username": *opts.Username, "password": password}, gohive.DEFAULT_MAX_LENGTH)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create PLAIN transport")
		}
		return &Transport{TTransport: sasl, Socket: sock, Mechanism: MechanismPlain}, nil
	}

	return nil, errors.New(errors.ErrorTypeConfig,
		"no transport matches auth mode "+string(opts.Auth)+" without a username").
		WithDetail("auth", string(opts.Auth)).
		WithDetail("host", sock.Host())
}
