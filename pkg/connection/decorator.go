package connection

import "context"

// Decorator post-processes a connection before it is used, for example to
// pull credentials from a secret store. Implementations receive a private
// copy and may modify it in place.
type Decorator interface {
	Decorate(ctx context.Context, conn *Connection) (*Connection, error)
}

// DecoratorFunc adapts a function to the Decorator interface
type DecoratorFunc func(ctx context.Context, conn *Connection) (*Connection, error)

// Decorate implements Decorator
func (f DecoratorFunc) Decorate(ctx context.Context, conn *Connection) (*Connection, error) {
	return f(ctx, conn)
}

// Chain applies decorators in order; nil entries are skipped
type Chain []Decorator

// Decorate implements Decorator
func (c Chain) Decorate(ctx context.Context, conn *Connection) (*Connection, error) {
	var err error
	for _, d := range c {
		if d == nil {
			continue
		}
		conn, err = d.Decorate(ctx, conn)
		if err != nil {
			return nil, err
		}
	}
	return conn, nil
}

// Credentials overrides login and password when they are set
type Credentials struct {
	Login    string
	Password string
}

// Decorate implements Decorator
func (c Credentials) Decorate(_ context.Context, conn *Connection) (*Connection, error) {
	if c.Login != "" {
		conn.Login = c.Login
	}
	if c.Password != "" {
		conn.Password = c.Password
	}
	return conn, nil
}

// Apply runs d on a copy of conn; a nil decorator returns the copy unchanged
func Apply(ctx context.Context, d Decorator, conn *Connection) (*Connection, error) {
	cp := conn.Clone()
	if d == nil {
		return cp, nil
	}
	return d.Decorate(ctx, cp)
}
