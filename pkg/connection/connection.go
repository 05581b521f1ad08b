// Package connection models the named connection records the connector reads
// its host, credentials and extra settings from, together with the registries
// that resolve them and the decorators that post-process them.
package connection

import (
	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/indexima/pkg/errors"
)

// Connection is a named connection record.
//
// Extra holds a raw JSON object with non-standard settings; an empty string
// means no extra settings.
type Connection struct {
	ID       string `yaml:"id" json:"id"`
	ConnType string `yaml:"conn_type" json:"conn_type"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Login    string `yaml:"login" json:"login"`
	Password string `yaml:"password" json:"password"`
	Schema   string `yaml:"schema" json:"schema"`
	Extra    string `yaml:"extra" json:"extra"`
}

// Clone returns a copy of the connection so decorators can mutate it freely
func (c *Connection) Clone() *Connection {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// ExtraDejson decodes Extra. A missing Extra decodes to an empty map.
func (c *Connection) ExtraDejson() (map[string]interface{}, error) {
	extra := make(map[string]interface{})
	if c.Extra == "" {
		return extra, nil
	}
	if err := gojson.Unmarshal([]byte(c.Extra), &extra); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "connection extra is not a JSON object").
			WithDetail("connection_id", c.ID)
	}
	if extra == nil {
		// "null" decodes to a nil map
		extra = make(map[string]interface{})
	}
	return extra, nil
}

// SetExtra serializes extra into the Extra field
func (c *Connection) SetExtra(extra map[string]interface{}) error {
	if extra == nil {
		extra = map[string]interface{}{}
	}
	data, err := gojson.Marshal(extra)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to encode connection extra").
			WithDetail("connection_id", c.ID)
	}
	c.Extra = string(data)
	return nil
}
