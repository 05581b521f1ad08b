// Package config provides the task configuration of the Indexima connector.
// A TaskConfig describes one orchestrated task: which connection to use and
// how (HookConfig), and what to run (QueryConfig or LoadConfig).
//
// Example usage:
//
//	cfg := config.NewTaskConfig("load_sales", config.OperatorLoad)
//	cfg.Hook.ConnectionID = "indexima_default"
//	cfg.Load.TargetTable = "sales"
//	cfg.Load.LoadPathURI = "s3://bucket/sales/"
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"time"

	"github.com/ajitpratap0/indexima/pkg/transport"
)

// Operator names
const (
	OperatorQuery = "query"
	OperatorLoad  = "load"
)

// DefaultConnectionID is used when a task names no connection
const DefaultConnectionID = "indexima_default"

// TaskConfig is the configuration of a single task
type TaskConfig struct {
	// TaskID identifies the task in logs
	TaskID string `yaml:"task_id" json:"task_id" mapstructure:"task_id"`
	// Operator selects the operator (query or load)
	Operator string `yaml:"operator" json:"operator" mapstructure:"operator"`

	Hook          HookConfig          `yaml:"hook" json:"hook" mapstructure:"hook"`
	Query         QueryConfig         `yaml:"query" json:"query" mapstructure:"query"`
	Load          LoadConfig          `yaml:"load" json:"load" mapstructure:"load"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability" mapstructure:"observability"`

	// Vars are exposed to templated fields as {{ .name }}
	Vars map[string]string `yaml:"vars" json:"vars" mapstructure:"vars"`
}

// HookConfig describes how the session reaches the server. Empty fields
// leave the corresponding connection extra setting untouched.
type HookConfig struct {
	ConnectionID        string        `yaml:"connection_id" json:"connection_id" mapstructure:"connection_id"`
	Auth                string        `yaml:"auth" json:"auth" mapstructure:"auth"`
	KerberosServiceName string        `yaml:"kerberos_service_name" json:"kerberos_service_name" mapstructure:"kerberos_service_name"`
	Timeout             time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
	SocketKeepalive     *bool         `yaml:"socket_keepalive" json:"socket_keepalive" mapstructure:"socket_keepalive"`
	// Schema overrides the connection schema
	Schema string `yaml:"schema" json:"schema" mapstructure:"schema"`
	// DryRun logs statements instead of executing them
	DryRun bool `yaml:"dry_run" json:"dry_run" mapstructure:"dry_run"`
}

// QueryConfig configures the query runner operator
type QueryConfig struct {
	SQL string `yaml:"sql" json:"sql" mapstructure:"sql"`
}

// LoadConfig configures the load data operator
type LoadConfig struct {
	TargetTable       string `yaml:"target_table" json:"target_table" mapstructure:"target_table"`
	LoadPathURI       string `yaml:"load_path_uri" json:"load_path_uri" mapstructure:"load_path_uri"`
	SourceSelectQuery string `yaml:"source_select_query" json:"source_select_query" mapstructure:"source_select_query"`
	Truncate          bool   `yaml:"truncate" json:"truncate" mapstructure:"truncate"`
	TruncateSQL       string `yaml:"truncate_sql" json:"truncate_sql" mapstructure:"truncate_sql"`
	Format            string `yaml:"format" json:"format" mapstructure:"format"`
	Prefix            string `yaml:"prefix" json:"prefix" mapstructure:"prefix"`
	SkipLines         int    `yaml:"skip_lines" json:"skip_lines" mapstructure:"skip_lines"`
	NoCheck           bool   `yaml:"no_check" json:"no_check" mapstructure:"no_check"`
	Limit             int    `yaml:"limit" json:"limit" mapstructure:"limit"`
	Locale            string `yaml:"locale" json:"locale" mapstructure:"locale"`
	// Pause is issued between consecutive statements when positive
	Pause time.Duration `yaml:"pause" json:"pause" mapstructure:"pause"`
}

// ObservabilityConfig contains logging, tracing and metrics settings
type ObservabilityConfig struct {
	LogLevel      string `yaml:"log_level" json:"log_level" mapstructure:"log_level"`
	LogEncoding   string `yaml:"log_encoding" json:"log_encoding" mapstructure:"log_encoding"`
	EnableTracing bool   `yaml:"enable_tracing" json:"enable_tracing" mapstructure:"enable_tracing"`
	// PushGateway receives the statement metrics when set
	PushGateway string `yaml:"push_gateway" json:"push_gateway" mapstructure:"push_gateway"`
}

// NewTaskConfig creates a TaskConfig with defaults
func NewTaskConfig(taskID, operator string) *TaskConfig {
	return &TaskConfig{
		TaskID:   taskID,
		Operator: operator,
		Hook: HookConfig{
			ConnectionID: DefaultConnectionID,
			Auth:         string(transport.AuthCustom),
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogEncoding: "json",
		},
		Vars: make(map[string]string),
	}
}

// Validate validates the configuration for the selected operator
func (c *TaskConfig) Validate() error {
	if err := c.Hook.Validate(); err != nil {
		return err
	}

	switch c.Operator {
	case OperatorQuery:
		if c.Query.SQL == "" {
			return fmt.Errorf("query.sql is required")
		}
	case OperatorLoad:
		return c.Load.Validate()
	case "":
		return fmt.Errorf("operator is required")
	default:
		return fmt.Errorf("unknown operator %q (use %s or %s)", c.Operator, OperatorQuery, OperatorLoad)
	}
	return nil
}

// Validate checks the hook settings
func (h *HookConfig) Validate() error {
	if h.ConnectionID == "" {
		return fmt.Errorf("hook.connection_id is required")
	}
	if h.Auth != "" {
		if _, err := transport.ParseAuthMode(h.Auth); err != nil {
			return err
		}
	}
	if h.Timeout < 0 {
		return fmt.Errorf("hook.timeout cannot be negative")
	}
	return nil
}

// TimeoutSeconds converts Timeout to whole seconds; nil when unset
func (h *HookConfig) TimeoutSeconds() *int {
	if h.Timeout <= 0 {
		return nil
	}
	seconds := int(h.Timeout / time.Second)
	if seconds == 0 {
		seconds = 1
	}
	return &seconds
}

// Validate checks the load settings
func (l *LoadConfig) Validate() error {
	if l.TargetTable == "" {
		return fmt.Errorf("load.target_table is required")
	}
	if l.LoadPathURI == "" {
		return fmt.Errorf("load.load_path_uri is required")
	}
	if l.SkipLines < 0 {
		return fmt.Errorf("load.skip_lines cannot be negative")
	}
	if l.Limit < 0 {
		return fmt.Errorf("load.limit cannot be negative")
	}
	if l.Pause < 0 {
		return fmt.Errorf("load.pause cannot be negative")
	}
	return nil
}
