package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables overriding task settings,
// e.g. INDEXIMA_HOOK_CONNECTION_ID or INDEXIMA_LOAD_TARGET_TABLE
const EnvPrefix = "INDEXIMA"

// taskKeys are the settings that can come from the environment
var taskKeys = []string{
	"task_id",
	"operator",
	"hook.connection_id",
	"hook.auth",
	"hook.kerberos_service_name",
	"hook.timeout",
	"hook.socket_keepalive",
	"hook.schema",
	"hook.dry_run",
	"query.sql",
	"load.target_table",
	"load.load_path_uri",
	"load.source_select_query",
	"load.truncate",
	"load.truncate_sql",
	"load.format",
	"load.prefix",
	"load.skip_lines",
	"load.no_check",
	"load.limit",
	"load.locale",
	"load.pause",
	"observability.log_level",
	"observability.log_encoding",
	"observability.enable_tracing",
	"observability.push_gateway",
}

// NewViper returns a viper instance reading task settings from INDEXIMA_*
// environment variables. Callers bind their flags on top of it.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range taskKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// ReadTask builds a task configuration from v. When path is set the YAML
// file is read first, with ${ENV} substitution. Precedence, highest first:
// flags, environment, file, NewTaskConfig defaults.
func ReadTask(v *viper.Viper, path string) (*TaskConfig, error) {
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // G304: File path is controlled by caller
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		v.SetConfigType("yaml")
		content := substituteEnvVars(string(data))
		if err := v.ReadConfig(bytes.NewBufferString(content)); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	cfg := NewTaskConfig("", "")
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode task config: %w", err)
	}
	return cfg, nil
}
