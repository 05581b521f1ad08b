package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/indexima/pkg/config"
	"github.com/ajitpratap0/indexima/pkg/hive"
	"github.com/ajitpratap0/indexima/pkg/operator"
)

var version = "0.1.0"

// app holds what the commands share
type app struct {
	v   *viper.Viper
	out io.Writer

	configFile      string
	connectionsFile string
	secrets         string
	secretsRegion   string
	vars            map[string]string

	// client defaults to the Thrift client
	client hive.Client
}

func newApp(out io.Writer) *app {
	return &app{
		v:      config.NewViper(),
		out:    out,
		vars:   make(map[string]string),
		client: hive.NewThriftClient(),
	}
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(newApp(os.Stdout)).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "indexima",
		Short: "Indexima - run queries and data loads against an Indexima server",
		Long: `Indexima runs SQL statements and LOAD DATA tasks against an Indexima (HiveServer2
compatible) server over Thrift, with NONE, CUSTOM, LDAP, KERBEROS or NOSASL authentication.

Settings come from flags, INDEXIMA_* environment variables and an optional task file,
in that order of precedence. Connections are resolved from AIRFLOW_CONN_<ID> URIs or
from a YAML connections file.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "Path to a task YAML file")
	flags.StringVar(&a.connectionsFile, "connections", "", "Path to a connections YAML file")
	flags.StringVar(&a.secrets, "secrets", "", "S3 location (s3://bucket/key) of a JSON object with login and password")
	flags.StringVar(&a.secretsRegion, "secrets-region", "", "AWS region of the secrets bucket")
	flags.StringToStringVar(&a.vars, "var", nil, "Template variable (key=value), repeatable")

	flags.String("connection-id", config.DefaultConnectionID, "Connection identifier")
	flags.String("auth", "CUSTOM", "Authentication mode (NONE, CUSTOM, KERBEROS, NOSASL, LDAP)")
	flags.String("kerberos-service-name", "", "Kerberos service name")
	flags.Duration("timeout", 0, "Socket timeout, whole seconds")
	flags.String("schema", "", "Database overriding the connection schema")
	flags.Bool("dry-run", false, "Log statements instead of executing them")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-encoding", "json", "Log encoding (json, console)")
	flags.Bool("trace", false, "Export traces to stderr")
	flags.String("push-gateway", "", "Prometheus Pushgateway URL receiving the task metrics")

	a.bindPersistent(root, map[string]string{
		"connection-id":         "hook.connection_id",
		"auth":                  "hook.auth",
		"kerberos-service-name": "hook.kerberos_service_name",
		"timeout":               "hook.timeout",
		"schema":                "hook.schema",
		"dry-run":               "hook.dry_run",
		"log-level":             "observability.log_level",
		"log-encoding":          "observability.log_encoding",
		"trace":                 "observability.enable_tracing",
		"push-gateway":          "observability.push_gateway",
	})

	// Version command
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "Indexima v%s\n", version)
			fmt.Fprintf(a.out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(a.out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	// List command to show available operators
	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available operators",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.out, "Available Operators:")
			for _, name := range operator.List() {
				fmt.Fprintf(a.out, "  - %s\n", name)
			}
		},
	})

	root.AddCommand(newQueryCmd(a), newLoadCmd(a), newRunCmd(a), newURICmd(a))
	return root
}

// bindPersistent binds persistent flags of root to task settings keys
func (a *app) bindPersistent(root *cobra.Command, keys map[string]string) {
	for name, key := range keys {
		_ = a.v.BindPFlag(key, root.PersistentFlags().Lookup(name))
	}
}

// bindLocal binds flags of cmd to task settings keys
func (a *app) bindLocal(cmd *cobra.Command, keys map[string]string) {
	for name, key := range keys {
		_ = a.v.BindPFlag(key, cmd.Flags().Lookup(name))
	}
}
