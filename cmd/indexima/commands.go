package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ajitpratap0/indexima/pkg/config"
	"github.com/ajitpratap0/indexima/pkg/connection"
	"github.com/ajitpratap0/indexima/pkg/connection/s3secrets"
	"github.com/ajitpratap0/indexima/pkg/hive"
	"github.com/ajitpratap0/indexima/pkg/logger"
	"github.com/ajitpratap0/indexima/pkg/metrics"
	"github.com/ajitpratap0/indexima/pkg/observability"
	"github.com/ajitpratap0/indexima/pkg/operator"
	"github.com/ajitpratap0/indexima/pkg/uri"
)

func newQueryCmd(a *app) *cobra.Command {
	var printRows bool
	cmd := &cobra.Command{
		Use:   "query SQL",
		Short: "Run one SQL statement",
		Long: `Run one SQL statement. The statement is a Go template rendered against --var values.

Example:
  indexima query "COMMIT sales_{{ .ds }}" --var ds=20240101 --connection-id indexima_prod`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.v.Set("operator", config.OperatorQuery)
			a.v.Set("query.sql", args[0])
			cfg, err := a.task()
			if err != nil {
				return err
			}
			return a.execute(cmd.Context(), cfg, printRows)
		},
	}
	cmd.Flags().BoolVar(&printRows, "print", false, "Print the result rows, tab separated")
	return cmd
}

func newLoadCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load files into a table",
		Long: `Load files into a table: optionally truncate it, run LOAD DATA, check the
per-file errors and commit. Any failure rolls the table back.

Example:
  indexima load --table sales --path "s3://bucket/sales/{{ .ds }}/" --format CSV --skip 1 --var ds=2024-01-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.v.Set("operator", config.OperatorLoad)
			cfg, err := a.task()
			if err != nil {
				return err
			}
			return a.execute(cmd.Context(), cfg, false)
		},
	}

	flags := cmd.Flags()
	flags.String("table", "", "Target table")
	flags.String("path", "", "Load path URI")
	flags.String("source-query", "", "Query run against the load path source")
	flags.Bool("truncate", false, "Truncate the table before loading")
	flags.String("truncate-sql", "", "Statement used to truncate, TRUNCATE TABLE <table> by default")
	flags.String("format", "", "File format (CSV, JSON, PARQUET, ORC, JDBC)")
	flags.String("prefix", "", "Column prefix")
	flags.Int("skip", 0, "Header lines to skip")
	flags.Bool("nocheck", false, "Skip the format check")
	flags.Int("limit", 0, "Maximum number of lines loaded")
	flags.String("locale", "", "Locale used to parse values")
	flags.Duration("pause", 0, "Pause between consecutive statements")

	a.bindLocal(cmd, map[string]string{
		"table":        "load.target_table",
		"path":         "load.load_path_uri",
		"source-query": "load.source_select_query",
		"truncate":     "load.truncate",
		"truncate-sql": "load.truncate_sql",
		"format":       "load.format",
		"prefix":       "load.prefix",
		"skip":         "load.skip_lines",
		"nocheck":      "load.no_check",
		"limit":        "load.limit",
		"locale":       "load.locale",
		"pause":        "load.pause",
	})
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var printRows bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the task described by --config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.configFile == "" {
				return fmt.Errorf("run needs a task file (--config)")
			}
			cfg, err := a.task()
			if err != nil {
				return err
			}
			return a.execute(cmd.Context(), cfg, printRows)
		},
	}
	cmd.Flags().BoolVar(&printRows, "print", false, "Print the result rows of a query task")
	return cmd
}

func newURICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "uri JDBC_TYPE CONNECTION_ID",
		Short: "Print the JDBC load path of a source connection",
		Long: `Print the JDBC load path of a source connection, to be used as a load path URI.

Example:
  indexima uri redshift my_redshift --secrets s3://secrets/redshift.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			registry, err := a.registry()
			if err != nil {
				return err
			}
			decorator, err := a.decorator(ctx)
			if err != nil {
				return err
			}
			path, err := uri.ForType(args[0])(ctx, registry, args[1], decorator)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, path)
			return nil
		},
	}
}

// task reads the task configuration and merges the --var values into it
func (a *app) task() (*config.TaskConfig, error) {
	cfg, err := config.ReadTask(a.v, a.configFile)
	if err != nil {
		return nil, err
	}
	if cfg.TaskID == "" {
		cfg.TaskID = "indexima_" + cfg.Operator
	}
	if cfg.Vars == nil {
		cfg.Vars = make(map[string]string, len(a.vars))
	}
	for k, v := range a.vars {
		cfg.Vars[k] = v
	}
	return cfg, nil
}

func (a *app) registry() (connection.Registry, error) {
	env := connection.NewEnvRegistry("")
	if a.connectionsFile == "" {
		return env, nil
	}
	file, err := connection.NewFileRegistry(a.connectionsFile)
	if err != nil {
		return nil, err
	}
	return connection.ChainRegistry{file, env}, nil
}

func (a *app) decorator(ctx context.Context) (connection.Decorator, error) {
	if a.secrets == "" {
		return nil, nil
	}
	return s3secrets.New(ctx, a.secrets, a.secretsRegion)
}

// execute runs the task with logging, tracing and metrics set up
func (a *app) execute(ctx context.Context, cfg *config.TaskConfig, printRows bool) (err error) {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid task configuration: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:    cfg.Observability.LogLevel,
		Encoding: cfg.Observability.LogEncoding,
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	shutdown, err := observability.InitTracing(observability.TracingConfig{
		Enabled:        cfg.Observability.EnableTracing,
		ServiceVersion: version,
		SamplingRate:   1,
		Writer:         os.Stderr,
	})
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, shutdown(context.Background()))
	}()

	registry, err := a.registry()
	if err != nil {
		return err
	}
	decorator, err := a.decorator(ctx)
	if err != nil {
		return err
	}

	op, err := operator.FromTask(cfg, operator.Deps{
		Registry:  registry,
		Client:    a.client,
		Decorator: decorator,
	})
	if err != nil {
		return err
	}
	if q, ok := op.(*operator.QueryRunner); ok && printRows {
		q.OnRow = a.printRow
	}

	log := logger.Get().With(
		zap.String("component", "indexima-cli"),
		zap.String("task_id", cfg.TaskID),
		zap.String("operator", cfg.Operator))
	log.Info("starting task", zap.String("connection_id", cfg.Hook.ConnectionID))

	start := time.Now()
	err = op.Execute(ctx)

	if gw := cfg.Observability.PushGateway; gw != "" {
		if pushErr := metrics.Push(ctx, gw, "indexima_"+cfg.Operator); pushErr != nil {
			log.Warn("failed to push metrics", zap.String("push_gateway", gw), zap.Error(pushErr))
		}
	}

	if err != nil {
		log.Error("task failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return err
	}
	log.Info("task completed", zap.Duration("duration", time.Since(start)))
	return nil
}

func (a *app) printRow(row hive.Row) error {
	cols := make([]string, len(row))
	for i, v := range row {
		if v == nil {
			cols[i] = "NULL"
			continue
		}
		cols[i] = fmt.Sprint(v)
	}
	_, err := fmt.Fprintln(a.out, strings.Join(cols, "\t"))
	return err
}
