// Package indexima connects orchestrated tasks to an Indexima server, a
// HiveServer2 compatible analytics engine, over Thrift.
//
// It runs SQL statements and full LOAD DATA tasks: truncate the target table,
// load files (or a JDBC source), check the per-file errors the server reports,
// commit, and roll back on any failure.
//
// # Quick Start
//
// Load a day of CSV files into a table:
//
//	import (
//	    "context"
//	    "github.com/ajitpratap0/indexima/pkg/config"
//	    "github.com/ajitpratap0/indexima/pkg/connection"
//	    "github.com/ajitpratap0/indexima/pkg/hive"
//	    "github.com/ajitpratap0/indexima/pkg/operator"
//	)
//
//	cfg := config.NewTaskConfig("load_sales", config.OperatorLoad)
//	cfg.Load.TargetTable = "sales"
//	cfg.Load.LoadPathURI = "s3://bucket/sales/{{ .ds }}/"
//	cfg.Load.Format = "CSV"
//	cfg.Vars["ds"] = "2024-01-01"
//
//	op, err := operator.FromTask(cfg, operator.Deps{
//	    Registry: connection.NewEnvRegistry(""),
//	    Client:   hive.NewThriftClient(),
//	})
//	if err != nil {
//	    return err
//	}
//	err = op.Execute(context.Background())
//
// # Key Packages
//
//	pkg/transport    - Auth modes, socket and SASL/buffered Thrift transports
//	pkg/connection   - Connection records, registries, decorators, extra settings codec
//	pkg/hive         - Client abstraction and the HiveServer2 Thrift client
//	pkg/hook         - Session wrapper: lazy open, dry run, commit, rollback, load errors
//	pkg/load         - LOAD DATA statement builder
//	pkg/operator     - Query runner and load data operators
//	pkg/uri          - JDBC load path generators
//	pkg/config       - Task configuration (YAML, environment, flags)
//	pkg/errors       - Structured error handling
//	pkg/logger       - Structured logging
//	pkg/metrics      - Prometheus statement metrics
//	pkg/observability - OpenTelemetry tracing
//
// # Authentication
//
// The auth mode comes from the task or from the connection extra settings:
//
//	NONE      SASL PLAIN with the connection login, password optional
//	CUSTOM    SASL PLAIN, password required
//	LDAP      SASL PLAIN, password required
//	KERBEROS  SASL GSSAPI, kerberos_service_name required
//	NOSASL    plain buffered transport
//
// The cmd/indexima binary exposes the same operators on the command line.
package indexima
