package operator

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/indexima/pkg/config"
	"github.com/ajitpratap0/indexima/pkg/errors"
	"github.com/ajitpratap0/indexima/pkg/hive"
	"github.com/ajitpratap0/indexima/pkg/hook"
)

// QueryRunner runs one templated statement
type QueryRunner struct {
	hookBased
	sql  string
	vars map[string]string

	// OnRow receives the result rows when set
	OnRow func(hive.Row) error
}

// NewQueryRunner creates a query runner
func NewQueryRunner(taskID string, hookCfg config.HookConfig, sql string, vars map[string]string, deps Deps) (*QueryRunner, error) {
	if sql == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "sql query is required")
	}
	base, err := newHookBased(taskID, hookCfg, deps)
	if err != nil {
		return nil, err
	}
	return &QueryRunner{hookBased: base, sql: sql, vars: vars}, nil
}

// SQL renders the statement
func (o *QueryRunner) SQL() (string, error) {
	return render("sql", o.sql, o.vars)
}

// Execute implements Operator
func (o *QueryRunner) Execute(ctx context.Context) error {
	sql, err := o.SQL()
	if err != nil {
		return err
	}

	ctx = o.withTaskID(ctx)
	return o.NewHook().WithSession(ctx, func(ctx context.Context, h *hook.Hook) error {
		o.log(ctx).Info("running query", zap.Bool("dry_run", h.IsDryRun()))

		cursor, err := h.Run(ctx, sql)
		if err != nil {
			return err
		}
		defer cursor.Close()

		if o.OnRow == nil || h.IsDryRun() {
			return nil
		}
		for {
			row, err := cursor.FetchOne(ctx)
			if err != nil {
				return err
			}
			if row == nil {
				return nil
			}
			if err := o.OnRow(row); err != nil {
				return err
			}
		}
	})
}
