package operator

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ajitpratap0/indexima/pkg/config"
	"github.com/ajitpratap0/indexima/pkg/errors"
	"github.com/ajitpratap0/indexima/pkg/hook"
	"github.com/ajitpratap0/indexima/pkg/load"
)

// LoadData loads files into a table:
//
//  1. truncate the target table (optional), pause
//  2. run the LOAD DATA statement and check its per-file errors
//  3. pause, commit the target table
//
// Any failure reconnects, pauses and rolls the target table back; the
// failure is returned together with a rollback error, if any.
type LoadData struct {
	hookBased
	cfg  config.LoadConfig
	vars map[string]string
}

// NewLoadData creates a load operator
func NewLoadData(taskID string, hookCfg config.HookConfig, loadCfg config.LoadConfig, vars map[string]string, deps Deps) (*LoadData, error) {
	if err := loadCfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "invalid load configuration").
			WithDetail("task_id", taskID)
	}
	base, err := newHookBased(taskID, hookCfg, deps)
	if err != nil {
		return nil, err
	}
	return &LoadData{hookBased: base, cfg: loadCfg, vars: vars}, nil
}

// Plan is a rendered load
type Plan struct {
	Statement load.Statement
	// TruncateSQL is empty when the table is not truncated
	TruncateSQL string
}

type templatedField struct {
	name string
	in   string
	out  *string
}

// Plan renders the templated fields
func (o *LoadData) Plan() (Plan, error) {
	p := Plan{Statement: load.Statement{
		Skip:    o.cfg.SkipLines,
		NoCheck: o.cfg.NoCheck,
		Limit:   o.cfg.Limit,
	}}

	var truncateSQL string
	fields := []templatedField{
		{"target_table", o.cfg.TargetTable, &p.Statement.Table},
		{"load_path_uri", o.cfg.LoadPathURI, &p.Statement.Path},
		{"source_select_query", o.cfg.SourceSelectQuery, &p.Statement.Query},
		{"format", o.cfg.Format, &p.Statement.Format},
		{"prefix", o.cfg.Prefix, &p.Statement.Prefix},
		{"locale", o.cfg.Locale, &p.Statement.Locale},
		{"truncate_sql", o.cfg.TruncateSQL, &truncateSQL},
	}
	for _, f := range fields {
		out, err := render(f.name, f.in, o.vars)
		if err != nil {
			return Plan{}, err
		}
		*f.out = out
	}

	if err := p.Statement.Validate(); err != nil {
		return Plan{}, err
	}

	if o.cfg.Truncate {
		p.TruncateSQL = truncateSQL
		if p.TruncateSQL == "" {
			p.TruncateSQL = load.Truncate(p.Statement.Table)
		}
	}
	return p, nil
}

// Statement renders the LOAD DATA statement
func (o *LoadData) Statement() (string, error) {
	p, err := o.Plan()
	if err != nil {
		return "", err
	}
	return p.Statement.Build(), nil
}

// Execute implements Operator
func (o *LoadData) Execute(ctx context.Context) error {
	p, err := o.Plan()
	if err != nil {
		return err
	}
	table := p.Statement.Table

	ctx = o.withTaskID(ctx)
	return o.NewHook().WithSession(ctx, func(ctx context.Context, h *hook.Hook) error {
		err := o.load(ctx, h, p)
		if err == nil {
			return nil
		}

		o.log(ctx).Error("load failed, rolling back",
			zap.String("table", table),
			zap.Error(err))
		return multierr.Append(err, o.rollback(ctx, h, table))
	})
}

func (o *LoadData) load(ctx context.Context, h *hook.Hook, p Plan) error {
	if p.TruncateSQL != "" {
		if err := o.exec(ctx, h, p.TruncateSQL); err != nil {
			return err
		}
		if err := o.pause(ctx, h); err != nil {
			return err
		}
	}

	sql := p.Statement.Build()
	o.log(ctx).Info("loading",
		zap.String("table", p.Statement.Table),
		zap.String("path", p.Statement.Path))

	cursor, err := h.Run(ctx, sql)
	if err != nil {
		return err
	}
	err = h.CheckLoadErrors(ctx, cursor)
	_ = cursor.Close()
	if err != nil {
		return err
	}

	if err := o.pause(ctx, h); err != nil {
		return err
	}
	return h.Commit(ctx, p.Statement.Table)
}

func (o *LoadData) rollback(ctx context.Context, h *hook.Hook, table string) error {
	if err := h.Reconnect(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeExecution, "failed to reconnect before rollback").
			WithDetail("table", table)
	}
	if err := o.pause(ctx, h); err != nil {
		return err
	}
	if err := h.Rollback(ctx, table); err != nil {
		return errors.Wrap(err, errors.ErrorTypeExecution, "rollback failed").
			WithDetail("table", table)
	}
	return nil
}

func (o *LoadData) exec(ctx context.Context, h *hook.Hook, sql string) error {
	cursor, err := h.Run(ctx, sql)
	if err != nil {
		return err
	}
	return cursor.Close()
}

func (o *LoadData) pause(ctx context.Context, h *hook.Hook) error {
	if o.cfg.Pause <= 0 {
		return nil
	}
	return h.Pause(ctx, o.cfg.Pause)
}
