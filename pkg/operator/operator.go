// Package operator implements the tasks an orchestrator runs against the
// server: QueryRunner executes one statement, LoadData runs a full load
// (truncate, load, error check, commit, rollback on failure). Operators are
// created by name through the registry:
//
//	op, err := operator.Create(cfg.Operator, cfg, operator.Deps{
//	    Registry: connection.NewEnvRegistry(""),
//	    Client:   hive.NewThriftClient(),
//	})
//	if err != nil {
//	    return err
//	}
//	return op.Execute(ctx)
package operator

import (
	"bytes"
	"context"
	"text/template"

	"go.uber.org/zap"

	"github.com/ajitpratap0/indexima/pkg/config"
	"github.com/ajitpratap0/indexima/pkg/connection"
	"github.com/ajitpratap0/indexima/pkg/errors"
	"github.com/ajitpratap0/indexima/pkg/hive"
	"github.com/ajitpratap0/indexima/pkg/hook"
	"github.com/ajitpratap0/indexima/pkg/logger"
)

// Operator is a runnable task
type Operator interface {
	// TaskID identifies the task
	TaskID() string
	Execute(ctx context.Context) error
}

// Deps are the collaborators operators are wired to
type Deps struct {
	Registry  connection.Registry
	Client    hive.Client
	Decorator connection.Decorator
	Logger    *zap.Logger
}

func (d Deps) validate() error {
	if d.Registry == nil {
		return errors.New(errors.ErrorTypeConfig, "operator needs a connection registry")
	}
	if d.Client == nil {
		return errors.New(errors.ErrorTypeConfig, "operator needs a client")
	}
	return nil
}

// hookBased holds what every operator needs to build its hook
type hookBased struct {
	taskID string
	hook   config.HookConfig
	deps   Deps
	logger *zap.Logger
}

func newHookBased(taskID string, hookCfg config.HookConfig, deps Deps) (hookBased, error) {
	if err := deps.validate(); err != nil {
		return hookBased{}, err
	}
	if err := hookCfg.Validate(); err != nil {
		return hookBased{}, err
	}
	base := deps.Logger
	if base == nil {
		base = logger.Get()
	}
	return hookBased{
		taskID: taskID,
		hook:   hookCfg,
		deps:   deps,
		logger: base,
	}, nil
}

// withTaskID stores the task id in ctx; the hook and operator loggers read
// it back from there
func (b hookBased) withTaskID(ctx context.Context) context.Context {
	return logger.WithTaskID(ctx, b.taskID)
}

func (b hookBased) log(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx, b.logger)
}

// TaskID implements Operator
func (b hookBased) TaskID() string { return b.taskID }

// NewHook returns a fresh hook for one execution
func (b hookBased) NewHook() *hook.Hook {
	return hook.New(b.hook, b.deps.Registry, b.deps.Client,
		hook.WithDecorator(b.deps.Decorator),
		hook.WithLogger(b.logger))
}

// render executes a templated field against vars, e.g.
// "TRUNCATE TABLE sales_{{ .ds_nodash }}". Unknown keys are an error.
func render(field, text string, vars map[string]string) (string, error) {
	if text == "" {
		return "", nil
	}
	tmpl, err := template.New(field).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeConfig, "invalid template").
			WithDetail("field", field)
	}

	data := make(map[string]string, len(vars))
	for k, v := range vars {
		data[k] = v
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeConfig, "failed to render template").
			WithDetail("field", field)
	}
	return buf.String(), nil
}
