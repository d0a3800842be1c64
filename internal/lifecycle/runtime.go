package lifecycle

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

type Component interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Funcs adapts a pair of functions to Component. Either may be nil.
type Funcs struct {
	StartFunc func(ctx context.Context) error
	StopFunc  func(ctx context.Context) error
}

func (f Funcs) Start(ctx context.Context) error {
	if f.StartFunc == nil {
		return nil
	}
	return f.StartFunc(ctx)
}

func (f Funcs) Stop(ctx context.Context) error {
	if f.StopFunc == nil {
		return nil
	}
	return f.StopFunc(ctx)
}

type namedComponent struct {
	name string
	Component
}

// Runtime starts components in registration order and stops them in reverse.
type Runtime struct {
	components []namedComponent
	started    []namedComponent
	logger     *log.Entry
}

func NewRuntime() *Runtime {
	return &Runtime{logger: log.WithField("object", "runtime")}
}

func (r *Runtime) Register(name string, component Component) {
	if component == nil {
		return
	}
	r.components = append(r.components, namedComponent{name: name, Component: component})
}

// Start stops everything it already started when a component fails.
func (r *Runtime) Start(ctx context.Context) error {
	r.started = make([]namedComponent, 0, len(r.components))
	for _, component := range r.components {
		if err := component.Start(ctx); err != nil {
			_ = r.stopComponents(ctx, r.started)
			r.started = nil
			return fmt.Errorf("start %s: %w", component.name, err)
		}
		r.logger.WithField("component", component.name).Debug("started")
		r.started = append(r.started, component)
	}
	return nil
}

// Stop only stops components that were started.
func (r *Runtime) Stop(ctx context.Context) error {
	err := r.stopComponents(ctx, r.started)
	r.started = nil
	return err
}

func (r *Runtime) stopComponents(ctx context.Context, components []namedComponent) error {
	var stopErr error
	for i := len(components) - 1; i >= 0; i-- {
		component := components[i]
		if err := component.Stop(ctx); err != nil {
			r.logger.WithError(err).WithField("component", component.name).Error("stop failed")
			stopErr = errors.Join(stopErr, fmt.Errorf("stop %s: %w", component.name, err))
			continue
		}
		r.logger.WithField("component", component.name).Debug("stopped")
	}
	return stopErr
}
