// Package supervisor runs the long-lived background services of LibFlow
// (the floor display and the metrics server) under a suture tree, so a
// crashing service is restarted with backoff instead of taking the app down.
package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay in seconds.
	FailureDecay float64

	// FailureBackoff is the wait once the threshold is exceeded.
	FailureBackoff time.Duration

	// ShutdownTimeout bounds how long a service may take to stop.
	ShutdownTimeout time.Duration
}

func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree has two layers: display runs the seat simulation and its sinks,
// ops runs the metrics server.
type Tree struct {
	root    *suture.Supervisor
	display *suture.Supervisor
	ops     *suture.Supervisor
	config  TreeConfig
}

func NewTree(log zerolog.Logger, config TreeConfig) *Tree {
	defaults := DefaultTreeConfig()
	if config.FailureThreshold == 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = defaults.FailureDecay
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = defaults.FailureBackoff
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}

	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}
	rootSpec := childSpec
	rootSpec.EventHook = EventHook(log)

	root := suture.New("libflow", rootSpec)
	display := suture.New("display-layer", childSpec)
	ops := suture.New("ops-layer", childSpec)
	root.Add(display)
	root.Add(ops)

	return &Tree{
		root:    root,
		display: display,
		ops:     ops,
		config:  config,
	}
}

// EventHook logs supervisor events through zerolog.
func EventHook(log zerolog.Logger) suture.EventHook {
	return func(ev suture.Event) {
		entry := log.Warn()
		if ev.Type() == suture.EventTypeServicePanic {
			entry = log.Error()
		}
		entry.Fields(ev.Map()).Msg(ev.String())
	}
}

func (t *Tree) AddDisplayService(svc suture.Service) suture.ServiceToken {
	return t.display.Add(svc)
}

func (t *Tree) AddOpsService(svc suture.Service) suture.ServiceToken {
	return t.ops.Add(svc)
}

// Serve blocks until ctx is canceled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
