package provision

import (
	"context"
	"fmt"
	"log/slog"

	"vaultd/internal/platform/metrics"
)

// Runtime executes provision requests on a single background worker, so vault
// creation never blocks the requesting operation and completions for a given
// runtime are delivered one at a time, in order.
type Runtime struct {
	factory Factory
	handler ResultHandler
	inbox   chan Request
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures the Runtime.
type Option func(*Runtime)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runtime) {
		r.metrics = m
	}
}

func WithQueueDepth(depth int) Option {
	return func(r *Runtime) {
		if depth > 0 {
			r.inbox = make(chan Request, depth)
		}
	}
}

// NewRuntime constructs a runtime serving one factory and one result handler.
func NewRuntime(factory Factory, handler ResultHandler, opts ...Option) *Runtime {
	r := &Runtime{
		factory: factory,
		handler: handler,
		inbox:   make(chan Request, 16),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Provision enqueues the request and returns immediately. Once accepted there
// is no cancellation: the worker will deliver exactly one result.
func (r *Runtime) Provision(ctx context.Context, req Request) error {
	if req.Token == "" {
		return fmt.Errorf("provision request requires a correlation token")
	}
	select {
	case r.inbox <- req:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue provision request: %w", ctx.Err())
	}
}

// Run processes requests until ctx is cancelled. Each request produces exactly
// one completion result, delivered to the handler before the next request is
// taken.
func (r *Runtime) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-r.inbox:
			r.execute(ctx, req)
		}
	}
}

func (r *Runtime) execute(ctx context.Context, req Request) {
	res := Result{Token: req.Token}

	info, err := r.factory.Instantiate(ctx, req.Template, req.Init)
	if err != nil {
		res.Failed = true
		res.FailureDetail = err.Error()
		r.logger.WarnContext(ctx, "vault instantiation failed",
			"token", req.Token,
			"identity_id", req.Init.IdentityID,
			"error", err.Error(),
		)
		if r.metrics != nil {
			r.metrics.IncrementProvisionsFailed()
		}
	} else {
		res.Callback = &info
		if r.metrics != nil {
			r.metrics.IncrementProvisionsSucceeded()
		}
	}

	// The handler owns what a completion means; the runtime only guarantees
	// delivery. A rejected completion is terminal for that registration.
	if err := r.handler.HandleProvisionResult(ctx, res); err != nil {
		r.logger.ErrorContext(ctx, "completion handler rejected provision result",
			"token", req.Token,
			"identity_id", req.Init.IdentityID,
			"error", err.Error(),
		)
	}
}
