// Package runner orchestrates discovery passes: optional seeding from a
// persisted discovery, bounded retries with a fixed delay, and an optional
// second pass used as a sanity check.
package runner

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/screa/evm-discovery/internal/logger"
	"github.com/screa/evm-discovery/internal/metrics"
	"github.com/screa/evm-discovery/internal/tracing"
	"github.com/screa/evm-discovery/pkg/types"
)

// Engine performs a single discovery pass
type Engine interface {
	Discover(ctx context.Context, cfg types.Config, blockNumber uint64) (types.Discovery, error)
}

// AddressReader returns addresses persisted by an earlier discovery of a project
type AddressReader interface {
	PersistedAddresses(ctx context.Context, name, chain string) ([]common.Address, error)
}

// SanityChecker compares the results of two passes over the same block
type SanityChecker interface {
	Check(first, second types.Discovery) error
}

// StateHook observes every state transition of a pass
type StateHook func(pass, attempt int, state State)

// Runner wraps an Engine with retries and sanity checking.
// A Runner holds no per-call state and is safe for concurrent use.
type Runner struct {
	engine  Engine
	reader  AddressReader
	checker SanityChecker
	hook    StateHook
	logger  log.FieldLogger
}

// Option configures a Runner
type Option func(*Runner)

// WithSanityChecker compares the two passes of a sanity-checked run
func WithSanityChecker(c SanityChecker) Option {
	return func(r *Runner) { r.checker = c }
}

// WithStateHook reports state transitions to h
func WithStateHook(h StateHook) Option {
	return func(r *Runner) { r.hook = h }
}

// WithLogger sets the logger
func WithLogger(l log.FieldLogger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a runner. reader may be nil when runs never inject addresses.
func NewRunner(engine Engine, reader AddressReader, opts ...Option) *Runner {
	r := &Runner{
		engine: engine,
		reader: reader,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logger.OrDiscard(r.logger)
	return r
}

// Run discovers cfg at blockNumber according to opts and returns the result of
// the first pass. cfg is never modified. When retries are exhausted the error
// of the last attempt is returned as is.
func (r *Runner) Run(ctx context.Context, cfg types.Config, blockNumber uint64, opts types.Options) (types.Discovery, error) {
	if err := opts.Validate(); err != nil {
		return types.Discovery{}, err
	}

	passCfg := cfg.Clone()
	if opts.InjectInitialAddresses {
		if r.reader == nil {
			return types.Discovery{}, ErrNoAddressReader
		}
		addrs, err := r.reader.PersistedAddresses(ctx, cfg.Name(), cfg.Chain())
		if err != nil {
			return types.Discovery{}, err
		}
		r.logger.WithFields(log.Fields{
			"project": cfg.Name(),
			"chain":   cfg.Chain(),
			"count":   len(addrs),
		}).Info("Injecting persisted initial addresses")
		passCfg = passCfg.WithInitialAddresses(addrs)
	}

	first, err := r.pass(ctx, 1, passCfg, blockNumber, opts)
	if err != nil {
		return types.Discovery{}, err
	}
	if !opts.RunSanityCheck {
		return first, nil
	}

	r.logger.WithField("project", cfg.Name()).Info("Running sanity check pass")
	second, err := r.pass(ctx, 2, passCfg, blockNumber, opts)
	if err != nil {
		return types.Discovery{}, err
	}
	if r.checker != nil {
		err := r.checker.Check(first, second)
		metrics.SanityChecks.WithLabelValues(metrics.Result(err)).Inc()
		if err != nil {
			return types.Discovery{}, err
		}
	}
	return first, nil
}

// pass runs one requested pass under the retry policy. Every attempt gets its
// own copy of cfg.
func (r *Runner) pass(ctx context.Context, pass int, cfg types.Config, blockNumber uint64, opts types.Options) (types.Discovery, error) {
	ctx, end := tracing.StartSpan(ctx, "discovery.pass",
		attribute.String("project", cfg.Name()),
		attribute.String("chain", cfg.Chain()),
		attribute.Int64("block", int64(blockNumber)),
		attribute.Int("pass", pass),
	)

	fields := log.Fields{"project": cfg.Name(), "chain": cfg.Chain(), "pass": pass}
	attempt := 0
	r.transition(pass, attempt, StateIdle)

	operation := func() (types.Discovery, error) {
		attempt++
		r.transition(pass, attempt, StateAttempting)
		d, err := r.engine.Discover(ctx, cfg.Clone(), blockNumber)
		metrics.Attempts.WithLabelValues(metrics.Result(err)).Inc()
		if err != nil {
			r.transition(pass, attempt, StateFailed)
			return types.Discovery{}, err
		}
		return d, nil
	}

	d, err := backoff.Retry(ctx, operation, retryOptions(opts, func(err error, next time.Duration) {
		metrics.Retries.Inc()
		r.logger.WithFields(fields).WithFields(log.Fields{
			"attempt": attempt,
			"retryIn": next,
		}).WithError(err).Warn("Discovery attempt failed, retrying")
		r.transition(pass, attempt, StateRetryWait)
	})...)
	metrics.Passes.WithLabelValues(metrics.Result(err)).Inc()
	end(err)
	if err != nil {
		r.logger.WithFields(fields).WithField("attempts", attempt).WithError(err).Error("Discovery failed")
		return types.Discovery{}, err
	}

	r.transition(pass, attempt, StateSucceeded)
	metrics.Entries.Set(float64(len(d.Entries)))
	return d, nil
}

func (r *Runner) transition(pass, attempt int, state State) {
	if r.hook != nil {
		r.hook(pass, attempt, state)
	}
}
