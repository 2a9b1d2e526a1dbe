package runner

import (
	"errors"

	"github.com/cenkalti/backoff/v5"

	"github.com/screa/evm-discovery/pkg/types"
)

// Errors
var (
	ErrNoAddressReader = errors.New("address injection requested but no address reader configured")
)

// State is the state of a single requested pass
type State int

const (
	StateIdle State = iota
	StateAttempting
	StateRetryWait
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttempting:
		return "attempting"
	case StateRetryWait:
		return "retry-wait"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// retryOptions turns run options into a back-off policy: a constant delay,
// MaxRetries+1 tries in total and no elapsed-time limit.
func retryOptions(opts types.Options, notify backoff.Notify) []backoff.RetryOption {
	return []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewConstantBackOff(opts.RetryDelay)),
		backoff.WithMaxTries(uint(opts.MaxRetries) + 1),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	}
}
