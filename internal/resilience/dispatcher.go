// Package resilience wraps push transports with retry and circuit breaking.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"

	"github.com/tinywideclouds/go-push-notifier/pkg/dispatch"
	"github.com/tinywideclouds/go-push-notifier/pkg/notification"
)

// ErrCircuitOpen is returned when the transport's circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config controls retries and the circuit breaker around a transport.
type Config struct {
	// Name identifies the circuit breaker in logs.
	Name string

	// MaxRetries is the number of retries after the first attempt.
	// Zero disables retrying.
	MaxRetries uint64

	InitialInterval time.Duration
	MaxInterval     time.Duration

	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration

	// ReadyToTrip decides when to open the breaker. Defaults to
	// DefaultReadyToTrip.
	ReadyToTrip func(counts gobreaker.Counts) bool
}

// DefaultConfig returns the retry policy used when none is configured.
func DefaultConfig(name string) Config {
	return Config{
		Name:            name,
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		BreakerTimeout:  60 * time.Second,
		ReadyToTrip:     DefaultReadyToTrip,
	}
}

// DefaultReadyToTrip trips after 5 consecutive failed dispatches.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	return counts.ConsecutiveFailures >= 5
}

type dispatchResult struct {
	receipt string
	invalid []string
}

// Dispatcher retries a wrapped dispatch.Dispatcher with exponential backoff
// and stops calling it while its circuit breaker is open.
type Dispatcher struct {
	next    dispatch.Dispatcher
	breaker *gobreaker.CircuitBreaker[dispatchResult]
	cfg     Config
	logger  *slog.Logger
}

// Wrap decorates next with the retry policy in cfg.
func Wrap(next dispatch.Dispatcher, cfg Config, logger *slog.Logger) *Dispatcher {
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 60 * time.Second
	}
	if cfg.ReadyToTrip == nil {
		cfg.ReadyToTrip = DefaultReadyToTrip
	}

	logger = logger.With("component", "ResilientDispatcher", "name", cfg.Name)
	breaker := gobreaker.NewCircuitBreaker[dispatchResult](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: cfg.ReadyToTrip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	})

	return &Dispatcher{
		next:    next,
		breaker: breaker,
		cfg:     cfg,
		logger:  logger,
	}
}

// Dispatch calls the wrapped dispatcher until it succeeds, the retries are
// exhausted, the context ends or the breaker opens. When an attempt fails
// with a *dispatch.RetryableError only its FailedKeys are sent again, so a
// delivered key is never resent. Receipts and invalid keys of every attempt
// are returned.
func (d *Dispatcher) Dispatch(ctx context.Context, keys []string, n *notification.Notification) (string, []string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.cfg.InitialInterval
	bo.MaxInterval = d.cfg.MaxInterval
	bo.MaxElapsedTime = 0

	var (
		receipts []string
		invalid  []string
		attempt  int
	)
	pending := keys

	operation := func() error {
		attempt++
		res, err := d.breaker.Execute(func() (dispatchResult, error) {
			receipt, inv, err := d.next.Dispatch(ctx, pending, n)
			return dispatchResult{receipt: receipt, invalid: inv}, err
		})
		invalid = appendUnique(invalid, res.invalid)
		if res.receipt != "" {
			receipts = append(receipts, res.receipt)
		}
		if err == nil {
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrCircuitOpen)
		}

		var retryable *dispatch.RetryableError
		if errors.As(err, &retryable) {
			if len(retryable.FailedKeys) == 0 {
				return backoff.Permanent(err)
			}
			pending = retryable.FailedKeys
		}
		d.logger.Warn("Dispatch attempt failed", "attempt", attempt, "pending", len(pending), "err", err)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, d.cfg.MaxRetries), ctx)
	err := backoff.Retry(operation, policy)
	return strings.Join(receipts, "; "), invalid, err
}

// Config returns the policy in effect after defaults were applied.
func (d *Dispatcher) Config() Config {
	return d.cfg
}

// State reports the breaker state.
func (d *Dispatcher) State() gobreaker.State {
	return d.breaker.State()
}

func appendUnique(dst, src []string) []string {
	for _, s := range src {
		seen := false
		for _, existing := range dst {
			if existing == s {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, s)
		}
	}
	return dst
}
