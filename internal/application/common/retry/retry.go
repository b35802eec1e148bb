// Package retry runs operations with exponential backoff. funcscan uses it to
// connect report sinks that may still be starting up.
package retry

import (
	"context"
	"errors"
	"fmt"
	"funcscan/internal/application/common/slogger"
	"math"
	"math/rand/v2"
	"net"
	"strings"
	"syscall"
	"time"
)

// Config defines retry behavior.
type Config struct {
	MaxRetries    int           `json:"max_retries"`
	InitialDelay  time.Duration `json:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor"`
	Jitter        bool          `json:"jitter"`
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:    3,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// Operation is a unit of work that can be retried.
type Operation func(ctx context.Context) error

// Checker decides whether an error is worth another attempt.
type Checker interface {
	IsRetryable(err error) bool
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(err error) bool

// IsRetryable implements Checker.
func (f CheckerFunc) IsRetryable(err error) bool { return f(err) }

// Executor runs operations with retries.
type Executor struct {
	config  Config
	checker Checker
	name    string
}

// NewExecutor creates an executor. A nil checker means TransientChecker.
func NewExecutor(name string, config Config, checker Checker) *Executor {
	if checker == nil {
		checker = TransientChecker{}
	}
	if config.BackoffFactor < 1 {
		config.BackoffFactor = 1
	}
	return &Executor{config: config, checker: checker, name: name}
}

// Execute runs operation until it succeeds, fails with a non-retryable error,
// runs out of retries, or ctx is done.
func (e *Executor) Execute(ctx context.Context, operation Operation) error {
	var lastErr error

	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := e.delay(attempt)
			slogger.Debug(ctx, "Retrying operation after delay", slogger.Fields{
				"operation":   e.name,
				"attempt":     attempt,
				"max_retries": e.config.MaxRetries,
				"delay_ms":    delay.Milliseconds(),
			})

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := operation(ctx)
		if err == nil {
			if attempt > 0 {
				slogger.Info(ctx, "Operation succeeded after retries", slogger.Fields{
					"operation": e.name,
					"attempt":   attempt + 1,
				})
			}
			return nil
		}
		lastErr = err

		if !e.checker.IsRetryable(err) {
			return err
		}

		slogger.Warn(ctx, "Operation failed, will retry", slogger.Fields{
			"operation":   e.name,
			"error":       err.Error(),
			"attempt":     attempt + 1,
			"max_retries": e.config.MaxRetries,
		})
	}

	return fmt.Errorf("%s failed after %d retries: %w", e.name, e.config.MaxRetries, lastErr)
}

// delay returns the backoff before attempt (1-based), capped at MaxDelay and
// optionally spread by up to 25% either way.
func (e *Executor) delay(attempt int) time.Duration {
	d := float64(e.config.InitialDelay) * math.Pow(e.config.BackoffFactor, float64(attempt-1))
	if e.config.MaxDelay > 0 && d > float64(e.config.MaxDelay) {
		d = float64(e.config.MaxDelay)
	}
	if e.config.Jitter {
		d += (rand.Float64()*2 - 1) * d * 0.25 //nolint:gosec // jitter only
	}
	return time.Duration(d)
}

// TransientChecker retries network failures and the usual transient
// messages from PostgreSQL and NATS.
type TransientChecker struct{}

var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"timed out",
	"too many connections",
	"no servers available",
	"temporarily unavailable",
	"try again",
	"the database system is starting up",
}

// IsRetryable implements Checker.
func (TransientChecker) IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// Do runs operation with config and the transient checker.
func Do(ctx context.Context, name string, config Config, operation Operation) error {
	return NewExecutor(name, config, nil).Execute(ctx, operation)
}
