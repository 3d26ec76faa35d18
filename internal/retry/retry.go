// Package retry wraps store calls with bounded exponential backoff for transient
// connectivity failures.
package retry

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	DefaultMaxRetries  = 3
	DefaultBackoffBase = time.Second
	DefaultBackoffCap  = 5 * time.Second
)

// Policy configures Do. Zero values fall back to the defaults.
type Policy struct {
	MaxRetries  int
	BackoffBase time.Duration
	BackoffCap  time.Duration
	Classify    func(error) bool
	// Sleep waits between attempts; overridden in tests
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns the policy applied to identity and token-table reads
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:  DefaultMaxRetries,
		BackoffBase: DefaultBackoffBase,
		BackoffCap:  DefaultBackoffCap,
		Classify:    IsTransient,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = DefaultBackoffBase
	}
	if p.BackoffCap <= 0 {
		p.BackoffCap = DefaultBackoffCap
	}
	if p.Classify == nil {
		p.Classify = IsTransient
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	return p
}

// Backoff returns the delay before retry number attempt (1-based)
func (p Policy) Backoff(attempt int) time.Duration {
	p = p.normalized()
	d := p.BackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.BackoffCap {
			return p.BackoffCap
		}
	}
	if d > p.BackoffCap {
		return p.BackoffCap
	}
	return d
}

// Do runs op until it succeeds, fails permanently, or exhausts MaxRetries retries.
// The last error is returned unchanged.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalized()
	var zero T
	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if attempt >= p.MaxRetries || !p.Classify(err) {
			return zero, err
		}
		if sleepErr := p.Sleep(ctx, p.Backoff(attempt+1)); sleepErr != nil {
			return zero, err
		}
	}
}

// Transient applies the policy classifier to err
func (p Policy) Transient(err error) bool {
	return err != nil && p.normalized().Classify(err)
}

// Run is Do for operations without a result
func Run(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var transientMessages = []string{
	"connection reset",
	"connection refused",
	"broken pipe",
	"not queryable",
	"connection closed",
	"server closed the connection",
	"i/o timeout",
	"no connection",
	"too many clients",
}

// IsTransient reports whether err looks like a low-level connectivity failure
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, driver.ErrBadConn) || errors.Is(err, net.ErrClosed) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 08 connection exception, 57P01..57P03 shutdown / cannot connect now
		return strings.HasPrefix(pgErr.Code, "08") ||
			pgErr.Code == "57P01" || pgErr.Code == "57P02" || pgErr.Code == "57P03"
	}
	if pgconn.SafeToRetry(err) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
