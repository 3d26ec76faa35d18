package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingPolicy(maxRetries int) (Policy, *[]time.Duration) {
	var waits []time.Duration
	p := DefaultPolicy()
	p.MaxRetries = maxRetries
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return p, &waits
}

func TestDo(t *testing.T) {
	transient := fmt.Errorf("query users: %w", syscall.ECONNRESET)
	permanent := errors.New("duplicate key value violates unique constraint")

	tests := []struct {
		name          string
		maxRetries    int
		failures      []error
		expectedCalls int
		expectedErr   error
		expectedWaits []time.Duration
	}{
		{
			name:          "succeeds first time",
			maxRetries:    3,
			expectedCalls: 1,
		},
		{
			name:          "recovers after transient failures",
			maxRetries:    3,
			failures:      []error{transient, transient},
			expectedCalls: 3,
			expectedWaits: []time.Duration{time.Second, 2 * time.Second},
		},
		{
			name:          "permanent error is not retried",
			maxRetries:    3,
			failures:      []error{permanent},
			expectedCalls: 1,
			expectedErr:   permanent,
		},
		{
			name:          "final transient failure propagates unchanged",
			maxRetries:    3,
			failures:      []error{transient, transient, transient, transient, transient},
			expectedCalls: 4,
			expectedErr:   transient,
			expectedWaits: []time.Duration{time.Second, 2 * time.Second, 4 * time.Second},
		},
		{
			name:          "zero retries runs once",
			maxRetries:    0,
			failures:      []error{transient},
			expectedCalls: 1,
			expectedErr:   transient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, waits := recordingPolicy(tt.maxRetries)
			calls := 0

			result, err := Do(context.Background(), policy, func(ctx context.Context) (string, error) {
				calls++
				if calls <= len(tt.failures) {
					return "", tt.failures[calls-1]
				}
				return "ok", nil
			})

			assert.Equal(t, tt.expectedCalls, calls)
			assert.Equal(t, tt.expectedWaits, *waits)
			if tt.expectedErr != nil {
				assert.Same(t, tt.expectedErr, err)
				assert.Empty(t, result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok", result)
		})
	}
}

func TestBackoffIsCapped(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, time.Second, p.Backoff(1))
	assert.Equal(t, 2*time.Second, p.Backoff(2))
	assert.Equal(t, 4*time.Second, p.Backoff(3))
	assert.Equal(t, 5*time.Second, p.Backoff(4))
	assert.Equal(t, 5*time.Second, p.Backoff(10))
}

func TestDoStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := DefaultPolicy()
	p.BackoffBase = time.Hour
	calls := 0
	err := Run(ctx, p, func(ctx context.Context) error {
		calls++
		return syscall.ECONNREFUSED
	})

	assert.ErrorIs(t, err, syscall.ECONNREFUSED)
	assert.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"connection reset", syscall.ECONNRESET, true},
		{"connection refused wrapped", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"net op error", &net.OpError{Op: "read", Net: "tcp", Err: errors.New("timeout")}, true},
		{"postgres connection exception", &pgconn.PgError{Code: "08006"}, true},
		{"postgres admin shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"postgres unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"not queryable message", errors.New("pool is not queryable"), true},
		{"context cancelled", context.Canceled, false},
		{"plain error", errors.New("record not found"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsTransient(tt.err))
		})
	}
}
