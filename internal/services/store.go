package services

import (
	"context"
	"errors"

	"github.com/you/trainerauth/domain"
	"github.com/you/trainerauth/internal/retry"
)

// fetch runs a store read under the retry policy. A transient failure that
// outlives the policy surfaces as ErrServiceUnavailable.
func fetch[T any](ctx context.Context, p retry.Policy, op func(ctx context.Context) (T, error)) (T, error) {
	v, err := retry.Do(ctx, p, op)
	return v, classify(p, err)
}

// classify leaves domain errors alone and maps connectivity failures to 503
func classify(p retry.Policy, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := domain.AsError(err); ok {
		return err
	}
	if p.Transient(err) {
		return domain.ErrServiceUnavailable.Wrap(err)
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrRecordNotFound)
}
