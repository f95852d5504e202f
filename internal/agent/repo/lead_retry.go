package repo

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/autostream-sales-agent/server/internal/agent/model"
	errx "github.com/autostream-sales-agent/server/internal/core/error"
	logx "github.com/autostream-sales-agent/server/pkg/logger"
)

// RetryingLeadRegistry retries transient registration failures with exponential backoff.
type RetryingLeadRegistry struct {
	next     model.LeadRegistry
	maxTries uint
	initial  time.Duration
	max      time.Duration
}

type RetryOption func(*RetryingLeadRegistry)

// WithIntervals overrides the initial and maximum wait between attempts.
func WithIntervals(initial, max time.Duration) RetryOption {
	return func(r *RetryingLeadRegistry) {
		r.initial = initial
		r.max = max
	}
}

// NewRetryingLeadRegistry wraps next. maxRetries counts retries after the first attempt.
func NewRetryingLeadRegistry(next model.LeadRegistry, maxRetries int, opts ...RetryOption) *RetryingLeadRegistry {
	if maxRetries < 0 {
		maxRetries = 0
	}
	r := &RetryingLeadRegistry{
		next:     next,
		maxTries: uint(maxRetries) + 1,
		initial:  200 * time.Millisecond,
		max:      2 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RetryingLeadRegistry) RegisterLead(ctx context.Context, lead model.LeadRecord) (string, error) {
	// a stable id keeps retries of the same lead idempotent at the store
	if lead.ID == "" {
		lead.ID = newLeadID(lead)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial
	b.MaxInterval = r.max

	attempt := 0
	return backoff.Retry(ctx, func() (string, error) {
		attempt++
		id, err := r.next.RegisterLead(ctx, lead)
		if err == nil {
			return id, nil
		}
		if !retryable(err) {
			return "", backoff.Permanent(err)
		}
		logx.Warn().Err(err).Int("attempt", attempt).Str("session_id", lead.SessionID).Msg("Lead registration attempt failed")
		return "", err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(r.maxTries))
}

// retryable reports whether err may succeed on a later attempt. Client errors never do.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	status := errx.StatusOf(err)
	return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
}

var _ model.LeadRegistry = (*RetryingLeadRegistry)(nil)
