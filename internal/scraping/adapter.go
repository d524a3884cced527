// Package scraping defines the contract every scraping backend must
// satisfy and the typed error taxonomy handlers dispatch on.
package scraping

import (
	"context"
	"errors"
	"fmt"

	"github.com/bloglens/intel-service/internal/domain"
)

// Adapter is the interface full_scrape and discover handlers depend on.
// Two interchangeable backends may implement it; neither is part of
// this package's exported surface.
type Adapter interface {
	ScrapeProfile(ctx context.Context, username string) (domain.ScrapedProfile, error)
	Discover(ctx context.Context, hashtag string, minFollowers int) ([]domain.DiscoveredProfile, error)
}

// Typed error taxonomy. Handlers switch on these via errors.As/errors.Is
// to decide the task/blog status transition (never on string matching).
var (
	// ErrPrivateAccount: account exists but cannot be scraped publicly.
	ErrPrivateAccount = errors.New("scraping: account is private")
	// ErrUserNotFound: account deleted or never existed.
	ErrUserNotFound = errors.New("scraping: user not found")
)

// InsufficientBalanceError signals the backend's own credits are
// exhausted; retrying is never useful until an operator tops up.
type InsufficientBalanceError struct {
	Detail string
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("scraping: insufficient balance: %s", e.Detail)
}

// RateLimitedError signals a 429-class response from the backend.
// Always retryable with backoff.
type RateLimitedError struct {
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("scraping: rate limited, retry after %ds", e.RetryAfterSeconds)
}

// TransientError wraps a 5xx or network-level failure from the
// backend. Always retryable with backoff.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("scraping: transient failure: %v", e.Cause)
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// Classify maps an arbitrary adapter error to the outcome kind the
// full_scrape/discover handlers need, so the handler package has one
// place to reason about retry-vs-terminal instead of duplicating
// errors.As chains at every call site.
type Outcome int

const (
	OutcomePrivate Outcome = iota
	OutcomeNotFound
	OutcomeInsufficientBalance
	OutcomeRetryable
	OutcomeUnknown
)

func Classify(err error) Outcome {
	if err == nil {
		return OutcomeUnknown
	}
	switch {
	case errors.Is(err, ErrPrivateAccount):
		return OutcomePrivate
	case errors.Is(err, ErrUserNotFound):
		return OutcomeNotFound
	}
	var insufficient *InsufficientBalanceError
	if errors.As(err, &insufficient) {
		return OutcomeInsufficientBalance
	}
	var rateLimited *RateLimitedError
	if errors.As(err, &rateLimited) {
		return OutcomeRetryable
	}
	var transient *TransientError
	if errors.As(err, &transient) {
		return OutcomeRetryable
	}
	return OutcomeUnknown
}
