package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxAttempts is the total attempt budget per logical call.
const maxAttempts = 3

// defaultBackoffBase seeds the backoff formulas below.
const defaultBackoffBase = time.Second

// retryer runs a single-attempt function up to maxAttempts times,
// classifying each failure and backing off between retryable ones.
//
// Backoff shape (attempt i is 1-based):
//   - rate-limit:      base * 2^i * 2   (doubled exponential)
//   - timeout/network: base * 2^(i-1)
//   - auth/config/quota/safety: no retry, immediate escalation.
//
// Each attempt races the backend call against a hard per-call timeout.
// The attempt goroutine writes into a buffered channel, so a result that
// arrives after the timeout fired is discarded, not awaited.
type retryer struct {
	provider string
	base     time.Duration
	sleep    func(time.Duration) // stubbed in tests
	log      *zap.Logger
}

func newRetryer(providerName string, log *zap.Logger) retryer {
	return retryer{
		provider: providerName,
		base:     defaultBackoffBase,
		sleep:    time.Sleep,
		log:      log,
	}
}

type attemptResult struct {
	text string
	err  error
}

// do executes fn with retry, classification and timeout racing.
func (r retryer) do(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (string, error)) (string, error) {
	requestID := uuid.NewString()
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		results := make(chan attemptResult, 1)
		go func() {
			text, err := fn(attemptCtx)
			results <- attemptResult{text: text, err: err}
		}()

		var res attemptResult
		select {
		case res = <-results:
		case <-attemptCtx.Done():
			res = attemptResult{err: newError(KindTimeout, r.provider,
				fmt.Sprintf("call timed out after %s", timeout), attemptCtx.Err())}
		}
		cancel()

		// A canceled parent context is the caller giving up, not a slow
		// backend; escalate without burning backoff sleeps.
		if res.err != nil && ctx.Err() != nil {
			return "", newError(KindTimeout, r.provider, "call canceled", ctx.Err())
		}

		if res.err == nil {
			if attempt > 1 {
				r.log.Info("call recovered after retry",
					zap.String("request_id", requestID),
					zap.Int("attempt", attempt))
			}
			return res.text, nil
		}

		kind := kindOf(res.err)
		lastErr = res.err
		r.log.Warn("provider call failed",
			zap.String("request_id", requestID),
			zap.Int("attempt", attempt),
			zap.Stringer("kind", kind),
			zap.Error(res.err))

		// Terminal classes escalate immediately with zero delay. The
		// error is already classified and redacted at construction.
		switch kind {
		case KindAuth, KindConfig, KindQuota, KindSafety:
			return "", res.err
		}

		if attempt == maxAttempts {
			break
		}
		r.sleep(r.backoff(kind, attempt))
	}

	return "", newError(kindOf(lastErr), r.provider,
		fmt.Sprintf("call failed after %d attempts", maxAttempts), lastErr)
}

// backoff returns the delay after a failed attempt (1-based).
func (r retryer) backoff(kind Kind, attempt int) time.Duration {
	base := r.base
	if base <= 0 {
		base = defaultBackoffBase
	}
	if kind == KindRateLimit {
		return base * time.Duration(1<<uint(attempt)) * 2
	}
	return base * time.Duration(1<<uint(attempt-1))
}
