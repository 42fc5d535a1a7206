package harvest

import "time"

// retryState tracks the per-tile retry budget and the cooldown imposed by
// throttling responses. It is a plain state machine so the policy can be
// exercised with a fake clock, away from any real waiting.
//
// Transient responses (429/5xx) set a cooldown and do NOT consume the
// budget; any other failure consumes one attempt. The budget covers
// attempts, so a tile with maxAttempts=3 is fetched at most three times
// outside of cooldown retries.
type retryState struct {
	attempts      int
	maxAttempts   int
	cooldownUntil time.Time
}

func newRetryState(maxAttempts int) *retryState {
	return &retryState{maxAttempts: maxAttempts}
}

// onTransient records a throttling/server failure: the same attempt will
// be retried once the cooldown expires.
func (s *retryState) onTransient(now time.Time, cooldown time.Duration) {
	s.cooldownUntil = now.Add(cooldown)
}

// onFailure consumes one attempt and reports whether budget remains.
func (s *retryState) onFailure() bool {
	s.attempts++
	return s.attempts < s.maxAttempts
}

// coolingDown reports whether the tile is still inside a throttling pause,
// and how long remains.
func (s *retryState) coolingDown(now time.Time) (time.Duration, bool) {
	if now.Before(s.cooldownUntil) {
		return s.cooldownUntil.Sub(now), true
	}
	return 0, false
}
