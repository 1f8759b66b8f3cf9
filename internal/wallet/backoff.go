package wallet

import "time"

type attemptState struct {
	failed      int
	lockedUntil time.Time
}

// retryAfter returns how long path stays locked at now, zero when it is not.
func (s *Service) retryAfter(path string, now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.attempts[path]
	if !ok || st.lockedUntil.IsZero() || !now.Before(st.lockedUntil) {
		return 0
	}
	return st.lockedUntil.Sub(now)
}

func (s *Service) onFailedAttempt(path string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.attempts[path]
	if !ok {
		st = &attemptState{}
		s.attempts[path] = st
	}
	st.failed++
	if backoff := failedAttemptBackoff(st.failed, s.maxBackoff); backoff > 0 {
		st.lockedUntil = now.Add(backoff)
	}
}

func (s *Service) resetAttempts(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, path)
}

// failedAttemptBackoff doubles from one second and stops at max; a zero max
// disables the lockout.
func failedAttemptBackoff(attempt int, max time.Duration) time.Duration {
	if attempt <= 0 || max <= 0 {
		return 0
	}
	backoff := time.Second
	for i := 1; i < attempt && backoff < max; i++ {
		backoff *= 2
	}
	if backoff > max {
		return max
	}
	return backoff
}
