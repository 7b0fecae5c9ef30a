package player

import "time"

// SetRemoteClock replaces the wall clock used for extrapolation.
func SetRemoteClock(r *Remote, now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}
