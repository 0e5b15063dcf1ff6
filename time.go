package auth

import "time"

// WithinWindow reports whether t happened less than window before now
func WithinWindow(t, now time.Time, window time.Duration) bool {
	return t.After(now.Add(-window))
}

// WindowElapsed is the negation of WithinWindow
func WindowElapsed(t, now time.Time, window time.Duration) bool {
	return !WithinWindow(t, now, window)
}

// ParseWindow parses a duration expression such as "24h" or "15m". Empty
// or invalid expressions fall back to def.
func ParseWindow(expr string, def time.Duration) time.Duration {
	if expr == "" {
		return def
	}
	d, err := time.ParseDuration(expr)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
