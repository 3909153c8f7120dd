package tracking

import "log/slog"

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger used for fixup decisions. Orphaning, delayed
// fixup and stale foreign keys are logged at debug level, rejected linkage
// calls at warn level. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithStats makes the tracker record into s, which may be shared with a
// metrics exporter or with other trackers.
func WithStats(s *Stats) Option {
	return func(t *Tracker) {
		if s != nil {
			t.stats = s
		}
	}
}
