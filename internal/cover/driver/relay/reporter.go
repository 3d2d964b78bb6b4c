package relay

import (
	"time"

	"github.com/jkaflik/cover2mqtt/internal/cover"
)

// reporter paces periodic position reports: often while moving, rarely as a
// keep alive otherwise. Events emitted on completion or stop do not count.
type reporter struct {
	notifyPeriod    time.Duration
	keepAlivePeriod time.Duration

	last time.Time
}

func newReporter(cfg Config) reporter {
	return reporter{
		notifyPeriod:    cfg.NotifyPeriod(),
		keepAlivePeriod: cfg.KeepAlivePeriod(),
	}
}

// due reports whether a report is needed at now and, if so, records it as sent.
func (r *reporter) due(state cover.State, now time.Time) bool {
	period := r.keepAlivePeriod
	if state == cover.StateRollingUp || state == cover.StateRollingDown {
		period = r.notifyPeriod
	}

	if !r.last.IsZero() && now.Sub(r.last) < period {
		return false
	}
	r.last = now

	return true
}
