package monitor

import "time"

// SummaryPolicy caps how often the digest is sent.
type SummaryPolicy struct {
	Enabled  bool
	Hour     int
	Location *time.Location
}

// ShouldSend reports whether a run with the given trigger, started at now, sends a summary.
// Manual and unspecified runs always do; scheduled runs only during the configured hour.
func (p SummaryPolicy) ShouldSend(trigger Trigger, now time.Time) bool {
	if !p.Enabled {
		return false
	}
	switch trigger {
	case TriggerManual, TriggerUnspecified:
		return true
	case TriggerScheduled:
		loc := p.Location
		if loc == nil {
			loc = time.UTC
		}
		return now.In(loc).Hour() == p.Hour
	default:
		return false
	}
}
