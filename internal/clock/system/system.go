// Package system provides the wall clock.
package system

import "time"

// Clock reports wall-clock time in a fixed location.
type Clock struct {
	loc *time.Location
}

// New creates a Clock for loc; nil means UTC.
func New(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc}
}

// Now returns the current time in the clock's location.
func (c *Clock) Now() time.Time {
	return time.Now().In(c.loc)
}
