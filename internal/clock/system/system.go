// Package system provides the wall-clock implementation of crawler.Clock
// used by live crawl sessions; tests substitute fixed or fake clocks.
package system

import "time"

// Clock reads the system time. Timestamps are UTC so frontier deadlines,
// checkpoint save times, and record scrape times compare consistently.
type Clock struct{}

// New returns the wall clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
