package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
// Production code uses the real clock; tests inject a fake for deterministic output.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for snapshot date selection. Pass nil to
// reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// snapshotDateLayout matches the upstream daily report file naming, MM-DD-YYYY.
const snapshotDateLayout = "01-02-2006"

// reference anchors "yesterday" to the publisher's timezone (US Eastern).
// Computing it in UTC+ zones would request dates the upstream has not
// published yet.
var reference = loadReference()

func loadReference() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}

// SnapshotDate returns yesterday's date in the reference timezone,
// formatted the way the daily report files are named.
func SnapshotDate() string {
	return clock.Now().In(reference).AddDate(0, 0, -1).Format(snapshotDateLayout)
}
