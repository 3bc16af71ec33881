// Package status classifies nodes by the age of their last realtime update
// and normalizes the mixed timestamp representations sensors send.
package status

import (
	"strconv"
	"time"
)

// Status is the liveness classification of a node.
type Status string

const (
	Online  Status = "online"
	Warning Status = "warning"
	Offline Status = "offline"
)

// Thresholds selects the classification boundaries. The original dashboard
// only distinguished online/offline at the five-minute mark while the detail
// views used a three-state scheme; callers pick explicitly rather than
// inheriting either behavior.
type Thresholds struct {
	Online  time.Duration // age below this is online
	Warning time.Duration // age below this (and above Online) is warning
}

var (
	// Tiered produces online/warning/offline.
	Tiered = Thresholds{Online: 5 * time.Minute, Warning: 15 * time.Minute}
	// Binary collapses the warning band: online under five minutes,
	// offline otherwise.
	Binary = Thresholds{Online: 5 * time.Minute, Warning: 5 * time.Minute}
)

// Classify maps a last-update timestamp (epoch millis, 0 meaning never) to a
// status under the given thresholds.
func Classify(lastUpdateMillis int64, now time.Time, t Thresholds) Status {
	if lastUpdateMillis <= 0 {
		return Offline
	}
	age := now.Sub(time.UnixMilli(lastUpdateMillis))
	if age < t.Online {
		return Online
	}
	if age < t.Warning {
		return Warning
	}
	return Offline
}

// epoch-second values fit in ~10 digits until the year 33658; anything at or
// above this is already milliseconds.
const millisFloor = int64(1) << 40

// NormalizeMillis converts a raw timestamp value from a sensor payload to
// epoch milliseconds. Sensors send either epoch seconds as a string or epoch
// milliseconds as a JSON number; this is the single place that ambiguity is
// resolved before the value crosses into business logic. Returns false for
// anything unparseable or non-positive.
func NormalizeMillis(raw interface{}) (int64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case string:
		sec, err := strconv.ParseInt(v, 10, 64)
		if err != nil || sec <= 0 {
			return 0, false
		}
		if sec >= millisFloor {
			return sec, true
		}
		return sec * 1000, true
	case float64:
		return normalizeNumeric(int64(v))
	case int64:
		return normalizeNumeric(v)
	case int:
		return normalizeNumeric(int64(v))
	default:
		return 0, false
	}
}

func normalizeNumeric(n int64) (int64, bool) {
	if n <= 0 {
		return 0, false
	}
	if n >= millisFloor {
		return n, true
	}
	return n * 1000, true
}
