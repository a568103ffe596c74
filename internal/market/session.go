package market

import "time"

// forex, metals and oils trade continuously except for the weekend break
// between Friday 22:00 UTC and Sunday 22:00 UTC. Crypto never closes.
const weekendEdgeHourUTC = 22

// IsOpen reports whether the symbol's market accepts orders at the given
// instant.
func IsOpen(symbol string, at time.Time) bool {
	if Classify(symbol) == ClassCrypto {
		return true
	}

	utc := at.UTC()
	switch utc.Weekday() {
	case time.Saturday:
		return false
	case time.Friday:
		return utc.Hour() < weekendEdgeHourUTC
	case time.Sunday:
		return utc.Hour() >= weekendEdgeHourUTC
	default:
		return true
	}
}

// NextOpen returns the next instant at or after t when the symbol's market
// is open. For an already-open market it returns t unchanged.
func NextOpen(symbol string, t time.Time) time.Time {
	if IsOpen(symbol, t) {
		return t
	}

	utc := t.UTC()
	// The only closed window is the weekend, so the next open is the coming
	// Sunday 22:00 UTC.
	for utc.Weekday() != time.Sunday {
		utc = utc.Truncate(24 * time.Hour).Add(24 * time.Hour)
	}
	return time.Date(utc.Year(), utc.Month(), utc.Day(), weekendEdgeHourUTC, 0, 0, 0, time.UTC)
}
