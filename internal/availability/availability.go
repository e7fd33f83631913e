// Package availability decides whether a candidate date range can be booked
// for a room. All functions are pure; callers supply the booking set and the
// reference date. The same checks run twice per reservation: once against the
// client-visible booking set and once, authoritatively, inside the commit
// transaction.
package availability

import (
	"time"

	"stayd/internal/models"
)

type Reason string

const (
	ReasonOK            Reason = "ok"
	ReasonPastDate      Reason = "past_date"
	ReasonInvertedRange Reason = "inverted_range"
	ReasonOverlap       Reason = "overlap"
)

// Normalize truncates a timestamp to its calendar date in UTC.
func Normalize(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CheckDates validates the candidate interval shape: check-in must not be
// before today (date-only comparison, today itself is allowed) and check-out
// must be strictly after check-in.
func CheckDates(today, checkIn, checkOut time.Time) Reason {
	today = Normalize(today)
	checkIn = Normalize(checkIn)
	checkOut = Normalize(checkOut)

	if checkIn.Before(today) {
		return ReasonPastDate
	}
	if !checkOut.After(checkIn) {
		return ReasonInvertedRange
	}
	return ReasonOK
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect: aStart < bEnd && bStart < aEnd. Back-to-back
// stays sharing a changeover day do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Conflicts checks the candidate interval against active bookings.
// Bookings in a non-active status are ignored regardless of their dates.
func Conflicts(checkIn, checkOut time.Time, active []models.Booking) Reason {
	checkIn = Normalize(checkIn)
	checkOut = Normalize(checkOut)

	for i := range active {
		b := &active[i]
		if !b.IsActive() {
			continue
		}
		if Overlaps(checkIn, checkOut, Normalize(b.CheckIn), Normalize(b.CheckOut)) {
			return ReasonOverlap
		}
	}
	return ReasonOK
}

// Check composes date validation and conflict detection.
func Check(today, checkIn, checkOut time.Time, active []models.Booking) Reason {
	if reason := CheckDates(today, checkIn, checkOut); reason != ReasonOK {
		return reason
	}
	return Conflicts(checkIn, checkOut, active)
}

// Nights returns the stay length in whole days.
func Nights(checkIn, checkOut time.Time) int {
	return int(Normalize(checkOut).Sub(Normalize(checkIn)).Hours() / 24)
}

// TotalAmount returns the booking price: nights times the per-night rate.
func TotalAmount(checkIn, checkOut time.Time, pricePerNight float64) float64 {
	return float64(Nights(checkIn, checkOut)) * pricePerNight
}
