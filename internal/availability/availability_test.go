package availability

import (
	"testing"
	"time"

	"stayd/internal/models"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCheckDates(t *testing.T) {
	today := date(2026, 3, 10)

	tests := []struct {
		name     string
		checkIn  time.Time
		checkOut time.Time
		want     Reason
	}{
		{"FutureRange", date(2026, 3, 15), date(2026, 3, 18), ReasonOK},
		{"CheckInToday", today, date(2026, 3, 11), ReasonOK},
		{"PastCheckIn", date(2026, 3, 9), date(2026, 3, 12), ReasonPastDate},
		{"InvertedRange", date(2026, 3, 15), date(2026, 3, 12), ReasonInvertedRange},
		{"ZeroNights", date(2026, 3, 15), date(2026, 3, 15), ReasonInvertedRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckDates(today, tt.checkIn, tt.checkOut))
		})
	}
}

func TestCheckDatesIgnoresClockTime(t *testing.T) {
	// Late in the evening today is still today.
	today := time.Date(2026, 3, 10, 23, 50, 0, 0, time.UTC)
	checkIn := time.Date(2026, 3, 10, 0, 1, 0, 0, time.UTC)

	assert.Equal(t, ReasonOK, CheckDates(today, checkIn, date(2026, 3, 12)))
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name                           string
		aStart, aEnd, bStart, bEnd     time.Time
		want                           bool
	}{
		{"Disjoint", date(2026, 1, 1), date(2026, 1, 5), date(2026, 1, 10), date(2026, 1, 12), false},
		{"Contained", date(2026, 1, 1), date(2026, 1, 10), date(2026, 1, 3), date(2026, 1, 5), true},
		{"PartialOverlap", date(2026, 1, 1), date(2026, 1, 5), date(2026, 1, 4), date(2026, 1, 8), true},
		{"BackToBack", date(2026, 1, 1), date(2026, 1, 5), date(2026, 1, 5), date(2026, 1, 8), false},
		{"SameRange", date(2026, 1, 1), date(2026, 1, 5), date(2026, 1, 1), date(2026, 1, 5), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
			// Overlap is symmetric
			assert.Equal(t, tt.want, Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd))
		})
	}
}

func TestConflicts(t *testing.T) {
	active := []models.Booking{
		{Status: models.BookingStatusApproved, CheckIn: date(2026, 4, 10), CheckOut: date(2026, 4, 15)},
		{Status: models.BookingStatusPending, CheckIn: date(2026, 4, 20), CheckOut: date(2026, 4, 25)},
	}

	t.Run("NoConflict", func(t *testing.T) {
		assert.Equal(t, ReasonOK, Conflicts(date(2026, 4, 16), date(2026, 4, 19), active))
	})

	t.Run("ConflictWithApproved", func(t *testing.T) {
		assert.Equal(t, ReasonOverlap, Conflicts(date(2026, 4, 12), date(2026, 4, 14), active))
	})

	t.Run("ConflictWithPending", func(t *testing.T) {
		assert.Equal(t, ReasonOverlap, Conflicts(date(2026, 4, 24), date(2026, 4, 28), active))
	})

	t.Run("CheckoutDayReusable", func(t *testing.T) {
		// New stay starting on an existing checkout day is allowed.
		assert.Equal(t, ReasonOK, Conflicts(date(2026, 4, 15), date(2026, 4, 18), active))
	})

	t.Run("CheckinDayFreeBefore", func(t *testing.T) {
		// New stay ending on an existing check-in day is allowed.
		assert.Equal(t, ReasonOK, Conflicts(date(2026, 4, 8), date(2026, 4, 10), active))
	})

	t.Run("CancelledIgnored", func(t *testing.T) {
		cancelled := []models.Booking{
			{Status: models.BookingStatusCancelled, CheckIn: date(2026, 4, 10), CheckOut: date(2026, 4, 15)},
			{Status: models.BookingStatusCompleted, CheckIn: date(2026, 4, 10), CheckOut: date(2026, 4, 15)},
		}
		assert.Equal(t, ReasonOK, Conflicts(date(2026, 4, 12), date(2026, 4, 14), cancelled))
	})
}

func TestCheck(t *testing.T) {
	today := date(2026, 4, 1)
	active := []models.Booking{
		{Status: models.BookingStatusApproved, CheckIn: date(2026, 4, 10), CheckOut: date(2026, 4, 15)},
	}

	// Date validation runs before conflict detection.
	assert.Equal(t, ReasonPastDate, Check(today, date(2026, 3, 30), date(2026, 4, 12), active))
	assert.Equal(t, ReasonOverlap, Check(today, date(2026, 4, 12), date(2026, 4, 14), active))
	assert.Equal(t, ReasonOK, Check(today, date(2026, 4, 16), date(2026, 4, 20), active))
}

func TestNights(t *testing.T) {
	assert.Equal(t, 2, Nights(date(2026, 5, 1), date(2026, 5, 3)))
	assert.Equal(t, 1, Nights(date(2026, 5, 1), date(2026, 5, 2)))
	assert.Equal(t, 30, Nights(date(2026, 5, 1), date(2026, 5, 31)))
}

func TestTotalAmount(t *testing.T) {
	assert.Equal(t, 360.0, TotalAmount(date(2026, 5, 1), date(2026, 5, 3), 180))
	assert.Equal(t, 120.0, TotalAmount(date(2026, 5, 1), date(2026, 5, 2), 120))
}
