package formatting

import (
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "25.50 EUR", FormatPrice(2550, "EUR"))
	assert.Equal(t, "30 USD", FormatPriceShort(3000, "USD"))
	assert.Equal(t, "30.05 USD", FormatPriceShort(3005, "USD"))
}

func TestFormatDuration(t *testing.T) {
	tests := map[int]string{
		45:  "45 min",
		60:  "1 h",
		90:  "1 h 30 min",
		120: "2 h",
	}
	for minutes, want := range tests {
		assert.Equal(t, want, FormatDuration(minutes))
	}
}

func TestFormatLesson(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	start := time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC)

	assert.Equal(t, "20.10.2026 10:00-11:00", FormatLesson(start, start.Add(time.Hour), loc))
}

func TestStatusDisplays(t *testing.T) {
	assert.Equal(t, "✅ Confirmed", GetBookingStatusDisplay(model.BookingStatusConfirmed).String())
	assert.Equal(t, "🔎 Still searching", GetMatchingStatusDisplay(model.MatchingStatusContinued).String())
	assert.Equal(t, "❓ Unknown", GetBookingStatusDisplay("weird").String())
	assert.Equal(t, "Mon", GetWeekdayShortName(time.Monday))
}
