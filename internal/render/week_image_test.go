package render

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekBounds(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want time.Time
	}{
		{"monday", time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC), time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"wednesday", time.Date(2025, 3, 12, 9, 30, 0, 0, time.UTC), time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"sunday", time.Date(2025, 3, 16, 23, 59, 0, 0, time.UTC), time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			week := WeekBounds(tt.date)
			assert.True(t, tt.want.Equal(week.Start()))
			assert.True(t, tt.want.AddDate(0, 0, 7).Equal(week.End()))
		})
	}
}

func TestCalculateHourRange(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	empty := calculateHourRange(nil)
	assert.Equal(t, defaultMinHour-hourPaddingTop, empty.start)

	hours := calculateHourRange([]*model.Booking{
		{StartsAt: day.Add(10 * time.Hour), EndsAt: day.Add(11*time.Hour + 30*time.Minute)},
		{StartsAt: day.Add(14 * time.Hour), EndsAt: day.Add(15 * time.Hour)},
	})
	assert.Equal(t, 9, hours.start)
	assert.Equal(t, 16, hours.end)
	assert.Equal(t, 7, hours.total)
}

func TestGenerateWeekImage(t *testing.T) {
	weekStart := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	bookings := []*model.Booking{
		{
			ID:          "b1",
			StudentName: "Alice Liddell-Hargreaves the Second",
			StartsAt:    weekStart.Add(9 * time.Hour),
			EndsAt:      weekStart.Add(10 * time.Hour),
			Status:      model.BookingStatusConfirmed,
		},
		{
			ID:       "b2",
			StartsAt: weekStart.AddDate(0, 0, 2).Add(17 * time.Hour),
			EndsAt:   weekStart.AddDate(0, 0, 2).Add(18 * time.Hour),
			Status:   model.BookingStatusPending,
		},
		{
			// следующая неделя, не рисуется
			ID:       "b3",
			StartsAt: weekStart.AddDate(0, 0, 8),
			EndsAt:   weekStart.AddDate(0, 0, 8).Add(time.Hour),
			Status:   model.BookingStatusCancelled,
		},
	}

	data, err := GenerateWeekImage(weekStart.Add(36*time.Hour), bookings, WeekOptions{
		Location: time.UTC,
		Now:      weekStart.Add(30 * time.Hour),
	})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, imageWidth, img.Bounds().Dx())
	assert.Equal(t, imageHeight, img.Bounds().Dy())
}

func TestLessonsInWeek(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	week := WeekBounds(time.Date(2025, 3, 10, 0, 0, 0, 0, loc))

	// 22:00 UTC воскресенья - это уже понедельник 01:00 по UTC+3
	b := &model.Booking{
		StartsAt: time.Date(2025, 3, 9, 22, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2025, 3, 9, 23, 0, 0, 0, time.UTC),
	}

	lessons := lessonsInWeek([]*model.Booking{b}, week, loc)
	require.Len(t, lessons, 1)
	assert.Equal(t, 1, lessons[0].StartsAt.Hour())
	assert.Equal(t, time.UTC, b.StartsAt.Location())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Алекс...", truncate("Александра", 8))
}
