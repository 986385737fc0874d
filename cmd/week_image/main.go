package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/render"
)

// Рисует календарь недели на тестовых занятиях; удобно для проверки вёрстки картинки
func main() {
	out := flag.String("out", "week.png", "output file")
	flag.Parse()

	now := time.Now()
	week := render.WeekBounds(now)
	day := func(offset int, hour, minute int) time.Time {
		d := week.Start().AddDate(0, 0, offset)
		return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, now.Location())
	}

	lesson := func(id string, student string, start time.Time, minutes int, status model.BookingStatus) *model.Booking {
		return &model.Booking{
			ID:          id,
			TutorID:     "tutor",
			StudentID:   "student-" + id,
			TutorName:   "Ivan Petrovich",
			StudentName: student,
			StartsAt:    start,
			EndsAt:      start.Add(time.Duration(minutes) * time.Minute),
			Status:      status,
			Price:       150000,
			Currency:    "RUB",
		}
	}

	bookings := []*model.Booking{
		lesson("1", "Lena", day(0, 9, 0), 60, model.BookingStatusConfirmed),
		lesson("2", "Maxim", day(0, 14, 0), 90, model.BookingStatusPending),
		lesson("3", "Olga", day(1, 10, 30), 60, model.BookingStatusCompleted),
		lesson("4", "Konstantin Konstantinopolsky", day(1, 16, 0), 45, model.BookingStatusConfirmed),
		lesson("5", "Dasha", day(2, 9, 0), 60, model.BookingStatusCancelled),
		lesson("6", "Pavel", day(4, 11, 0), 120, model.BookingStatusConfirmed),
		lesson("7", "Anna", day(5, 18, 0), 60, model.BookingStatusPending),
	}

	data, err := render.GenerateWeekImage(week.Start(), bookings, render.WeekOptions{
		Location: now.Location(),
		Now:      now,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate image: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", *out, err)
		os.Exit(1)
	}

	fmt.Printf("Week %s - %s: %d lessons, saved to %s\n",
		week.Start().Format("2006-01-02"), week.End().AddDate(0, 0, -1).Format("2006-01-02"), len(bookings), *out)
}
