package model

import "time"

// Review отзыв ученика о завершённом занятии
type Review struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	TutorID   string    `json:"tutor_id"`
	StudentID string    `json:"student_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// RatingSummary средняя оценка репетитора
type RatingSummary struct {
	TutorID string  `json:"tutor_id"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}
