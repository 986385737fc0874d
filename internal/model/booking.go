package model

import (
	"errors"
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // Ожидает одобрения репетитора
	BookingStatusConfirmed BookingStatus = "confirmed" // Подтверждено
	BookingStatusCompleted BookingStatus = "completed" // Завершено
	BookingStatusCancelled BookingStatus = "cancelled" // Отменено или отклонено
)

// ErrInvalidBookingTransition возвращается при попытке перехода вне таблицы переходов
var ErrInvalidBookingTransition = errors.New("invalid booking status transition")

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCompleted, BookingStatusCancelled},
}

// Valid проверяет, что статус известен
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// IsTerminal возвращает true для completed и cancelled
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// CanTransitionTo проверяет допустимость перехода
func (s BookingStatus) CanTransitionTo(to BookingStatus) bool {
	for _, next := range bookingTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type Booking struct {
	ID          string        `json:"id"`
	TutorID     string        `json:"tutor_id"`
	StudentID   string        `json:"student_id"`
	TutorName   string        `json:"tutor_name"`
	StudentName string        `json:"student_name"`
	StartsAt    time.Time     `json:"starts_at"`
	EndsAt      time.Time     `json:"ends_at"`
	Status      BookingStatus `json:"status"`
	Price       int64         `json:"price"` // в минимальных единицах валюты
	Currency    string        `json:"currency"`
	Notes       string        `json:"notes"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// IsParticipant проверяет, что пользователь - ученик или репетитор брони
func (b *Booking) IsParticipant(userID string) bool {
	return b.StudentID == userID || b.TutorID == userID
}

// CounterpartOf возвращает ID второй стороны
func (b *Booking) CounterpartOf(userID string) string {
	if b.StudentID == userID {
		return b.TutorID
	}
	return b.StudentID
}

// Overlaps проверяет пересечение интервалов занятий
func (b *Booking) Overlaps(other *Booking) bool {
	return b.StartsAt.Before(other.EndsAt) && other.StartsAt.Before(b.EndsAt)
}

// Transition переводит бронь в новый статус
func (b *Booking) Transition(to BookingStatus, now time.Time) error {
	if !b.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidBookingTransition, b.Status, to)
	}
	b.Status = to
	b.UpdatedAt = now
	return nil
}
