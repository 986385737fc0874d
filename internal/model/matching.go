package model

import (
	"errors"
	"fmt"
	"time"
)

type MatchingStatus string

const (
	MatchingStatusRequested MatchingStatus = "requested" // Ожидает ответа репетитора
	MatchingStatusOpen      MatchingStatus = "open"      // Контакт открыт, можно переписываться
	MatchingStatusContinued MatchingStatus = "continued" // Ученик продолжает поиск
	MatchingStatusConfirmed MatchingStatus = "confirmed" // Договорились о занятиях
	MatchingStatusRefused   MatchingStatus = "refused"   // Отказ одной из сторон
)

// ErrInvalidMatchingTransition возвращается при попытке перехода вне таблицы переходов
var ErrInvalidMatchingTransition = errors.New("invalid matching status transition")

// matchingTransitions допустимые переходы статусов заявки
var matchingTransitions = map[MatchingStatus][]MatchingStatus{
	MatchingStatusRequested: {MatchingStatusOpen, MatchingStatusRefused},
	MatchingStatusOpen:      {MatchingStatusConfirmed, MatchingStatusRefused, MatchingStatusContinued},
	MatchingStatusContinued: {MatchingStatusConfirmed, MatchingStatusRefused, MatchingStatusContinued},
}

// Valid проверяет, что статус известен
func (s MatchingStatus) Valid() bool {
	switch s {
	case MatchingStatusRequested, MatchingStatusOpen, MatchingStatusContinued,
		MatchingStatusConfirmed, MatchingStatusRefused:
		return true
	}
	return false
}

// IsTerminal возвращает true для confirmed и refused
func (s MatchingStatus) IsTerminal() bool {
	return s == MatchingStatusConfirmed || s == MatchingStatusRefused
}

// CanTransitionTo проверяет допустимость перехода from -> to
func (s MatchingStatus) CanTransitionTo(to MatchingStatus) bool {
	for _, next := range matchingTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Matching связь "ученик ищет репетитора"
type Matching struct {
	ID          string         `json:"id"`
	LearnerID   string         `json:"learner_id"`
	TutorID     string         `json:"tutor_id"`
	LearnerName string         `json:"learner_name"`
	TutorName   string         `json:"tutor_name"`
	Status      MatchingStatus `json:"status"`
	ContactDate time.Time      `json:"contact_date"`
	FollowupAt  *time.Time     `json:"followup_at,omitempty"`
	Feedback    string         `json:"feedback,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IsParticipant проверяет, что пользователь - одна из сторон заявки
func (m *Matching) IsParticipant(userID string) bool {
	return m.LearnerID == userID || m.TutorID == userID
}

// CounterpartOf возвращает ID второй стороны
func (m *Matching) CounterpartOf(userID string) string {
	if m.LearnerID == userID {
		return m.TutorID
	}
	return m.LearnerID
}

// AllowsChat - переписка возможна после того, как репетитор принял заявку
func (m *Matching) AllowsChat() bool {
	switch m.Status {
	case MatchingStatusOpen, MatchingStatusContinued, MatchingStatusConfirmed:
		return true
	}
	return false
}

// Transition переводит заявку в новый статус.
// followupDelay используется для open и continued: напоминание взводится заново.
func (m *Matching) Transition(to MatchingStatus, now time.Time, followupDelay time.Duration) error {
	if !m.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidMatchingTransition, m.Status, to)
	}

	m.Status = to
	m.UpdatedAt = now

	switch to {
	case MatchingStatusOpen, MatchingStatusContinued:
		next := now.Add(followupDelay)
		m.FollowupAt = &next
	default:
		if to.IsTerminal() {
			m.FollowupAt = nil
		}
	}

	return nil
}

// FollowupDue - заявка простаивает дольше порога и ученику пора напомнить
func (m *Matching) FollowupDue(now time.Time) bool {
	if m.Status != MatchingStatusOpen && m.Status != MatchingStatusContinued {
		return false
	}
	return m.FollowupAt != nil && !m.FollowupAt.After(now)
}
