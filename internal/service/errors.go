package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Ошибки сервисного слоя; транспорт сопоставляет их с кодами ответа
var (
	ErrNotFound          = errors.New("not found")
	ErrProfileNotFound   = errors.New("profile not found")
	ErrForbidden         = errors.New("action not allowed for this user")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("record was changed concurrently")
	ErrAlreadyExists     = errors.New("already exists")
	ErrBookingOverlap    = errors.New("booking overlaps another confirmed lesson")
	ErrChatNotAllowed    = errors.New("chat is not open between these users")
)

// checkID отсекает идентификаторы не в формате UUID: такой записи в базе быть не может
func checkID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	return nil
}
