package httpapi

import (
	"time"

	"github.com/Freeeeeet/tutor_market/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type handler struct {
	users     *service.UserService
	matchings *service.MatchingService
	bookings  *service.BookingService
	chat      *service.ChatService
	reviews   *service.ReviewService
	location  *time.Location
	logger    *zap.Logger
}

// bind разбирает тело запроса и проверяет теги validate
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}
