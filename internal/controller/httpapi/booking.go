package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/service"
	"github.com/labstack/echo/v4"
)

type bookingRequest struct {
	TutorID   string `json:"tutor_id" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04"`
	Price     int64  `json:"price" validate:"gte=0"`
	Currency  string `json:"currency" validate:"required,len=3,alpha"`
	Notes     string `json:"notes" validate:"max=1000"`
}

type bookingStatusRequest struct {
	Status model.BookingStatus `json:"status" validate:"required,oneof=pending confirmed completed cancelled"`
}

type reviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

func registerBookingAPI(g *echo.Group, h *handler) {
	g.POST("", h.createBooking)
	g.GET("", h.listBookings)
	g.GET("/week.png", h.weekImage)
	g.GET("/:id", h.getBooking)
	g.POST("/:id/status", h.updateBookingStatus)
	g.POST("/:id/accept", h.bookingAction((*service.BookingService).Accept))
	g.POST("/:id/decline", h.bookingAction((*service.BookingService).Decline))
	g.POST("/:id/cancel", h.bookingAction((*service.BookingService).Cancel))
	g.POST("/:id/complete", h.bookingAction((*service.BookingService).Complete))
	g.POST("/:id/review", h.createReview)
}

func (h *handler) createBooking(c echo.Context) error {
	var req bookingRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	booking, err := h.bookings.Create(c.Request().Context(), currentUserID(c), service.CreateBookingInput{
		TutorID:   req.TutorID,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Price:     req.Price,
		Currency:  req.Currency,
		Notes:     req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, booking)
}

func (h *handler) listBookings(c echo.Context) error {
	list, err := h.bookings.ListForUser(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (h *handler) getBooking(c echo.Context) error {
	booking, err := h.bookings.Get(c.Request().Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, booking)
}

func (h *handler) updateBookingStatus(c echo.Context) error {
	var req bookingStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	booking, err := h.bookings.UpdateStatus(c.Request().Context(), c.Param("id"), currentUserID(c), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, booking)
}

type bookingActionFunc func(s *service.BookingService, ctx context.Context, bookingID, actorID string) (*model.Booking, error)

// bookingAction обёртка для однотипных переходов статуса
func (h *handler) bookingAction(action bookingActionFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		booking, err := action(h.bookings, c.Request().Context(), c.Param("id"), currentUserID(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, booking)
	}
}

// weekImage PNG-календарь занятий репетитора: ?week=YYYY-MM-DD
func (h *handler) weekImage(c echo.Context) error {
	profile := currentProfile(c)
	if profile == nil || !profile.IsTutor() {
		return fmt.Errorf("%w: only tutors have a lesson calendar", service.ErrForbidden)
	}

	week := time.Now().In(h.location)
	if raw := c.QueryParam("week"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, h.location)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "week must be YYYY-MM-DD")
		}
		week = parsed
	}

	image, err := h.bookings.WeekImage(c.Request().Context(), profile.ID, week)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "image/png", image)
}

func (h *handler) createReview(c echo.Context) error {
	var req reviewRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	review, err := h.reviews.Create(c.Request().Context(), currentUserID(c), c.Param("id"), req.Rating, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, review)
}
