package httpapi

import (
	"net/http"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/service"
	"github.com/labstack/echo/v4"
)

type profileRequest struct {
	Role           model.Role `json:"role" validate:"required,oneof=student tutor"`
	DisplayName    string     `json:"display_name" validate:"required,max=100"`
	PhotoURL       string     `json:"photo_url" validate:"omitempty,url"`
	TelegramChatID *int64     `json:"telegram_chat_id"`
}

type tutorResponse struct {
	*model.Profile
	Rating *model.RatingSummary `json:"rating"`
}

func registerProfileAPI(g *echo.Group, h *handler) {
	g.GET("/tutors", h.listTutors)
	g.GET("/tutors/:id/reviews", h.listTutorReviews)
}

func (h *handler) getMe(c echo.Context) error {
	profile, err := h.users.GetProfile(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *handler) putMe(c echo.Context) error {
	var req profileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	profile, err := h.users.UpsertProfile(c.Request().Context(), currentUserID(c), service.ProfileInput{
		Role:           req.Role,
		DisplayName:    req.DisplayName,
		PhotoURL:       req.PhotoURL,
		TelegramChatID: req.TelegramChatID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *handler) listTutors(c echo.Context) error {
	ctx := c.Request().Context()

	tutors, err := h.users.ListTutors(ctx)
	if err != nil {
		return err
	}

	result := make([]tutorResponse, 0, len(tutors))
	for _, t := range tutors {
		summary, err := h.reviews.Summary(ctx, t.ID)
		if err != nil {
			return err
		}
		result = append(result, tutorResponse{Profile: t, Rating: summary})
	}

	return c.JSON(http.StatusOK, result)
}

func (h *handler) listTutorReviews(c echo.Context) error {
	ctx := c.Request().Context()
	tutorID := c.Param("id")

	reviews, err := h.reviews.ListForTutor(ctx, tutorID)
	if err != nil {
		return err
	}
	summary, err := h.reviews.Summary(ctx, tutorID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"reviews": reviews,
		"rating":  summary,
	})
}
