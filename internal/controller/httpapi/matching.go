package httpapi

import (
	"net/http"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/labstack/echo/v4"
)

type contactRequest struct {
	TutorID string `json:"tutor_id" validate:"required"`
}

type closeMatchingRequest struct {
	Status   model.MatchingStatus `json:"status" validate:"required,oneof=confirmed refused continued"`
	Feedback string               `json:"feedback" validate:"max=1000"`
}

func registerMatchingAPI(g *echo.Group, h *handler) {
	g.POST("", h.requestContact)
	g.GET("", h.listMatchings)
	g.GET("/followups", h.pendingFollowups)
	g.GET("/:id", h.getMatching)
	g.POST("/:id/accept", h.acceptMatching)
	g.POST("/:id/refuse", h.refuseMatching)
	g.POST("/:id/close", h.closeMatching)
}

func (h *handler) requestContact(c echo.Context) error {
	var req contactRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	m, err := h.matchings.RequestContact(c.Request().Context(), currentUserID(c), req.TutorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *handler) listMatchings(c echo.Context) error {
	list, err := h.matchings.ListForUser(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (h *handler) pendingFollowups(c echo.Context) error {
	list, err := h.matchings.PendingFollowups(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (h *handler) getMatching(c echo.Context) error {
	m, err := h.matchings.Get(c.Request().Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (h *handler) acceptMatching(c echo.Context) error {
	m, err := h.matchings.Accept(c.Request().Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (h *handler) refuseMatching(c echo.Context) error {
	m, err := h.matchings.Refuse(c.Request().Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (h *handler) closeMatching(c echo.Context) error {
	var req closeMatchingRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	m, err := h.matchings.Close(c.Request().Context(), c.Param("id"), currentUserID(c), req.Status, req.Feedback)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}
