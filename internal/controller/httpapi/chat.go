package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type conversationRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type messageRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

func registerChatAPI(g *echo.Group, h *handler) {
	g.POST("", h.startConversation)
	g.GET("", h.listConversations)
	g.GET("/:id/messages", h.listMessages)
	g.POST("/:id/messages", h.sendMessage)
	g.POST("/:id/read", h.markAsRead)
}

func (h *handler) startConversation(c echo.Context) error {
	var req conversationRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	conv, err := h.chat.StartConversation(c.Request().Context(), currentUserID(c), req.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, conv)
}

func (h *handler) listConversations(c echo.Context) error {
	list, err := h.chat.ListConversations(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (h *handler) listMessages(c echo.Context) error {
	list, err := h.chat.ListMessages(c.Request().Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (h *handler) sendMessage(c echo.Context) error {
	var req messageRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	msg, err := h.chat.SendMessage(c.Request().Context(), c.Param("id"), currentProfile(c), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, msg)
}

func (h *handler) markAsRead(c echo.Context) error {
	if err := h.chat.MarkAsRead(c.Request().Context(), c.Param("id"), currentUserID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
