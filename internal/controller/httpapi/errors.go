package httpapi

import (
	"errors"
	"net/http"

	"github.com/Freeeeeet/tutor_market/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// errorResponse тело ответа с ошибкой
type errorResponse struct {
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
	SignOut bool              `json:"sign_out,omitempty"`
}

// StatusCode сопоставляет ошибку сервиса с HTTP-кодом
func StatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrProfileNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrChatNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrAlreadyExists),
		errors.Is(err, service.ErrBookingOverlap):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorMessage возвращает пользовательское сообщение для ошибки
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrProfileNotFound):
		return "Your profile was not found. Please sign in again."
	case errors.Is(err, service.ErrNotFound):
		return "Not found"
	case errors.Is(err, service.ErrChatNotAllowed):
		return "Chat opens once the tutor accepts your contact request"
	case errors.Is(err, service.ErrForbidden):
		return "You are not allowed to do this"
	case errors.Is(err, service.ErrBookingOverlap):
		return "This lesson overlaps another confirmed lesson"
	case errors.Is(err, service.ErrConflict):
		return "This record was just changed by someone else. Refresh and try again."
	case errors.Is(err, service.ErrAlreadyExists):
		return "Already exists"
	case errors.Is(err, service.ErrInvalidTransition):
		return "This action is not available in the current status"
	default:
		return "Something went wrong"
	}
}

func newAppHTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := errorBody(c, err)
		if code >= http.StatusInternalServerError {
			logger.Error("Request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.String("user_id", currentUserID(c)),
				zap.Error(err),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			logger.Warn("Failed to write error response", zap.Error(err))
		}
	}
}

func errorBody(c echo.Context, err error) (int, errorResponse) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg, ok := httpErr.Message.(string)
		if !ok {
			msg = http.StatusText(httpErr.Code)
		}
		return httpErr.Code, errorResponse{Error: msg}
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		body := errorResponse{Error: "validation failed"}
		if v, ok := c.Echo().Validator.(*appValidator); ok {
			body.Fields = v.fieldErrors(validationErrs)
		}
		return http.StatusBadRequest, body
	}

	code := StatusCode(err)
	body := errorResponse{Error: ErrorMessage(err)}

	switch {
	case errors.Is(err, service.ErrProfileNotFound):
		body.SignOut = true
	case code == http.StatusBadRequest:
		// Текст ошибки валидации сервиса понятен пользователю
		body.Error = err.Error()
	}

	return code, body
}
