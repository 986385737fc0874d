package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/service"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	contextUserIDKey  = "user_id"
	contextProfileKey = "profile"
	tokenQueryParam   = "token"
)

var (
	errMissingToken = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed token")
	errInvalidToken = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
)

// parseToken проверяет HS256-токен провайдера аутентификации и возвращает uid (sub)
func parseToken(tokenStr string, secret []byte, issuer string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	// uid становится ключом в документах MongoDB (unread_count.<uid>)
	if strings.ContainsAny(claims.Subject, ".$") || strings.ContainsRune(claims.Subject, 0) {
		return "", fmt.Errorf("token subject %q contains reserved characters", claims.Subject)
	}

	return claims.Subject, nil
}

// extractToken берёт токен из Authorization: Bearer или из ?token= (для WebSocket)
func extractToken(c echo.Context) string {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return c.QueryParam(tokenQueryParam)
}

// authMiddleware кладёт uid пользователя в контекст запроса
func authMiddleware(secret []byte, issuer string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr := extractToken(c)
			if tokenStr == "" {
				return errMissingToken
			}

			userID, err := parseToken(tokenStr, secret, issuer)
			if err != nil {
				return errInvalidToken.WithInternal(err)
			}

			c.Set(contextUserIDKey, userID)
			return next(c)
		}
	}
}

// requireProfile загружает профиль; без профиля клиент должен выйти из аккаунта
func requireProfile(users *service.UserService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			profile, err := users.GetProfile(c.Request().Context(), currentUserID(c))
			if err != nil {
				return err
			}

			c.Set(contextProfileKey, profile)
			return next(c)
		}
	}
}

func currentUserID(c echo.Context) string {
	userID, _ := c.Get(contextUserIDKey).(string)
	return userID
}

func currentProfile(c echo.Context) *model.Profile {
	profile, _ := c.Get(contextProfileKey).(*model.Profile)
	return profile
}
