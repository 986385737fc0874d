package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/service"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryProfiles struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile
}

func (r *memoryProfiles) GetByID(_ context.Context, id string) (*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memoryProfiles) Upsert(_ context.Context, profile *model.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *profile
	r.profiles[profile.ID] = &cp
	return nil
}

func (r *memoryProfiles) ListByRole(_ context.Context, role model.Role) ([]*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.Profile
	for _, p := range r.profiles {
		if p.Role == role {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := zap.NewNop()
	profiles := &memoryProfiles{profiles: make(map[string]*model.Profile)}

	return NewServer(&Options{
		Address:   ":0",
		JWTSecret: []byte(testSecret),
		Issuer:    testIssuer,
		Users:     service.NewUserService(profiles, logger),
		Logger:    logger,
	})
}

func doRequest(t *testing.T, s *Server, method, path, token, body string) (*httptest.ResponseRecorder, errorResponse) {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var errBody errorResponse
	if rec.Code >= http.StatusBadRequest {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errBody))
	}
	return rec, errBody
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec, _ := doRequest(t, s, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec, body := doRequest(t, s, http.MethodGet, "/api/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, body.SignOut)

	rec, _ = doRequest(t, s, http.MethodGet, "/api/me", "broken", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMissingProfileSignsOut(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, jwt.SigningMethodHS256, validClaims("user-1"), testSecret)

	rec, body := doRequest(t, s, http.MethodGet, "/api/me", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, body.SignOut)
	assert.Contains(t, rec.Body.String(), `"sign_out":true`)

	// Маршруты за requireProfile ведут себя так же
	rec, body = doRequest(t, s, http.MethodGet, "/api/matchings", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, body.SignOut)
}

func TestPutAndGetProfile(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, jwt.SigningMethodHS256, validClaims("user-1"), testSecret)

	rec, _ := doRequest(t, s, http.MethodPut, "/api/me", token, `{"role":"tutor","display_name":"  Ivan Petrovich "}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doRequest(t, s, http.MethodGet, "/api/me", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var profile model.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "user-1", profile.ID)
	assert.Equal(t, model.RoleTutor, profile.Role)
	assert.Equal(t, "Ivan Petrovich", profile.DisplayName)
}

func TestPutProfileValidation(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, jwt.SigningMethodHS256, validClaims("user-1"), testSecret)

	rec, body := doRequest(t, s, http.MethodPut, "/api/me", token, `{"role":"admin","photo_url":"not a url"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Fields, "role")
	assert.Contains(t, body.Fields, "display_name")
	assert.Contains(t, body.Fields, "photo_url")
	assert.Equal(t, "this field is required", body.Fields["display_name"])
}

func TestPutProfileServiceValidation(t *testing.T) {
	s := newTestServer(t)
	token := signToken(t, jwt.SigningMethodHS256, validClaims("user-1"), testSecret)

	// Пробелы проходят тег required, но сервис их отклоняет
	rec, body := doRequest(t, s, http.MethodPut, "/api/me", token, `{"role":"student","display_name":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Error, "display name is required")
}
