package httpapi

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret"
	testIssuer = "https://auth.example.com"
)

func signToken(t *testing.T, method jwt.SigningMethod, claims jwt.RegisteredClaims, secret string) string {
	t.Helper()

	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(subject string) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    testIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
}

func TestParseToken(t *testing.T) {
	expired := validClaims("user-1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExpiry := validClaims("user-1")
	noExpiry.ExpiresAt = nil

	otherIssuer := validClaims("user-1")
	otherIssuer.Issuer = "https://evil.example.com"

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{
			name:  "valid token",
			token: signToken(t, jwt.SigningMethodHS256, validClaims("user-1"), testSecret),
			want:  "user-1",
		},
		{
			name:    "expired",
			token:   signToken(t, jwt.SigningMethodHS256, expired, testSecret),
			wantErr: true,
		},
		{
			name:    "no expiry",
			token:   signToken(t, jwt.SigningMethodHS256, noExpiry, testSecret),
			wantErr: true,
		},
		{
			name:    "wrong secret",
			token:   signToken(t, jwt.SigningMethodHS256, validClaims("user-1"), "other-secret"),
			wantErr: true,
		},
		{
			name:    "wrong algorithm",
			token:   signToken(t, jwt.SigningMethodHS384, validClaims("user-1"), testSecret),
			wantErr: true,
		},
		{
			name:    "wrong issuer",
			token:   signToken(t, jwt.SigningMethodHS256, otherIssuer, testSecret),
			wantErr: true,
		},
		{
			name:    "missing subject",
			token:   signToken(t, jwt.SigningMethodHS256, validClaims(""), testSecret),
			wantErr: true,
		},
		{
			name:    "dotted subject",
			token:   signToken(t, jwt.SigningMethodHS256, validClaims("user.1"), testSecret),
			wantErr: true,
		},
		{
			name:    "operator subject",
			token:   signToken(t, jwt.SigningMethodHS256, validClaims("$set"), testSecret),
			wantErr: true,
		},
		{
			name:    "garbage",
			token:   "not-a-token",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseToken(tt.token, []byte(testSecret), testIssuer)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTokenWithoutIssuerCheck(t *testing.T) {
	claims := validClaims("user-2")
	claims.Issuer = "anyone"

	got, err := parseToken(signToken(t, jwt.SigningMethodHS256, claims, testSecret), []byte(testSecret), "")
	require.NoError(t, err)
	assert.Equal(t, "user-2", got)
}
