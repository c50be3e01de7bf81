package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestVerify(t *testing.T) {
	v := NewVerifier(secret)

	good, err := NewToken(secret, "user-1", time.Hour)
	require.NoError(t, err)
	id, err := v.Verify(good)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)

	expired, err := NewToken(secret, "user-1", -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign, err := NewToken("other-secret", "user-1", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = v.Verify(noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "user-1"}).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = v.Verify(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier(secret)
	var deniedErr error
	denied := func(w http.ResponseWriter, _ *http.Request, err error) {
		deniedErr = err
		w.WriteHeader(http.StatusUnauthorized)
	}
	var seen string
	handler := v.Middleware(denied)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	token, err := NewToken(secret, "learner-7", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantErr    error
	}{
		{"valid", "Bearer " + token, http.StatusNoContent, nil},
		{"missing header", "", http.StatusUnauthorized, ErrMissingToken},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ErrMissingToken},
		{"empty token", "Bearer   ", http.StatusUnauthorized, ErrMissingToken},
		{"garbage", "Bearer not.a.jwt", http.StatusUnauthorized, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deniedErr, seen = nil, ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantErr == nil {
				assert.Equal(t, "learner-7", seen)
				assert.NoError(t, deniedErr)
				return
			}
			assert.True(t, errors.Is(deniedErr, tt.wantErr), "got %v", deniedErr)
			assert.Empty(t, seen)
		})
	}
}
