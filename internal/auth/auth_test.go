package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/UkralStul/strings-feed-service/internal/domain"
	"github.com/UkralStul/strings-feed-service/internal/storage/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_RoundTrip(t *testing.T) {
	tokens := NewTokenService("secret", 0)

	signed, err := tokens.Generate("user-1")
	require.NoError(t, err)

	claims, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.ID)
	assert.Nil(t, claims.ExpiresAt)
}

func TestTokenService_RejectsForeignSecretAndExpired(t *testing.T) {
	signed, err := NewTokenService("other", 0).Generate("user-1")
	require.NoError(t, err)
	_, err = NewTokenService("secret", 0).Verify(signed)
	assert.Error(t, err)

	tokens := NewTokenService("secret", time.Minute)
	signed, err = tokens.Generate("user-1")
	require.NoError(t, err)
	tokens.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = tokens.Verify(signed)
	assert.Error(t, err)
}

func TestTokenService_RejectsNoneAlgorithm(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{ID: "user-1"})
	signed, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenService("secret", 0).Verify(signed)
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("12345")
	require.NoError(t, err)
	assert.NotEqual(t, "12345", hash)
	assert.True(t, CheckPassword("12345", hash))
	assert.False(t, CheckPassword("54321", hash))
}

func TestGate_Authenticate(t *testing.T) {
	store := inmemory.New()
	user, err := store.CreateUser(context.Background(), &domain.User{Name: "Alice", Username: "alice", Email: "alice@mail.com"})
	require.NoError(t, err)

	tokens := NewTokenService("secret", 0)
	gate := NewGate(tokens, store)
	valid, err := tokens.Generate(user.ID)
	require.NoError(t, err)
	ghost, err := tokens.Generate("ghost")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		msg    string
	}{
		{"missing", "", "Authorization header is missing"},
		{"wrong scheme", "Token " + valid, "Invalid token"},
		{"garbage", "Bearer garbage", "Invalid token"},
		{"unknown user", "Bearer " + ghost, "Invalid token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := gate.Authenticate(WithAuthorization(context.Background(), tc.header))
			require.ErrorIs(t, err, domain.ErrAuth)
			assert.Equal(t, tc.msg, err.Error())
		})
	}

	got, err := gate.Authenticate(WithAuthorization(context.Background(), "Bearer "+valid))
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
}

func TestMiddleware_CapturesHeader(t *testing.T) {
	var captured string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = authorizationFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/query", nil)
	req.Header.Set("Authorization", "Bearer abc")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "Bearer abc", captured)
}
