package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/UkralStul/strings-feed-service/internal/domain"
)

type contextKey string

const authorizationKey = contextKey("authorization")

// Middleware сохраняет заголовок Authorization в контексте запроса.
// Проверка токена откладывается до резолвера, которому нужен пользователь.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithAuthorization(r.Context(), r.Header.Get("Authorization"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithAuthorization кладет сырое значение заголовка в контекст.
func WithAuthorization(ctx context.Context, header string) context.Context {
	return context.WithValue(ctx, authorizationKey, header)
}

func authorizationFrom(ctx context.Context) string {
	header, _ := ctx.Value(authorizationKey).(string)
	return header
}

// UserLookup - то, что нужно гейту от хранилища пользователей.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// Gate проверяет токен и возвращает текущего пользователя.
type Gate struct {
	tokens *TokenService
	users  UserLookup
}

func NewGate(tokens *TokenService, users UserLookup) *Gate {
	return &Gate{tokens: tokens, users: users}
}

// Authenticate возвращает пользователя запроса или AuthError.
func (g *Gate) Authenticate(ctx context.Context) (*domain.User, error) {
	header := authorizationFrom(ctx)
	if header == "" {
		return nil, domain.Auth("Authorization header is missing")
	}

	scheme, token, _ := strings.Cut(header, " ")
	if scheme != "Bearer" || token == "" {
		return nil, domain.Auth("Invalid token")
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		return nil, domain.Auth("Invalid token")
	}

	user, err := g.users.GetUserByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Auth("Invalid token")
		}
		return nil, err
	}
	return user, nil
}
