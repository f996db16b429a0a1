package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/UkralStul/strings-feed-service/internal/domain"
)

// Коды ошибок в extensions.code.
const (
	CodeBadUserInput    = "BAD_USER_INPUT"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeInternal        = "INTERNAL_SERVER_ERROR"
)

// ErrorPresenter проставляет extensions.code по виду доменной ошибки
// и скрывает детали сбоев хранилища от клиента.
func ErrorPresenter(log *slog.Logger) graphql.ErrorPresenterFunc {
	return func(ctx context.Context, err error) *gqlerror.Error {
		gqlErr := graphql.DefaultErrorPresenter(ctx, err)
		if gqlErr.Extensions == nil {
			gqlErr.Extensions = map[string]interface{}{}
		}

		switch {
		case errors.Is(err, domain.ErrValidation):
			gqlErr.Extensions["code"] = CodeBadUserInput
		case errors.Is(err, domain.ErrNotFound):
			gqlErr.Extensions["code"] = CodeNotFound
		case errors.Is(err, domain.ErrDuplicate):
			gqlErr.Extensions["code"] = CodeConflict
		case errors.Is(err, domain.ErrAuth):
			gqlErr.Extensions["code"] = CodeUnauthenticated
		case errors.Is(err, domain.ErrStore):
			log.ErrorContext(ctx, "store failure", "path", gqlErr.Path.String(), "error", err)
			gqlErr.Message = "internal error"
			gqlErr.Extensions["code"] = CodeInternal
		default:
			if _, ok := gqlErr.Extensions["code"]; !ok {
				gqlErr.Extensions["code"] = CodeInternal
			}
		}
		return gqlErr
	}
}

// RecoverFunc логирует панику резолвера и отдает клиенту обезличенную ошибку.
func RecoverFunc(log *slog.Logger) graphql.RecoverFunc {
	return func(ctx context.Context, p interface{}) error {
		log.ErrorContext(ctx, "resolver panic", "panic", fmt.Sprint(p), "stack", string(debug.Stack()))
		return errors.New("internal system error")
	}
}
