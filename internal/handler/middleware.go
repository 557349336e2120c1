package handler

import (
	"context"
	"net/http"

	"github.com/siriwatk/noteflow-api/internal/model"
	"github.com/siriwatk/noteflow-api/internal/usecase"
)

type contextKey struct{}

// userContextKey carries the authenticated *model.User through the request
// context.
var userContextKey = contextKey{}

// RequireAuth authenticates the Authorization header on every request and
// attaches the resulting user to the context. Requests failing any step of
// the verification ladder never reach the wrapped handler.
func RequireAuth(authUsecase usecase.AuthUsecase) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authUsecase.VerifyBearer(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				respondUsecaseError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated user attached by RequireAuth.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	return user, ok
}
