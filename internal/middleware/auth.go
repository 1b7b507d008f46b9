package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dan9191/todo-service/internal/auth"
	"github.com/Dan9191/todo-service/internal/common"
	"github.com/Dan9191/todo-service/internal/i18n"
	"github.com/Dan9191/todo-service/internal/models"
	"github.com/sirupsen/logrus"
)

// TokenResolver turns a bearer token into a live user.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*models.User, error)
}

// UserFinder loads users by id.
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// BearerAuth requires a valid "Authorization: Bearer" token and puts its user
// into the request context. Failures are rendered by onError.
func BearerAuth(tokens TokenResolver, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.ParseAuthorization(r.Header.Get("Authorization"))
			if err != nil {
				onError(w, r, err)
				return
			}
			user, err := tokens.ResolveToken(r.Context(), token)
			if err != nil {
				onError(w, r, err)
				return
			}
			ctx := WithUser(r.Context(), user)
			ctx = WithLocale(ctx, i18n.Resolve(user.LocaleOrEmpty(), "", r.Header.Get("Accept-Language")))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoadSessionUser resolves the optional session identity and the page locale.
// A session naming a deleted user is cleared and treated as anonymous. Any
// other lookup failure is rendered by onError and the request stops there.
func LoadSessionUser(sessions *auth.SessionAuthenticator, users UserFinder, logger *logrus.Logger, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			var user *models.User
			var lookupErr error
			if id, ok := sessions.Identity(r); ok {
				found, err := users.FindByID(ctx, id)
				switch {
				case err == nil:
					user = found
					ctx = WithUser(ctx, user)
				case errors.Is(err, common.ErrNotFound):
					if err := sessions.Clear(w, r); err != nil {
						logger.WithError(err).Warn("Failed to clear stale session")
					}
				default:
					lookupErr = err
				}
			}
			locale := i18n.Resolve(user.LocaleOrEmpty(), sessions.Locale(r), r.Header.Get("Accept-Language"))
			r = r.WithContext(WithLocale(ctx, locale))
			if lookupErr != nil {
				onError(w, r, lookupErr)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionAuth requires LoadSessionUser to have found a user. Anonymous GET
// requests are redirected to loginPath, anything else gets onError.
func SessionAuth(loginPath string, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserFromContext(r.Context()) != nil {
				next.ServeHTTP(w, r)
				return
			}
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			onError(w, r, common.ErrLoginRequired)
		})
	}
}
