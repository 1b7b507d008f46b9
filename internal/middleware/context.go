// Package middleware holds the HTTP middleware shared by the HTML and API surfaces.
package middleware

import (
	"context"
	"net/http"

	"github.com/Dan9191/todo-service/internal/i18n"
	"github.com/Dan9191/todo-service/internal/models"
)

type ctxKey int

const (
	userKey ctxKey = iota
	requestIDKey
	localeKey
)

// ErrorWriter renders err as the response of the surface it is attached to.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}

// WithRequestID stores the request id in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithLocale stores the negotiated locale in ctx.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey, locale)
}

// LocaleFromContext returns the negotiated locale, i18n.Default when unset.
func LocaleFromContext(ctx context.Context) string {
	if locale, ok := ctx.Value(localeKey).(string); ok && locale != "" {
		return locale
	}
	return i18n.Default
}
