package handler

import (
	"net/http"
	"strings"

	"github.com/Dan9191/todo-service/internal/auth"
	"github.com/Dan9191/todo-service/internal/i18n"
	"github.com/Dan9191/todo-service/internal/middleware"
	"github.com/Dan9191/todo-service/internal/views"
	"github.com/a-h/templ"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// APIPrefix is the path prefix of the versioned REST surface.
const APIPrefix = "/v1"

// NewRouter assembles both surfaces behind the shared middleware chain. Each
// surface has its own router, picked by path prefix, so a method mismatch on
// one is never masked by the routes of the other.
func NewRouter(api *APIHandler, web *WebHandler, sessions *auth.SessionAuthenticator, log *logrus.Logger) http.Handler {
	fallback := fallbackHandler{sessions: sessions}

	apiRoot := mux.NewRouter()
	api.Routes(apiRoot)
	apiRoot.NotFoundHandler = fallback.notFound()
	apiRoot.MethodNotAllowedHandler = fallback.methodNotAllowed()

	webRoot := mux.NewRouter()
	web.Routes(webRoot)
	webRoot.NotFoundHandler = fallback.notFound()
	webRoot.MethodNotAllowedHandler = fallback.methodNotAllowed()

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", middleware.RequestIDHeader}),
		handlers.ExposedHeaders([]string{"Location", middleware.RequestIDHeader}),
	)(apiRoot)

	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAPIPath(r) {
			cors.ServeHTTP(w, r)
			return
		}
		webRoot.ServeHTTP(w, r)
	})
	h = middleware.Recover(log, func(w http.ResponseWriter, r *http.Request, err error) {
		if isAPIPath(r) {
			api.WriteError(w, r, err)
			return
		}
		web.WriteErrorJSON(w, r, err)
	})(h)
	h = middleware.RequestLogger(log)(h)
	return handlers.ProxyHeaders(h)
}

func isAPIPath(r *http.Request) bool {
	return r.URL.Path == APIPrefix || strings.HasPrefix(r.URL.Path, APIPrefix+"/")
}

// fallbackHandler answers unmatched requests. It runs outside the route
// middleware, so the locale comes from the session and headers only.
type fallbackHandler struct {
	sessions *auth.SessionAuthenticator
}

func (f fallbackHandler) locale(r *http.Request) string {
	return i18n.Resolve("", f.sessions.Locale(r), r.Header.Get("Accept-Language"))
}

func (f fallbackHandler) notFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale := f.locale(r)
		msg := i18n.T(locale, i18n.MsgNotFound)
		if isAPIPath(r) || prefersJSON(r) {
			writeJSON(w, http.StatusNotFound, apiStatus{Code: http.StatusNotFound, Message: msg})
			return
		}
		p := views.Page{Locale: locale}
		templ.Handler(views.Layout(p, views.ErrorPage(p, http.StatusNotFound, msg)),
			templ.WithStatus(http.StatusNotFound)).ServeHTTP(w, r)
	})
}

func (f fallbackHandler) methodNotAllowed() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, apiStatus{
			Code:    http.StatusMethodNotAllowed,
			Message: i18n.T(f.locale(r), i18n.MsgMethodNotAllowed),
		})
	})
}
