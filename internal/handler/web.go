package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Dan9191/todo-service/internal/auth"
	"github.com/Dan9191/todo-service/internal/common"
	"github.com/Dan9191/todo-service/internal/i18n"
	"github.com/Dan9191/todo-service/internal/middleware"
	"github.com/Dan9191/todo-service/internal/models"
	"github.com/Dan9191/todo-service/internal/service"
	"github.com/Dan9191/todo-service/internal/views"
	"github.com/a-h/templ"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const (
	loginPath = "/login"
	appPath   = "/app"
)

// WebHandler serves the session-cookie HTML surface.
type WebHandler struct {
	identity *service.IdentityService
	todos    *service.TodoService
	sessions *auth.SessionAuthenticator
	log      *logrus.Logger
	now      func() time.Time
}

// NewWebHandler creates the HTML handler
func NewWebHandler(identity *service.IdentityService, todos *service.TodoService, sessions *auth.SessionAuthenticator, log *logrus.Logger) *WebHandler {
	return &WebHandler{identity: identity, todos: todos, sessions: sessions, log: log, now: time.Now}
}

// Routes mounts the HTML surface on r. Every route is registered on r
// itself, not on a subrouter, so a method mismatch is reported as 405.
func (h *WebHandler) Routes(r *mux.Router) {
	r.Use(middleware.LoadSessionUser(h.sessions, h.identity, h.log, h.WriteError))

	r.HandleFunc("/", h.Index).Methods(http.MethodGet).Name("home.index")
	r.HandleFunc("/intro", h.Intro).Methods(http.MethodGet).Name("home.intro")
	r.HandleFunc("/set-locale/{locale}", h.SetLocale).Methods(http.MethodGet).Name("home.set_locale")
	r.HandleFunc(loginPath, h.Login).Methods(http.MethodGet, http.MethodPost).Name("auth.login")
	r.HandleFunc("/logout", h.Logout).Methods(http.MethodGet).Name("auth.logout")
	r.HandleFunc("/register", h.Register).Methods(http.MethodPost).Name("auth.register")

	protect := middleware.SessionAuth(loginPath, h.WriteError)
	todo := func(f http.HandlerFunc) http.Handler { return protect(f) }
	r.Handle(appPath, todo(h.App)).Methods(http.MethodGet).Name("todo.app")
	r.Handle("/items/new", todo(h.NewItem)).Methods(http.MethodPost).Name("todo.new_item")
	r.Handle("/items/export", todo(h.Export)).Methods(http.MethodGet).Name("todo.export")
	r.Handle("/item/clear", todo(h.ClearItems)).Methods(http.MethodDelete).Name("todo.clear_items")
	r.Handle("/item/{id:[0-9]+}/edit", todo(h.EditItem)).Methods(http.MethodPut).Name("todo.edit_item")
	r.Handle("/item/{id:[0-9]+}/toggle", todo(h.ToggleItem)).Methods(http.MethodPatch).Name("todo.toggle_item")
	r.Handle("/item/{id:[0-9]+}/delete", todo(h.DeleteItem)).Methods(http.MethodDelete).Name("todo.delete_item")
}

// WriteError answers with {message}, or with an error page when a browser
// navigates to a page.
func (h *WebHandler) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	info := classify(err)
	logFailure(h.log, r, info, err)
	locale := middleware.LocaleFromContext(r.Context())
	if r.Method == http.MethodGet && !prefersJSON(r) {
		h.render(w, r, info.status, views.ErrorPage(h.page(r), info.status, i18n.T(locale, info.message)))
		return
	}
	writeJSON(w, info.status, messageBody{Message: i18n.T(locale, info.message)})
}

func (h *WebHandler) message(w http.ResponseWriter, r *http.Request, key string) {
	writeJSON(w, http.StatusOK, messageBody{Message: i18n.T(middleware.LocaleFromContext(r.Context()), key)})
}

// page collects layout data; the active count is best effort.
func (h *WebHandler) page(r *http.Request) views.Page {
	p := views.Page{
		Locale: middleware.LocaleFromContext(r.Context()),
		User:   middleware.UserFromContext(r.Context()),
	}
	if p.User != nil {
		if counts, err := h.todos.Counts(r.Context(), p.User); err == nil {
			p.ActiveCount = &counts.Active
		}
	}
	return p
}

func (h *WebHandler) render(w http.ResponseWriter, r *http.Request, status int, content templ.Component) {
	templ.Handler(views.Layout(h.page(r), content), templ.WithStatus(status)).ServeHTTP(w, r)
}

// Index renders the landing page
func (h *WebHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.Index(h.page(r)))
}

// Intro renders the introduction page
func (h *WebHandler) Intro(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.Intro(h.page(r)))
}

// SetLocale stores the language choice in the session, and on the user when logged in.
func (h *WebHandler) SetLocale(w http.ResponseWriter, r *http.Request) {
	locale := mux.Vars(r)["locale"]
	if !i18n.IsSupported(locale) {
		h.WriteErrorJSON(w, r, common.ErrUnknownLocale)
		return
	}
	if err := h.sessions.SetLocale(w, r, locale); err != nil {
		h.WriteError(w, r, err)
		return
	}
	if user := middleware.UserFromContext(r.Context()); user != nil {
		if err := h.identity.SetLocale(r.Context(), user, locale); err != nil {
			h.WriteError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, messageBody{Message: i18n.T(locale, i18n.MsgLocaleUpdated)})
}

// WriteErrorJSON always answers with {message}.
func (h *WebHandler) WriteErrorJSON(w http.ResponseWriter, r *http.Request, err error) {
	info := classify(err)
	logFailure(h.log, r, info, err)
	writeJSON(w, info.status, messageBody{Message: i18n.T(middleware.LocaleFromContext(r.Context()), info.message)})
}

// Login shows the form (GET) or starts a session (POST). Logged in users go to the app.
func (h *WebHandler) Login(w http.ResponseWriter, r *http.Request) {
	if middleware.UserFromContext(r.Context()) != nil {
		http.Redirect(w, r, appPath, http.StatusSeeOther)
		return
	}
	if r.Method == http.MethodGet {
		h.render(w, r, http.StatusOK, views.Login(h.page(r)))
		return
	}

	creds, err := readCredentials(r)
	if err != nil {
		h.WriteErrorJSON(w, r, err)
		return
	}
	user, err := h.identity.Authenticate(r.Context(), creds.Username, creds.Password)
	if err == nil {
		err = h.sessions.SetIdentity(w, r, user.ID)
	}
	if err != nil {
		if info := classify(err); !hasJSONBody(r) && info.status < http.StatusInternalServerError {
			locale := middleware.LocaleFromContext(r.Context())
			h.render(w, r, info.status, views.ErrorPage(h.page(r), info.status, i18n.T(locale, info.message)))
			return
		}
		h.WriteErrorJSON(w, r, err)
		return
	}
	h.log.WithField("user_id", user.ID).Info("User logged in")

	if !hasJSONBody(r) {
		http.Redirect(w, r, appPath, http.StatusSeeOther)
		return
	}
	h.message(w, r, i18n.MsgLoginSuccess)
}

// Logout ends the session
func (h *WebHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(w, r); err != nil {
		h.WriteErrorJSON(w, r, err)
		return
	}
	h.message(w, r, i18n.MsgLoggedOut)
}

// Register creates an account seeded with starter items in the request locale
func (h *WebHandler) Register(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(r)
	if err != nil {
		h.WriteErrorJSON(w, r, err)
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	if _, err := h.identity.Register(r.Context(), creds.Username, creds.Password, locale, true); err != nil {
		h.WriteErrorJSON(w, r, err)
		return
	}
	h.message(w, r, i18n.MsgUserCreated)
}

// App renders the todo application for the logged in user
func (h *WebHandler) App(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	q := r.URL.Query()
	filter, err := models.ParseFilter(q.Get("filter"))
	if err != nil {
		h.WriteError(w, r, errMalformed)
		return
	}
	page := 1
	if v := q.Get("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil {
			h.WriteError(w, r, errMalformed)
			return
		}
	}

	items, err := h.todos.ListItems(r.Context(), user, filter, page, 0)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	counts, err := h.todos.Counts(r.Context(), user)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	p := h.page(r)
	p.ActiveCount = &counts.Active
	templ.Handler(views.Layout(p, views.App(p, views.AppData{Counts: *counts, Filter: filter, Items: items}))).ServeHTTP(w, r)
}

func itemID(r *http.Request) int64 {
	// the route pattern only admits digits
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

// NewItem creates an item and returns its rendered fragment
func (h *WebHandler) NewItem(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	body, err := itemBody(r)
	if err != nil {
		h.WriteErrorJSON(w, r, err)
		return
	}
	item, err := h.todos.CreateItem(r.Context(), user, body)
	if err != nil {
		h.WriteErrorJSON(w, r, err)
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	html, err := views.RenderString(r.Context(), views.ItemFragment(locale, *item))
	if err != nil {
		h.WriteErrorJSON(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{HTML: html, Message: i18n.T(locale, i18n.MsgItemCreated)})
}

// EditItem changes an item's body
func (h *WebHandler) EditItem(w http.ResponseWriter, r *http.Request) {
	body, err := itemBody(r)
	if err != nil {
		h.WriteErrorJSON(w, r, err)
		return
	}
	if _, err := h.todos.EditItem(r.Context(), middleware.UserFromContext(r.Context()), itemID(r), body); err != nil {
		h.WriteErrorJSON(w, r, err)
		return
	}
	h.message(w, r, i18n.MsgItemUpdated)
}

// ToggleItem flips an item's done flag
func (h *WebHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	if _, err := h.todos.ToggleItem(r.Context(), middleware.UserFromContext(r.Context()), itemID(r)); err != nil {
		h.WriteErrorJSON(w, r, err)
		return
	}
	h.message(w, r, i18n.MsgItemUpdated)
}

// DeleteItem removes an item
func (h *WebHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.todos.DeleteItem(r.Context(), middleware.UserFromContext(r.Context()), itemID(r)); err != nil {
		h.WriteErrorJSON(w, r, err)
		return
	}
	h.message(w, r, i18n.MsgItemDeleted)
}

// ClearItems removes all completed items of the user
func (h *WebHandler) ClearItems(w http.ResponseWriter, r *http.Request) {
	n, err := h.todos.ClearCompleted(r.Context(), middleware.UserFromContext(r.Context()))
	if err != nil {
		h.WriteErrorJSON(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{
		Message: i18n.T(middleware.LocaleFromContext(r.Context()), i18n.MsgItemsCleared),
		Count:   &n,
	})
}

// Export downloads the user's items as XML
func (h *WebHandler) Export(w http.ResponseWriter, r *http.Request) {
	writeExport(w, r, h.todos, h.log, h.now(), h.WriteError)
}
