package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/todo-service/internal/common"
	"github.com/Dan9191/todo-service/internal/export"
	"github.com/Dan9191/todo-service/internal/i18n"
	"github.com/Dan9191/todo-service/internal/middleware"
	"github.com/Dan9191/todo-service/internal/models"
	"github.com/Dan9191/todo-service/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Route names of the API surface; hyperlinks are built from them.
const (
	routeAPIIndex     = "api.index"
	routeAPIToken     = "api.token"
	routeAPIRegister  = "api.register"
	routeAPIUser      = "api.user"
	routeAPIItems     = "api.items"
	routeAPIActive    = "api.active_items"
	routeAPICompleted = "api.completed_items"
	routeAPIExport    = "api.export"
	routeAPIItem      = "api.item"
)

const apiVersion = "1.0"

// APIHandler serves the bearer-token REST surface under /v1.
type APIHandler struct {
	identity *service.IdentityService
	todos    *service.TodoService
	log      *logrus.Logger
	baseURL  *url.URL
	router   *mux.Router
	now      func() time.Time
}

// NewAPIHandler creates the API handler. baseURL, when non-empty, replaces the
// request's scheme and host in generated links.
func NewAPIHandler(identity *service.IdentityService, todos *service.TodoService, log *logrus.Logger, baseURL string) (*APIHandler, error) {
	h := &APIHandler{identity: identity, todos: todos, log: log, now: time.Now}
	if baseURL != "" {
		u, err := url.Parse(strings.TrimRight(baseURL, "/"))
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid API base URL %q", baseURL)
		}
		h.baseURL = u
	}
	return h, nil
}

// Routes mounts the API on r under APIPrefix. Routes are registered flat,
// without prefix subrouters, since a subrouter's inherited prefix matcher
// would turn a method mismatch into a 404.
func (h *APIHandler) Routes(r *mux.Router) {
	h.router = r

	r.HandleFunc(APIPrefix+"/", h.Index).Methods(http.MethodGet).Name(routeAPIIndex)
	r.HandleFunc(APIPrefix+"/oauth/token", h.Token).Methods(http.MethodPost).Name(routeAPIToken)
	r.HandleFunc(APIPrefix+"/register", h.Register).Methods(http.MethodPost).Name(routeAPIRegister)

	bearer := middleware.BearerAuth(h.identity, h.WriteError)
	user := func(f http.HandlerFunc) http.Handler { return bearer(f) }
	r.Handle(APIPrefix+"/user", user(h.User)).Methods(http.MethodGet).Name(routeAPIUser)
	r.Handle(APIPrefix+"/user/items", user(h.Items)).Methods(http.MethodGet, http.MethodPost).Name(routeAPIItems)
	r.Handle(APIPrefix+"/user/items/active", user(h.ActiveItems)).Methods(http.MethodGet).Name(routeAPIActive)
	r.Handle(APIPrefix+"/user/items/completed", user(h.CompletedItems)).Methods(http.MethodGet, http.MethodDelete).Name(routeAPICompleted)
	r.Handle(APIPrefix+"/user/items/export", user(h.Export)).Methods(http.MethodGet).Name(routeAPIExport)
	r.Handle(APIPrefix+"/user/items/{id:[0-9]+}", bearer(serveItem(itemAPI{h}, h.WriteError))).
		Methods(http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete).
		Name(routeAPIItem)
}

// WriteError renders err as an API error body.
func (h *APIHandler) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	info := classify(err)
	logFailure(h.log, r, info, err)
	if info.bearer {
		challenge := "Bearer"
		if info.oauth != "" {
			challenge = fmt.Sprintf(`Bearer error=%q`, info.oauth)
		}
		w.Header().Set("WWW-Authenticate", challenge)
	}
	writeJSON(w, info.status, newAPIStatus(middleware.LocaleFromContext(r.Context()), info))
}

// link builds the absolute URL of a named route.
func (h *APIHandler) link(r *http.Request, name string, query url.Values, pairs ...string) string {
	route := h.router.Get(name)
	if route == nil {
		return ""
	}
	u, err := route.URL(pairs...)
	if err != nil {
		h.log.WithError(err).WithField("route", name).Error("Failed to build link")
		return ""
	}
	if h.baseURL != nil {
		u.Scheme = h.baseURL.Scheme
		u.Host = h.baseURL.Host
		u.Path = strings.TrimRight(h.baseURL.Path, "/") + u.Path
	} else {
		u.Scheme = requestScheme(r)
		u.Host = r.Host
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func requestScheme(r *http.Request) string {
	if r.URL.Scheme != "" {
		return r.URL.Scheme
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

type itemAuthor struct {
	ID       int64  `json:"id"`
	URL      string `json:"url"`
	Username string `json:"username"`
	Kind     string `json:"kind"`
}

type itemResource struct {
	ID     int64      `json:"id"`
	Self   string     `json:"self"`
	Kind   string     `json:"kind"`
	Body   string     `json:"body"`
	Done   bool       `json:"done"`
	Author itemAuthor `json:"author"`
}

type userResource struct {
	ID                 int64  `json:"id"`
	Self               string `json:"self"`
	Kind               string `json:"kind"`
	Username           string `json:"username"`
	AllItemsURL        string `json:"all_items_url"`
	ActiveItemsURL     string `json:"active_items_url"`
	CompletedItemsURL  string `json:"completed_items_url"`
	AllItemCount       int64  `json:"all_item_count"`
	ActiveItemCount    int64  `json:"active_item_count"`
	CompletedItemCount int64  `json:"completed_item_count"`
}

type itemCollection struct {
	Self  string         `json:"self"`
	Kind  string         `json:"kind"`
	Items []itemResource `json:"items"`
	Prev  *string        `json:"prev"`
	Next  *string        `json:"next"`
	First string         `json:"first"`
	Last  string         `json:"last"`
	Count int64          `json:"count"`
}

func (h *APIHandler) itemSchema(r *http.Request, owner *models.User, item models.Item) itemResource {
	return itemResource{
		ID:   item.ID,
		Self: h.link(r, routeAPIItem, nil, "id", strconv.FormatInt(item.ID, 10)),
		Kind: "Item",
		Body: item.Body,
		Done: item.Done,
		Author: itemAuthor{
			ID:       item.OwnerID,
			URL:      h.link(r, routeAPIUser, nil),
			Username: owner.Username,
			Kind:     "User",
		},
	}
}

func (h *APIHandler) collection(r *http.Request, route string, owner *models.User, page *models.Page) itemCollection {
	pageLink := func(n int) string {
		return h.link(r, route, url.Values{
			"page":     {strconv.Itoa(n)},
			"per_page": {strconv.Itoa(page.PerPage)},
		})
	}
	c := itemCollection{
		Self:  pageLink(page.Page),
		Kind:  "ItemCollection",
		Items: make([]itemResource, 0, len(page.Items)),
		First: pageLink(1),
		Last:  pageLink(page.LastPage()),
		Count: page.Total,
	}
	for _, item := range page.Items {
		c.Items = append(c.Items, h.itemSchema(r, owner, item))
	}
	if page.HasPrev {
		prev := pageLink(page.Page - 1)
		c.Prev = &prev
	}
	if page.HasNext {
		next := pageLink(page.Page + 1)
		c.Next = &next
	}
	return c
}

// Index describes the API entry points.
func (h *APIHandler) Index(w http.ResponseWriter, r *http.Request) {
	items := h.link(r, routeAPIItems, nil)
	writeJSON(w, http.StatusOK, map[string]string{
		"api_version":                      apiVersion,
		"api_base_url":                     h.link(r, routeAPIIndex, nil),
		"current_user_url":                 h.link(r, routeAPIUser, nil),
		"authentication_url":               h.link(r, routeAPIToken, nil),
		"registration_url":                 h.link(r, routeAPIRegister, nil),
		"item_url":                         items + "/{item_id}",
		"current_user_items_url":           items,
		"current_user_active_items_url":    h.link(r, routeAPIActive, nil),
		"current_user_completed_items_url": h.link(r, routeAPICompleted, nil),
		"current_user_export_url":          h.link(r, routeAPIExport, nil),
	})
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token implements the OAuth2 resource owner password grant.
func (h *APIHandler) Token(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")

	if err := r.ParseForm(); err != nil {
		h.WriteError(w, r, errMalformed)
		return
	}
	token, expiresIn, err := h.identity.IssueToken(r.Context(),
		r.PostForm.Get("grant_type"), r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "Bearer", ExpiresIn: expiresIn})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func readCredentials(r *http.Request) (credentials, error) {
	var c credentials
	if hasJSONBody(r) {
		err := decodeJSON(r, &c)
		return c, err
	}
	if err := r.ParseForm(); err != nil {
		return c, errMalformed
	}
	c.Username = r.PostForm.Get("username")
	c.Password = r.PostForm.Get("password")
	return c, nil
}

// Register creates an account without starter items.
func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	if _, err := h.identity.Create(r.Context(), creds.Username, creds.Password); err != nil {
		h.WriteError(w, r, err)
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	writeJSON(w, http.StatusCreated, apiStatus{Code: http.StatusCreated, Message: i18n.T(locale, i18n.MsgUserCreated)})
}

// User returns the authenticated user resource.
func (h *APIHandler) User(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	counts, err := h.todos.Counts(r.Context(), user)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResource{
		ID:                 user.ID,
		Self:               h.link(r, routeAPIUser, nil),
		Kind:               "User",
		Username:           user.Username,
		AllItemsURL:        h.link(r, routeAPIItems, nil),
		ActiveItemsURL:     h.link(r, routeAPIActive, nil),
		CompletedItemsURL:  h.link(r, routeAPICompleted, nil),
		AllItemCount:       counts.All,
		ActiveItemCount:    counts.Active,
		CompletedItemCount: counts.Completed,
	})
}

// pagination reads page and per_page; absent values select the defaults.
func pagination(r *http.Request) (int, int, error) {
	q := r.URL.Query()
	page, perPage := 1, 0
	var err error
	if v := q.Get("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil {
			return 0, 0, errMalformed
		}
	}
	if v := q.Get("per_page"); v != "" {
		if perPage, err = strconv.Atoi(v); err != nil {
			return 0, 0, errMalformed
		}
	}
	return page, perPage, nil
}

func (h *APIHandler) list(w http.ResponseWriter, r *http.Request, route string, filter models.Filter) {
	user := middleware.UserFromContext(r.Context())
	page, perPage, err := pagination(r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	p, err := h.todos.ListItems(r.Context(), user, filter, page, perPage)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.collection(r, route, user, p))
}

// Items lists every item (GET) or creates one (POST).
func (h *APIHandler) Items(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.list(w, r, routeAPIItems, models.FilterAll)
		return
	}
	user := middleware.UserFromContext(r.Context())
	body, err := itemBody(r)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	item, err := h.todos.CreateItem(r.Context(), user, body)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	res := h.itemSchema(r, user, *item)
	w.Header().Set("Location", res.Self)
	writeJSON(w, http.StatusCreated, res)
}

// ActiveItems lists items not done yet.
func (h *APIHandler) ActiveItems(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, routeAPIActive, models.FilterActive)
}

// CompletedItems lists done items (GET) or deletes all of them (DELETE).
func (h *APIHandler) CompletedItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		h.list(w, r, routeAPICompleted, models.FilterCompleted)
		return
	}
	if _, err := h.todos.ClearCompleted(r.Context(), middleware.UserFromContext(r.Context())); err != nil {
		h.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export returns all items as an XML attachment.
func (h *APIHandler) Export(w http.ResponseWriter, r *http.Request) {
	writeExport(w, r, h.todos, h.log, h.now(), h.WriteError)
}

func writeExport(w http.ResponseWriter, r *http.Request, todos *service.TodoService, log *logrus.Logger, now time.Time, onError middleware.ErrorWriter) {
	user := middleware.UserFromContext(r.Context())
	items, err := todos.Export(r.Context(), user)
	if err != nil {
		onError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="todoism-%d.xml"`, user.ID))
	if err := export.Write(w, user, items, now); err != nil {
		// headers are already sent
		log.WithError(err).WithField("user_id", user.ID).Warn("Export interrupted")
	}
}

// ItemResource is the method set of a single item endpoint. Each method runs
// with the authenticated requester and the parsed item id.
type ItemResource interface {
	Get(w http.ResponseWriter, r *http.Request, requester *models.User, id int64)
	Put(w http.ResponseWriter, r *http.Request, requester *models.User, id int64)
	Patch(w http.ResponseWriter, r *http.Request, requester *models.User, id int64)
	Delete(w http.ResponseWriter, r *http.Request, requester *models.User, id int64)
}

// serveItem dispatches on method after resolving requester and id.
func serveItem(res ItemResource, onError middleware.ErrorWriter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requester := middleware.UserFromContext(r.Context())
		if requester == nil {
			onError(w, r, common.ErrLoginRequired)
			return
		}
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			onError(w, r, common.ErrNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			res.Get(w, r, requester, id)
		case http.MethodPut:
			res.Put(w, r, requester, id)
		case http.MethodPatch:
			res.Patch(w, r, requester, id)
		case http.MethodDelete:
			res.Delete(w, r, requester, id)
		default:
			w.Header().Set("Allow", "GET, PUT, PATCH, DELETE")
			writeJSON(w, http.StatusMethodNotAllowed, apiStatus{
				Code:    http.StatusMethodNotAllowed,
				Message: i18n.T(middleware.LocaleFromContext(r.Context()), i18n.MsgMethodNotAllowed),
			})
		}
	})
}

// itemAPI is the REST rendering of an item.
type itemAPI struct {
	h *APIHandler
}

func (a itemAPI) Get(w http.ResponseWriter, r *http.Request, requester *models.User, id int64) {
	item, err := a.h.todos.GetItem(r.Context(), requester, id)
	if err != nil {
		a.h.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.h.itemSchema(r, requester, *item))
}

func (a itemAPI) Put(w http.ResponseWriter, r *http.Request, requester *models.User, id int64) {
	body, err := itemBody(r)
	if err != nil {
		a.h.WriteError(w, r, err)
		return
	}
	if _, err := a.h.todos.EditItem(r.Context(), requester, id, body); err != nil {
		a.h.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a itemAPI) Patch(w http.ResponseWriter, r *http.Request, requester *models.User, id int64) {
	if _, err := a.h.todos.ToggleItem(r.Context(), requester, id); err != nil {
		a.h.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a itemAPI) Delete(w http.ResponseWriter, r *http.Request, requester *models.User, id int64) {
	if err := a.h.todos.DeleteItem(r.Context(), requester, id); err != nil {
		a.h.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
