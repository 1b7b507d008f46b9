package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/Dan9191/todo-service/internal/auth"
	"github.com/Dan9191/todo-service/internal/models"
	"github.com/Dan9191/todo-service/internal/repository"
	"github.com/Dan9191/todo-service/internal/service"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testApp struct {
	server   *httptest.Server
	identity *service.IdentityService
	todos    *service.TodoService
	hook     *test.Hook
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()

	db, err := repository.Open(ctx, repository.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repository.Migrate(ctx, db, repository.SQLite))

	logger, hook := test.NewNullLogger()
	store := service.NewStore(repository.NewRepository(db, repository.SQLite))
	identity := service.NewIdentityService(store, auth.NewTokenAuthenticator(testSecret), logger)
	todos := service.NewTodoService(store, logger, 10)
	sessions := auth.NewSessionAuthenticator(testSecret, "", false)

	api, err := NewAPIHandler(identity, todos, logger, "")
	require.NoError(t, err)
	web := NewWebHandler(identity, todos, sessions, logger)

	server := httptest.NewServer(NewRouter(api, web, sessions, logger))
	t.Cleanup(server.Close)
	return &testApp{server: server, identity: identity, todos: todos, hook: hook}
}

// client returns a cookie-keeping client that does not follow redirects.
func (a *testApp) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (a *testApp) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := a.identity.Create(context.Background(), username, "12345678")
	require.NoError(t, err)
	return user
}

func (a *testApp) createItem(t *testing.T, owner *models.User, body string) *models.Item {
	t.Helper()
	item, err := a.todos.CreateItem(context.Background(), owner, body)
	require.NoError(t, err)
	return item
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r response) json(t *testing.T) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(r.body, &out), string(r.body))
	return out
}

type requestOption func(*http.Request)

func withHeader(key, value string) requestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

func withBearer(token string) requestOption {
	return withHeader("Authorization", "Bearer "+token)
}

func do(t *testing.T, client *http.Client, method, target string, body any, opts ...requestOption) response {
	t.Helper()
	var reader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case url.Values:
		reader = strings.NewReader(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
		contentType = "application/json"
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, opt := range opts {
		opt(req)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{status: resp.StatusCode, header: resp.Header, body: raw}
}
