package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/Dan9191/todo-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var chinese = withHeader("Accept-Language", "zh-CN,zh;q=0.9")

// login starts a session for username on a fresh client.
func (a *testApp) login(t *testing.T, username string, opts ...requestOption) *http.Client {
	t.Helper()
	client := a.client(t)
	res := do(t, client, http.MethodPost, a.server.URL+"/login",
		map[string]string{"username": username, "password": "12345678"}, opts...)
	require.Equal(t, http.StatusOK, res.status, string(res.body))
	return client
}

func TestWeb_RegisterAndLogin(t *testing.T) {
	app := newTestApp(t)
	client := app.client(t)
	creds := map[string]string{"username": "zhangsan", "password": "12345678"}

	res := do(t, client, http.MethodPost, app.server.URL+"/register", creds)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "User created.", res.json(t)["message"])

	res = do(t, client, http.MethodPost, app.server.URL+"/register", map[string]string{"username": "zhangsan", "password": "other-password"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Username already taken.", res.json(t)["message"])

	res = do(t, client, http.MethodPost, app.server.URL+"/register", map[string]string{"username": "lisi", "password": strings.Repeat("a", 80)})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Password must be at most 72 bytes.", res.json(t)["message"])

	res = do(t, client, http.MethodPost, app.server.URL+"/login", map[string]string{"username": "zhangsan", "password": "wrong-pass"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Invalid username or password.", res.json(t)["message"])

	res = do(t, client, http.MethodPost, app.server.URL+"/login", creds)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "Login success.", res.json(t)["message"])

	// already logged in
	res = do(t, client, http.MethodGet, app.server.URL+"/login", nil)
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/app", res.header.Get("Location"))

	res = do(t, client, http.MethodGet, app.server.URL+"/app", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, string(res.body), "Witness something truly majestic")
	assert.Contains(t, string(res.body), "Sit on the Great Pyramids")

	res = do(t, client, http.MethodGet, app.server.URL+"/logout", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "Logged out.", res.json(t)["message"])

	res = do(t, client, http.MethodGet, app.server.URL+"/app", nil)
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/login", res.header.Get("Location"))
}

func TestWeb_FormLogin(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "zhangsan")
	client := app.client(t)

	res := do(t, client, http.MethodPost, app.server.URL+"/login", url.Values{"username": {"zhangsan"}, "password": {"nope-nope"}})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Contains(t, res.header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(res.body), "Invalid username or password.")

	res = do(t, client, http.MethodPost, app.server.URL+"/login", url.Values{"username": {"zhangsan"}, "password": {"12345678"}})
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/app", res.header.Get("Location"))
}

func TestWeb_RegisterSeedsInRequestLocale(t *testing.T) {
	app := newTestApp(t)
	client := app.client(t)

	res := do(t, client, http.MethodPost, app.server.URL+"/register",
		map[string]string{"username": "lisi", "password": "12345678"}, chinese)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "用户创建成功", res.json(t)["message"])

	user, err := app.identity.FindByUsername(context.Background(), "lisi")
	require.NoError(t, err)
	counts, err := app.todos.Counts(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, models.ItemCounts{All: 4, Active: 3, Completed: 1}, *counts)

	page, err := app.todos.ListItems(context.Background(), user, models.FilterCompleted, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "坐在金字塔顶端", page.Items[0].Body)
}

func TestWeb_ItemFlow(t *testing.T) {
	app := newTestApp(t)
	user := app.createUser(t, "zhangsan")
	client := app.login(t, "zhangsan")

	res := do(t, client, http.MethodPost, app.server.URL+"/items/new", map[string]string{"body": "<b>buy milk</b>"}, chinese)
	require.Equal(t, http.StatusOK, res.status, string(res.body))
	created := res.json(t)
	assert.Equal(t, "+1", created["message"])
	assert.Contains(t, created["html"], "&lt;b&gt;buy milk&lt;/b&gt;")
	assert.NotContains(t, created["html"], "<b>")

	res = do(t, client, http.MethodPost, app.server.URL+"/items/new", map[string]string{"body": "   "}, chinese)
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "未获取到内容", res.json(t)["message"])

	page, err := app.todos.ListItems(context.Background(), user, models.FilterAll, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	itemURL := fmt.Sprintf("%s/item/%d", app.server.URL, page.Items[0].ID)

	res = do(t, client, http.MethodPut, itemURL+"/edit", map[string]string{"body": "buy oat milk"}, chinese)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "更新成功", res.json(t)["message"])

	res = do(t, client, http.MethodPatch, itemURL+"/toggle", nil, chinese)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "更新成功", res.json(t)["message"])

	item, err := app.todos.GetItem(context.Background(), user, page.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "buy oat milk", item.Body)
	assert.True(t, item.Done)

	app.createItem(t, user, "still open")
	res = do(t, client, http.MethodDelete, app.server.URL+"/item/clear", nil, chinese)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "已清理完成条目", res.json(t)["message"])
	assert.EqualValues(t, 1, res.json(t)["count"])

	res = do(t, client, http.MethodDelete, itemURL+"/delete", nil, chinese)
	assert.Equal(t, http.StatusNotFound, res.status)

	counts, err := app.todos.Counts(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, models.ItemCounts{All: 1, Active: 1}, *counts)
}

func TestWeb_ForeignItemIsForbidden(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "zhangsan")
	lisi := app.createUser(t, "lisi")
	item := app.createItem(t, lisi, "lisi's item")
	client := app.login(t, "zhangsan")
	itemURL := fmt.Sprintf("%s/item/%d", app.server.URL, item.ID)

	for _, tc := range []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPut, "/edit", map[string]string{"body": "hijacked"}},
		{http.MethodPut, "/edit", map[string]string{"body": ""}},
		{http.MethodPatch, "/toggle", nil},
		{http.MethodDelete, "/delete", nil},
	} {
		res := do(t, client, tc.method, itemURL+tc.path, tc.body, chinese)
		assert.Equal(t, http.StatusForbidden, res.status, tc.path)
		assert.Equal(t, "权限错误", res.json(t)["message"], tc.path)
	}

	got, err := app.todos.GetItem(context.Background(), lisi, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "lisi's item", got.Body)
	assert.False(t, got.Done)
}

func TestWeb_ItemDelete(t *testing.T) {
	app := newTestApp(t)
	user := app.createUser(t, "zhangsan")
	item := app.createItem(t, user, "gone soon")
	client := app.login(t, "zhangsan")

	res := do(t, client, http.MethodDelete, fmt.Sprintf("%s/item/%d/delete", app.server.URL, item.ID), nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "Item deleted.", res.json(t)["message"])
}

func TestWeb_AnonymousAccess(t *testing.T) {
	app := newTestApp(t)
	client := app.client(t)

	res := do(t, client, http.MethodGet, app.server.URL+"/app", nil)
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/login", res.header.Get("Location"))

	res = do(t, client, http.MethodPost, app.server.URL+"/items/new", map[string]string{"body": "x"})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "Please log in to access this page.", res.json(t)["message"])

	res = do(t, client, http.MethodGet, app.server.URL+"/", nil)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, string(res.body), "We are todoist, we use todoism")
}

func TestWeb_SetLocale(t *testing.T) {
	app := newTestApp(t)
	client := app.client(t)

	res := do(t, client, http.MethodGet, app.server.URL+"/set-locale/fr", nil, chinese)
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Equal(t, "错误的区域", res.json(t)["message"])

	res = do(t, client, http.MethodGet, app.server.URL+"/set-locale/zh", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "区域设置成功", res.json(t)["message"])

	// the session choice wins over the header
	res = do(t, client, http.MethodGet, app.server.URL+"/intro", nil, withHeader("Accept-Language", "en"))
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, string(res.body), "开始使用")
}

func TestWeb_SetLocalePersistsForUser(t *testing.T) {
	app := newTestApp(t)
	app.createUser(t, "zhangsan")
	client := app.login(t, "zhangsan")

	res := do(t, client, http.MethodGet, app.server.URL+"/set-locale/zh", nil)
	require.Equal(t, http.StatusOK, res.status)

	user, err := app.identity.FindByUsername(context.Background(), "zhangsan")
	require.NoError(t, err)
	assert.Equal(t, "zh", user.LocaleOrEmpty())

	// a fresh session picks the stored preference up
	other := app.login(t, "zhangsan")
	res = do(t, other, http.MethodPost, app.server.URL+"/items/new", map[string]string{"body": ""})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "未获取到内容", res.json(t)["message"])
}

func TestWeb_Export(t *testing.T) {
	app := newTestApp(t)
	user := app.createUser(t, "zhangsan")
	app.createItem(t, user, "export me")
	client := app.login(t, "zhangsan")

	res := do(t, client, http.MethodGet, app.server.URL+"/items/export", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, string(res.body), "<item ")
	assert.Contains(t, string(res.body), "export me")
}

func TestWeb_NotFound(t *testing.T) {
	app := newTestApp(t)
	client := app.client(t)

	res := do(t, client, http.MethodGet, app.server.URL+"/no/such/page", nil)
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Contains(t, res.header.Get("Content-Type"), "text/html")
	assert.True(t, strings.Contains(string(res.body), "The requested URL was not found on the server."))

	res = do(t, client, http.MethodGet, app.server.URL+"/no/such/page", nil, withHeader("Accept", "application/json"))
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.EqualValues(t, 404, res.json(t)["code"])
}

func TestWeb_MethodNotAllowed(t *testing.T) {
	app := newTestApp(t)
	client := app.client(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/logout"},
		{http.MethodGet, "/item/1/edit"},
		{http.MethodPost, "/item/1/toggle"},
		{http.MethodGet, "/items/new"},
	} {
		res := do(t, client, tc.method, app.server.URL+tc.path, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, res.status, "%s %s", tc.method, tc.path)
		assert.EqualValues(t, 405, res.json(t)["code"], "%s %s", tc.method, tc.path)
	}
}

func TestWeb_RequestIDEchoed(t *testing.T) {
	app := newTestApp(t)
	res := do(t, app.client(t), http.MethodGet, app.server.URL+"/", nil, withHeader("X-Request-ID", "req-42"))
	assert.Equal(t, "req-42", res.header.Get("X-Request-ID"))
}
