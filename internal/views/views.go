// Package views renders the HTML surface as templ components.
package views

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/Dan9191/todo-service/internal/i18n"
	"github.com/Dan9191/todo-service/internal/models"
	"github.com/a-h/templ"
)

// Page carries what every page needs around its content.
type Page struct {
	Locale string
	User   *models.User
	// ActiveCount is shown in the navigation when a user is logged in.
	ActiveCount *int64
}

func (p Page) t(key string) string {
	return i18n.T(p.Locale, key)
}

// markup is a fragment written by this package that printf emits verbatim.
type markup string

// writer collects the first write error so markup can be written linearly.
type writer struct {
	w   io.Writer
	err error
}

// printf formats args into format. String and fmt.Stringer arguments are
// HTML escaped; only markup values are written as is.
func (w *writer) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	for i, arg := range args {
		switch v := arg.(type) {
		case markup:
			args[i] = string(v)
		case string:
			args[i] = templ.EscapeString(v)
		case fmt.Stringer:
			args[i] = templ.EscapeString(v.String())
		}
	}
	_, w.err = fmt.Fprintf(w.w, format, args...)
}

func (w *writer) render(ctx context.Context, c templ.Component) {
	if w.err != nil || c == nil {
		return
	}
	w.err = c.Render(ctx, w.w)
}

func component(fn func(ctx context.Context, w *writer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		fn(ctx, w)
		return w.err
	})
}

// Layout wraps content in the document shell.
func Layout(p Page, content templ.Component) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.printf(`<!DOCTYPE html><html lang="%s"><head><meta charset="utf-8">`, p.Locale)
		w.printf(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		w.printf(`<title>%s</title></head><body>`, p.t(i18n.PageTitle))
		w.printf(`<nav><a href="/">%s</a>`, p.t(i18n.PageTitle))
		if p.User != nil {
			w.printf(` <a href="/app">%s</a>`, p.User.Username)
			if p.ActiveCount != nil {
				w.printf(` <span class="badge" id="active-count">%d</span>`, *p.ActiveCount)
			}
			w.printf(` <a href="/logout" id="logout">%s</a>`, p.t(i18n.PageLogout))
		} else {
			w.printf(` <a href="/login">%s</a>`, p.t(i18n.PageLogin))
		}
		for _, locale := range i18n.Supported() {
			w.printf(` <a href="/set-locale/%s" class="locale">%s</a>`, locale, locale)
		}
		w.printf(`</nav><main>`)
		w.render(ctx, content)
		w.printf(`</main></body></html>`)
	})
}

// Index is the landing page.
func Index(p Page) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.printf(`<section id="index"><h1>%s</h1><p>%s</p>`, p.t(i18n.PageTitle), p.t(i18n.PageSlogan))
		w.printf(`<a class="btn" href="/intro">%s</a></section>`, p.t(i18n.PageGetStarted))
	})
}

// Intro explains the application.
func Intro(p Page) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.printf(`<section id="intro"><h2>%s</h2>`, p.t(i18n.PageSlogan))
		target := "/login"
		if p.User != nil {
			target = "/app"
		}
		w.printf(`<a class="btn" href="%s">%s</a></section>`, target, p.t(i18n.PageGetStarted))
	})
}

// Login renders the login form.
func Login(p Page) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.printf(`<section id="login"><h2>%s</h2><form method="post" action="/login">`, p.t(i18n.PageLogin))
		w.printf(`<label>%s <input type="text" name="username" maxlength="30" required></label>`, p.t(i18n.PageUsername))
		w.printf(`<label>%s <input type="password" name="password" required></label>`, p.t(i18n.PagePassword))
		w.printf(`<button type="submit">%s</button></form></section>`, p.t(i18n.PageLogin))
	})
}

// AppData is the content of the todo application page.
type AppData struct {
	Counts models.ItemCounts
	Filter models.Filter
	Items  *models.Page
}

func appURL(filter models.Filter, page int) string {
	return "/app?filter=" + string(filter) + "&page=" + strconv.Itoa(page)
}

// App renders counts, filter links, the item list and the pager.
func App(p Page, d AppData) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.printf(`<section id="app"><h2>%s</h2>`, p.t(i18n.PageNext))
		w.printf(`<form id="new-item"><input type="text" name="body" placeholder="%s"></form>`, p.t(i18n.PageNext))

		w.printf(`<ul class="filters">`)
		for _, f := range []struct {
			filter models.Filter
			label  string
			count  int64
		}{
			{models.FilterAll, i18n.PageAll, d.Counts.All},
			{models.FilterActive, i18n.PageActive, d.Counts.Active},
			{models.FilterCompleted, i18n.PageCompleted, d.Counts.Completed},
		} {
			class := markup("")
			if f.filter == d.Filter {
				class = ` class="active"`
			}
			w.printf(`<li%s><a href="%s">%s <span class="count">%d</span></a></li>`,
				class, appURL(f.filter, 1), p.t(f.label), f.count)
		}
		w.printf(`</ul><ul id="items">`)
		for _, item := range d.Items.Items {
			w.render(ctx, ItemFragment(p.Locale, item))
		}
		w.printf(`</ul>`)

		w.printf(`<nav class="pager">`)
		if d.Items.HasPrev {
			w.printf(`<a rel="prev" href="%s">%s</a>`, appURL(d.Filter, d.Items.Page-1), p.t(i18n.PagePrev))
		}
		w.printf(` <span>%d / %d</span> `, d.Items.Page, d.Items.LastPage())
		if d.Items.HasNext {
			w.printf(`<a rel="next" href="%s">%s</a>`, appURL(d.Filter, d.Items.Page+1), p.t(i18n.PageNextPage))
		}
		w.printf(`</nav><button id="clear-btn" data-href="/item/clear">%s</button></section>`, p.t(i18n.PageClear))
	})
}

// ItemFragment renders one list entry, also returned by the new item endpoint.
func ItemFragment(locale string, item models.Item) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		state := "active"
		checked := markup("")
		if item.Done {
			state = "done"
			checked = " checked"
		}
		w.printf(`<li class="item %s" id="item-%d" data-id="%d">`, state, item.ID, item.ID)
		w.printf(`<input type="checkbox" class="toggle" data-href="/item/%d/toggle"%s>`, item.ID, checked)
		w.printf(`<span class="body" data-href="/item/%d/edit">%s</span>`, item.ID, item.Body)
		w.printf(`<button class="delete" data-href="/item/%d/delete">&times;</button></li>`, item.ID)
	})
}

// ErrorPage renders an HTTP error with its translated description.
func ErrorPage(p Page, code int, message string) templ.Component {
	return component(func(ctx context.Context, w *writer) {
		w.printf(`<section id="error"><h2>%s %d</h2><p>%s</p>`, p.t(i18n.PageError), code, message)
		w.printf(`<a href="/">%s</a></section>`, p.t(i18n.PageTitle))
	})
}

// RenderString renders c into a string.
func RenderString(ctx context.Context, c templ.Component) (string, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
