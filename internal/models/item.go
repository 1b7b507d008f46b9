package models

import (
	"fmt"
	"time"
)

// Item represents a todo entry owned by exactly one user
type Item struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
	OwnerID   int64     `json:"owner_id"`
}

// Filter selects items by completion state.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// ParseFilter maps "" to FilterAll and rejects unknown values.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterActive:
		return FilterActive, nil
	case FilterCompleted:
		return FilterCompleted, nil
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// Page is one page of a user's items plus navigation facts.
type Page struct {
	Items   []Item
	Total   int64
	Page    int
	PerPage int
	Pages   int
	HasPrev bool
	HasNext bool
}

// NewPage computes navigation for page (1-based) over total rows.
func NewPage(items []Item, total int64, page, perPage int) *Page {
	pages := int((total + int64(perPage) - 1) / int64(perPage))
	return &Page{
		Items:   items,
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   pages,
		HasPrev: page > 1,
		HasNext: page < pages,
	}
}

// LastPage is the last navigable page number, at least 1.
func (p *Page) LastPage() int {
	if p.Pages < 1 {
		return 1
	}
	return p.Pages
}
