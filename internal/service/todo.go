package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dan9191/todo-service/internal/common"
	"github.com/Dan9191/todo-service/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultPerPage applies when the caller asks for no particular page size.
	DefaultPerPage = 10
	// MaxPerPage caps page size requests.
	MaxPerPage = 100
)

// TodoService applies the ownership rule on top of the item store.
// Every operation on an existing item loads it, then compares the owner,
// then mutates.
type TodoService struct {
	items   ItemStore
	log     *logrus.Logger
	perPage int
}

// NewTodoService initializes a new todo service. perPage <= 0 selects DefaultPerPage.
func NewTodoService(items ItemStore, log *logrus.Logger, perPage int) *TodoService {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return &TodoService{items: items, log: log, perPage: perPage}
}

// PerPage is the configured default page size.
func (s *TodoService) PerPage() int {
	return s.perPage
}

func cleanBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", common.ErrEmptyBody
	}
	return body, nil
}

// loadOwned fetches item id and fails with ErrForbidden unless requester owns it.
func (s *TodoService) loadOwned(ctx context.Context, requester *models.User, id int64) (*models.Item, error) {
	item, err := s.items.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != requester.ID {
		s.log.WithFields(logrus.Fields{
			"user_id": requester.ID,
			"item_id": id,
		}).Warn("Access to foreign item denied")
		return nil, fmt.Errorf("item %d: %w", id, common.ErrForbidden)
	}
	return item, nil
}

// CreateItem adds a new, not done item for owner
func (s *TodoService) CreateItem(ctx context.Context, owner *models.User, body string) (*models.Item, error) {
	body, err := cleanBody(body)
	if err != nil {
		return nil, err
	}
	item := &models.Item{Body: body, OwnerID: owner.ID}
	if err := s.items.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem returns an item the requester owns
func (s *TodoService) GetItem(ctx context.Context, requester *models.User, id int64) (*models.Item, error) {
	return s.loadOwned(ctx, requester, id)
}

// EditItem replaces the body of an owned item
func (s *TodoService) EditItem(ctx context.Context, requester *models.User, id int64, body string) (*models.Item, error) {
	item, err := s.loadOwned(ctx, requester, id)
	if err != nil {
		return nil, err
	}
	body, err = cleanBody(body)
	if err != nil {
		return nil, err
	}
	if err := s.items.UpdateItemBody(ctx, item.ID, body); err != nil {
		return nil, err
	}
	item.Body = body
	return item, nil
}

// ToggleItem flips the done flag of an owned item
func (s *TodoService) ToggleItem(ctx context.Context, requester *models.User, id int64) (*models.Item, error) {
	item, err := s.loadOwned(ctx, requester, id)
	if err != nil {
		return nil, err
	}
	done, err := s.items.ToggleItem(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	item.Done = done
	return item, nil
}

// DeleteItem removes an owned item
func (s *TodoService) DeleteItem(ctx context.Context, requester *models.User, id int64) error {
	item, err := s.loadOwned(ctx, requester, id)
	if err != nil {
		return err
	}
	return s.items.DeleteItem(ctx, item.ID)
}

// ClearCompleted deletes every done item of owner and reports how many went
func (s *TodoService) ClearCompleted(ctx context.Context, owner *models.User) (int64, error) {
	n, err := s.items.DeleteCompletedItems(ctx, owner.ID)
	if err != nil {
		return 0, err
	}
	s.log.WithFields(logrus.Fields{"user_id": owner.ID, "count": n}).Info("Completed items cleared")
	return n, nil
}

// ListItems returns one page of owner's items, newest first.
// page < 1 reads as 1; perPage < 1 reads as the configured size, above MaxPerPage it is capped.
func (s *TodoService) ListItems(ctx context.Context, owner *models.User, filter models.Filter, page, perPage int) (*models.Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = s.perPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	total, err := s.items.CountItemsByOwner(ctx, owner.ID, filter)
	if err != nil {
		return nil, err
	}
	items := []models.Item{}
	// pages past the end are empty; comparing page numbers first keeps the
	// offset from overflowing
	pages := (total + int64(perPage) - 1) / int64(perPage)
	if int64(page-1) < pages {
		items, err = s.items.ListItemsByOwner(ctx, owner.ID, filter, perPage, (page-1)*perPage)
		if err != nil {
			return nil, err
		}
	}
	return models.NewPage(items, total, page, perPage), nil
}

// Counts returns owner's all/active/completed tallies
func (s *TodoService) Counts(ctx context.Context, owner *models.User) (*models.ItemCounts, error) {
	return s.items.CountItems(ctx, owner.ID)
}

// Export returns every item of owner, newest first
func (s *TodoService) Export(ctx context.Context, owner *models.User) ([]models.Item, error) {
	total, err := s.items.CountItemsByOwner(ctx, owner.ID, models.FilterAll)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return []models.Item{}, nil
	}
	items, err := s.items.ListItemsByOwner(ctx, owner.ID, models.FilterAll, int(total), 0)
	if err != nil {
		return nil, fmt.Errorf("failed to export items: %w", err)
	}
	return items, nil
}
