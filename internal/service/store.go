package service

import (
	"context"

	"github.com/Dan9191/todo-service/internal/models"
	"github.com/Dan9191/todo-service/internal/repository"
)

// UserStore persists users.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id int64) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUserLocale(ctx context.Context, id int64, locale *string) error
	UpdateUserPassword(ctx context.Context, id int64, hash string) error
	DeleteUser(ctx context.Context, id int64) error
}

// ItemStore persists items.
type ItemStore interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, id int64) (*models.Item, error)
	ListItemsByOwner(ctx context.Context, ownerID int64, filter models.Filter, limit, offset int) ([]models.Item, error)
	CountItemsByOwner(ctx context.Context, ownerID int64, filter models.Filter) (int64, error)
	CountItems(ctx context.Context, ownerID int64) (*models.ItemCounts, error)
	UpdateItemBody(ctx context.Context, id int64, body string) error
	ToggleItem(ctx context.Context, id int64) (bool, error)
	DeleteItem(ctx context.Context, id int64) error
	DeleteCompletedItems(ctx context.Context, ownerID int64) (int64, error)
}

// Store is the full persistence surface plus transactions.
type Store interface {
	UserStore
	ItemStore
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type repositoryStore struct {
	*repository.Repository
}

// NewStore adapts a repository to Store.
func NewStore(repo *repository.Repository) Store {
	return repositoryStore{repo}
}

func (s repositoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.Repository.WithTx(ctx, func(ctx context.Context, tx *repository.Repository) error {
		return fn(ctx, repositoryStore{tx})
	})
}
