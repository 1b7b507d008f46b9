package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dan9191/todo-service/internal/common"
	"github.com/Dan9191/todo-service/internal/models"
)

// memStore is an in-memory Store for service tests. RunInTx works on a copy
// that replaces the live state only when fn succeeds.
type memStore struct {
	mu     *sync.Mutex
	state  *memState
	inTx   bool
	writes int
}

type memState struct {
	users  map[int64]models.User
	items  map[int64]models.Item
	nextID int64
	clock  time.Time
}

func newMemStore() *memStore {
	return &memStore{
		mu: &sync.Mutex{},
		state: &memState{
			users: map[int64]models.User{},
			items: map[int64]models.Item{},
			clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		users:  make(map[int64]models.User, len(s.users)),
		items:  make(map[int64]models.Item, len(s.items)),
		nextID: s.nextID,
		clock:  s.clock,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	return c
}

func (m *memStore) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *memStore) tick() time.Time {
	m.state.clock = m.state.clock.Add(time.Second)
	return m.state.clock
}

func (m *memStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memStore{mu: m.mu, state: m.state.clone(), inTx: true}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.state = tx.state
	m.writes += tx.writes
	return nil
}

func (m *memStore) CreateUser(_ context.Context, user *models.User) error {
	defer m.lock()()
	for _, u := range m.state.users {
		if u.Username == user.Username {
			return common.ErrDuplicateUsername
		}
	}
	m.state.nextID++
	user.ID = m.state.nextID
	user.CreatedAt = m.tick()
	m.state.users[user.ID] = *user
	m.writes++
	return nil
}

func (m *memStore) FindUserByID(_ context.Context, id int64) (*models.User, error) {
	defer m.lock()()
	u, ok := m.state.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &u, nil
}

func (m *memStore) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	defer m.lock()()
	for _, u := range m.state.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memStore) ListUsers(context.Context) ([]models.User, error) {
	defer m.lock()()
	users := make([]models.User, 0, len(m.state.users))
	for _, u := range m.state.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *memStore) UpdateUserLocale(_ context.Context, id int64, locale *string) error {
	defer m.lock()()
	u, ok := m.state.users[id]
	if !ok {
		return common.ErrNotFound
	}
	u.Locale = locale
	m.state.users[id] = u
	m.writes++
	return nil
}

func (m *memStore) UpdateUserPassword(_ context.Context, id int64, hash string) error {
	defer m.lock()()
	u, ok := m.state.users[id]
	if !ok {
		return common.ErrNotFound
	}
	u.PasswordHash = hash
	m.state.users[id] = u
	m.writes++
	return nil
}

func (m *memStore) DeleteUser(_ context.Context, id int64) error {
	defer m.lock()()
	if _, ok := m.state.users[id]; !ok {
		return common.ErrNotFound
	}
	for k, it := range m.state.items {
		if it.OwnerID == id {
			delete(m.state.items, k)
		}
	}
	delete(m.state.users, id)
	m.writes++
	return nil
}

func (m *memStore) CreateItem(_ context.Context, item *models.Item) error {
	defer m.lock()()
	m.state.nextID++
	item.ID = m.state.nextID
	item.CreatedAt = m.tick()
	m.state.items[item.ID] = *item
	m.writes++
	return nil
}

func (m *memStore) GetItem(_ context.Context, id int64) (*models.Item, error) {
	defer m.lock()()
	it, ok := m.state.items[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &it, nil
}

func matches(it models.Item, ownerID int64, filter models.Filter) bool {
	if it.OwnerID != ownerID {
		return false
	}
	switch filter {
	case models.FilterActive:
		return !it.Done
	case models.FilterCompleted:
		return it.Done
	}
	return true
}

func (m *memStore) ListItemsByOwner(_ context.Context, ownerID int64, filter models.Filter, limit, offset int) ([]models.Item, error) {
	defer m.lock()()
	var out []models.Item
	for _, it := range m.state.items {
		if matches(it, ownerID, filter) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []models.Item{}, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (m *memStore) CountItemsByOwner(_ context.Context, ownerID int64, filter models.Filter) (int64, error) {
	defer m.lock()()
	var n int64
	for _, it := range m.state.items {
		if matches(it, ownerID, filter) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CountItems(ctx context.Context, ownerID int64) (*models.ItemCounts, error) {
	all, _ := m.CountItemsByOwner(ctx, ownerID, models.FilterAll)
	active, _ := m.CountItemsByOwner(ctx, ownerID, models.FilterActive)
	return &models.ItemCounts{All: all, Active: active, Completed: all - active}, nil
}

func (m *memStore) UpdateItemBody(_ context.Context, id int64, body string) error {
	defer m.lock()()
	it, ok := m.state.items[id]
	if !ok {
		return common.ErrNotFound
	}
	it.Body = body
	m.state.items[id] = it
	m.writes++
	return nil
}

func (m *memStore) ToggleItem(_ context.Context, id int64) (bool, error) {
	defer m.lock()()
	it, ok := m.state.items[id]
	if !ok {
		return false, common.ErrNotFound
	}
	it.Done = !it.Done
	m.state.items[id] = it
	m.writes++
	return it.Done, nil
}

func (m *memStore) DeleteItem(_ context.Context, id int64) error {
	defer m.lock()()
	if _, ok := m.state.items[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.state.items, id)
	m.writes++
	return nil
}

func (m *memStore) DeleteCompletedItems(_ context.Context, ownerID int64) (int64, error) {
	defer m.lock()()
	var n int64
	for k, it := range m.state.items {
		if it.OwnerID == ownerID && it.Done {
			delete(m.state.items, k)
			n++
		}
	}
	m.writes++
	return n, nil
}
