package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/todo-service/internal/common"
	"github.com/Dan9191/todo-service/internal/dbx"
	"github.com/Dan9191/todo-service/internal/models"
	"github.com/lib/pq"
)

// Repository provides database operations
type Repository struct {
	db      *sql.DB
	q       dbx.DBTX
	dialect Dialect
	now     func() time.Time
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB, dialect Dialect) *Repository {
	return &Repository{db: db, q: db, dialect: dialect, now: time.Now}
}

// DB exposes the underlying pool for health checks.
func (r *Repository) DB() *sql.DB {
	return r.db
}

// WithTx runs fn against a repository bound to a single transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx *Repository) error) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		bound := *r
		bound.q = tx
		return fn(ctx, &bound)
	})
}

// rebind rewrites $N placeholders into sqlite's ?N form.
func (r *Repository) rebind(query string) string {
	if r.dialect == SQLite {
		return strings.ReplaceAll(query, "$", "?")
	}
	return query
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, password_hash, locale, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	user.CreatedAt = r.now().UTC()
	err := r.q.QueryRowContext(ctx, r.rebind(query), user.Username, user.PasswordHash, nullString(user.Locale), user.CreatedAt).
		Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return common.ErrDuplicateUsername
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

const userColumns = `id, username, password_hash, locale, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	var locale sql.NullString
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &locale, &user.CreatedAt); err != nil {
		return nil, err
	}
	if locale.Valid {
		user.Locale = &locale.String
	}
	return user, nil
}

// FindUserByUsername retrieves a user by username
func (r *Repository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	user, err := scanUser(r.q.QueryRowContext(ctx, r.rebind(query), username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// FindUserByID retrieves a user by id
func (r *Repository) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.q.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// ListUsers returns every user ordered by id
func (r *Repository) ListUsers(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateUserLocale stores a locale preference; nil clears it
func (r *Repository) UpdateUserLocale(ctx context.Context, id int64, locale *string) error {
	query := `UPDATE users SET locale = $1 WHERE id = $2`
	return r.execOne(ctx, "update user locale", query, nullString(locale), id)
}

// UpdateUserPassword replaces the stored password hash
func (r *Repository) UpdateUserPassword(ctx context.Context, id int64, hash string) error {
	query := `UPDATE users SET password_hash = $1 WHERE id = $2`
	return r.execOne(ctx, "update user password", query, hash, id)
}

// DeleteUser removes the user and every item it owns in one transaction
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	return r.WithTx(ctx, func(ctx context.Context, tx *Repository) error {
		if _, err := tx.q.ExecContext(ctx, tx.rebind(`DELETE FROM items WHERE owner_id = $1`), id); err != nil {
			return fmt.Errorf("failed to delete user items: %w", err)
		}
		return tx.execOne(ctx, "delete user", `DELETE FROM users WHERE id = $1`, id)
	})
}

// CreateItem creates a new item in the database
func (r *Repository) CreateItem(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO items (body, done, created_at, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	item.CreatedAt = r.now().UTC()
	err := r.q.QueryRowContext(ctx, r.rebind(query), item.Body, item.Done, item.CreatedAt, item.OwnerID).
		Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

const itemColumns = `id, body, done, created_at, owner_id`

func scanItem(row interface{ Scan(...any) error }) (*models.Item, error) {
	item := &models.Item{}
	if err := row.Scan(&item.ID, &item.Body, &item.Done, &item.CreatedAt, &item.OwnerID); err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem retrieves an item by id
func (r *Repository) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	item, err := scanItem(r.q.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// filterClause returns the WHERE clause for an owner and filter, with args.
func filterClause(ownerID int64, filter models.Filter) (string, []any) {
	switch filter {
	case models.FilterActive:
		return `owner_id = $1 AND done = $2`, []any{ownerID, false}
	case models.FilterCompleted:
		return `owner_id = $1 AND done = $2`, []any{ownerID, true}
	default:
		return `owner_id = $1`, []any{ownerID}
	}
}

// ListItemsByOwner returns a window of the owner's items, newest first
func (r *Repository) ListItemsByOwner(ctx context.Context, ownerID int64, filter models.Filter, limit, offset int) ([]models.Item, error) {
	where, args := filterClause(ownerID, filter)
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM items WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		itemColumns, where, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.q.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// CountItemsByOwner counts the owner's items matching filter
func (r *Repository) CountItemsByOwner(ctx context.Context, ownerID int64, filter models.Filter) (int64, error) {
	where, args := filterClause(ownerID, filter)
	var n int64
	if err := r.q.QueryRowContext(ctx, r.rebind(`SELECT COUNT(*) FROM items WHERE `+where), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return n, nil
}

// CountItems returns all/active/completed totals for the owner
func (r *Repository) CountItems(ctx context.Context, ownerID int64) (*models.ItemCounts, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN done THEN 1 ELSE 0 END), 0)
		FROM items
		WHERE owner_id = $1`
	counts := &models.ItemCounts{}
	if err := r.q.QueryRowContext(ctx, r.rebind(query), ownerID).Scan(&counts.All, &counts.Completed); err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}
	counts.Active = counts.All - counts.Completed
	return counts, nil
}

// UpdateItemBody replaces the body of an item
func (r *Repository) UpdateItemBody(ctx context.Context, id int64, body string) error {
	return r.execOne(ctx, "update item", `UPDATE items SET body = $1 WHERE id = $2`, body, id)
}

// ToggleItem flips done and returns the new value
func (r *Repository) ToggleItem(ctx context.Context, id int64) (bool, error) {
	var done bool
	err := r.q.QueryRowContext(ctx, r.rebind(`UPDATE items SET done = NOT done WHERE id = $1 RETURNING done`), id).Scan(&done)
	if errors.Is(err, sql.ErrNoRows) {
		return false, common.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to toggle item: %w", err)
	}
	return done, nil
}

// DeleteItem removes a single item
func (r *Repository) DeleteItem(ctx context.Context, id int64) error {
	return r.execOne(ctx, "delete item", `DELETE FROM items WHERE id = $1`, id)
}

// DeleteCompletedItems removes the owner's done items and returns how many
func (r *Repository) DeleteCompletedItems(ctx context.Context, ownerID int64) (int64, error) {
	res, err := r.q.ExecContext(ctx, r.rebind(`DELETE FROM items WHERE owner_id = $1 AND done = $2`), ownerID, true)
	if err != nil {
		return 0, fmt.Errorf("failed to clear completed items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to clear completed items: %w", err)
	}
	return n, nil
}

// execOne runs a statement that must touch exactly one row.
func (r *Repository) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, r.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
