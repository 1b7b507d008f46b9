package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Dan9191/todo-service/internal/auth"
	"github.com/Dan9191/todo-service/internal/common"
	"github.com/Dan9191/todo-service/internal/i18n"
	"github.com/Dan9191/todo-service/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	maxUsernameLength = 30
	minPasswordLength = 6
	maxPasswordBytes  = 72 // bcrypt limit

	// PasswordGrant is the only supported OAuth grant type.
	PasswordGrant = "password"
)

// IdentityService handles users, credentials and API tokens
type IdentityService struct {
	store  Store
	tokens *auth.TokenAuthenticator
	log    *logrus.Logger
}

// NewIdentityService initializes a new identity service
func NewIdentityService(store Store, tokens *auth.TokenAuthenticator, log *logrus.Logger) *IdentityService {
	return &IdentityService{store: store, tokens: tokens, log: log}
}

// FindByUsername looks a user up by name
func (s *IdentityService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.store.FindUserByUsername(ctx, username)
}

// FindByID looks a user up by id
func (s *IdentityService) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return s.store.FindUserByID(ctx, id)
}

// List returns every user ordered by id
func (s *IdentityService) List(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

// Create registers a user without starter items
func (s *IdentityService) Create(ctx context.Context, username, password string) (*models.User, error) {
	return s.Register(ctx, username, password, "", false)
}

// Register creates a user with hashed password and, when seed is set, the
// starter items translated for locale. Everything is written in one transaction.
func (s *IdentityService) Register(ctx context.Context, username, password, locale string, seed bool) (*models.User, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	// a taken name wins over any password complaint
	if _, err := s.store.FindUserByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("register %q: %w", username, common.ErrDuplicateUsername)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Username: username, PasswordHash: hash}
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		_, err := tx.FindUserByUsername(ctx, username)
		if err == nil {
			return common.ErrDuplicateUsername
		}
		if !errors.Is(err, common.ErrNotFound) {
			return err
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		if !seed {
			return nil
		}
		for _, item := range starterItems(locale, user.ID) {
			if err := tx.CreateItem(ctx, &item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("register %q: %w", username, err)
	}

	s.log.WithField("user_id", user.ID).Infof("User registered: %s", user.Username)
	return user, nil
}

func validateUsername(username string) error {
	if username == "" {
		return &common.ValidationError{Message: i18n.MsgUsernameRequired}
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return &common.ValidationError{Message: i18n.MsgUsernameTooLong}
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return &common.ValidationError{Message: i18n.MsgPasswordTooShort}
	}
	if len(password) > maxPasswordBytes {
		return &common.ValidationError{Message: i18n.MsgPasswordTooLong}
	}
	return nil
}

func starterItems(locale string, ownerID int64) []models.Item {
	return []models.Item{
		{Body: i18n.T(locale, i18n.SeedMajestic), OwnerID: ownerID},
		{Body: i18n.T(locale, i18n.SeedStranger), OwnerID: ownerID},
		{Body: i18n.T(locale, i18n.SeedGreatWall), OwnerID: ownerID},
		{Body: i18n.T(locale, i18n.SeedPyramids), OwnerID: ownerID, Done: true},
	}
}

// Verify compares password against the user's stored hash
func (s *IdentityService) Verify(user *models.User, password string) bool {
	return auth.VerifyPassword(user.PasswordHash, password)
}

// Authenticate checks credentials. The two failure kinds stay distinct here;
// presentation layers report both with the same message.
func (s *IdentityService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.FindUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, common.ErrNotFound) {
		s.log.WithField("username", username).Info("Login failed: unknown user")
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if !s.Verify(user, password) {
		s.log.WithField("user_id", user.ID).Info("Login failed: wrong password")
		return nil, common.ErrWrongPassword
	}
	return user, nil
}

// IssueToken exchanges a password grant for a bearer token
func (s *IdentityService) IssueToken(ctx context.Context, grantType, username, password string) (string, int, error) {
	if grantType != PasswordGrant {
		return "", 0, common.ErrUnsupportedGrantType
	}
	user, err := s.Authenticate(ctx, username, password)
	if errors.Is(err, common.ErrUserNotFound) || errors.Is(err, common.ErrWrongPassword) {
		return "", 0, fmt.Errorf("%w: %v", common.ErrInvalidGrant, err)
	}
	if err != nil {
		return "", 0, err
	}

	token, expiresIn, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", 0, err
	}
	s.log.WithField("user_id", user.ID).Info("API token issued")
	return token, expiresIn, nil
}

// ResolveToken validates a bearer token and loads the live user it names
func (s *IdentityService) ResolveToken(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	user, err := s.store.FindUserByID(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("%w: user %d no longer exists", common.ErrTokenInvalid, userID)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SetLocale stores the user's language preference; "" clears it
func (s *IdentityService) SetLocale(ctx context.Context, user *models.User, locale string) error {
	if locale == "" {
		user.Locale = nil
		return s.store.UpdateUserLocale(ctx, user.ID, nil)
	}
	if !i18n.IsSupported(locale) {
		return common.ErrUnknownLocale
	}
	if err := s.store.UpdateUserLocale(ctx, user.ID, &locale); err != nil {
		return err
	}
	user.Locale = &locale
	return nil
}

// ChangePassword replaces the user's credential
func (s *IdentityService) ChangePassword(ctx context.Context, user *models.User, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.store.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		return err
	}
	user.PasswordHash = hash
	s.log.WithField("user_id", user.ID).Info("Password changed")
	return nil
}

// DeleteUser removes the user together with all owned items
func (s *IdentityService) DeleteUser(ctx context.Context, user *models.User) error {
	if err := s.store.DeleteUser(ctx, user.ID); err != nil {
		return err
	}
	s.log.WithField("user_id", user.ID).Infof("User deleted: %s", user.Username)
	return nil
}
