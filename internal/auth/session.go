package auth

import (
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	// SessionName is the cookie carrying the browser session.
	SessionName = "todoism_session"

	userIDKey = "user_id"
	localeKey = "locale"
)

// SessionAuthenticator keeps the logged-in identity in a signed cookie.
// It only knows how to set, read, and clear values; nothing is stored server side.
type SessionAuthenticator struct {
	store *sessions.CookieStore
}

// NewSessionAuthenticator signs cookies with hashKey and, when blockKey is
// non-empty, encrypts them too.
func NewSessionAuthenticator(hashKey, blockKey string, secure bool) *SessionAuthenticator {
	keys := [][]byte{[]byte(hashKey)}
	if blockKey != "" {
		keys = append(keys, []byte(blockKey))
	}
	store := sessions.NewCookieStore(keys...)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionAuthenticator{store: store}
}

func (s *SessionAuthenticator) session(r *http.Request) *sessions.Session {
	// a tampered or stale cookie yields a fresh session, which is what we want
	sess, _ := s.store.Get(r, SessionName)
	return sess
}

// SetIdentity marks the session as authenticated for userID.
func (s *SessionAuthenticator) SetIdentity(w http.ResponseWriter, r *http.Request, userID int64) error {
	sess := s.session(r)
	sess.Values[userIDKey] = userID
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Identity returns the authenticated user id, if any.
func (s *SessionAuthenticator) Identity(r *http.Request) (int64, bool) {
	id, ok := s.session(r).Values[userIDKey].(int64)
	return id, ok && id > 0
}

// Clear drops the identity but keeps other session values such as the locale.
func (s *SessionAuthenticator) Clear(w http.ResponseWriter, r *http.Request) error {
	sess := s.session(r)
	delete(sess.Values, userIDKey)
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// SetLocale stores the session's language preference.
func (s *SessionAuthenticator) SetLocale(w http.ResponseWriter, r *http.Request, locale string) error {
	sess := s.session(r)
	sess.Values[localeKey] = locale
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Locale returns the session's language preference or "".
func (s *SessionAuthenticator) Locale(r *http.Request) string {
	locale, _ := s.session(r).Values[localeKey].(string)
	return locale
}
