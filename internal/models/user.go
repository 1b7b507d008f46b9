package models

import "time"

// User represents a user in the system
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Not serialized
	Locale       *string   `json:"locale,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// LocaleOrEmpty returns the stored locale preference or "".
func (u *User) LocaleOrEmpty() string {
	if u == nil || u.Locale == nil {
		return ""
	}
	return *u.Locale
}
