package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/todo-service/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the fixed lifetime of API bearer tokens.
const TokenTTL = 3600 * time.Second

// Claims carries the user id in addition to the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"uid"`
}

// TokenAuthenticator mints and validates stateless HS256 bearer tokens.
type TokenAuthenticator struct {
	secret []byte
	now    func() time.Time
}

// NewTokenAuthenticator builds an authenticator signing with secret.
func NewTokenAuthenticator(secret string) *TokenAuthenticator {
	return &TokenAuthenticator{secret: []byte(secret), now: time.Now}
}

// WithClock returns a copy of a reading time from now.
func (a *TokenAuthenticator) WithClock(now func() time.Time) *TokenAuthenticator {
	return &TokenAuthenticator{secret: a.secret, now: now}
}

// Issue signs a token for userID and returns it with its lifetime in seconds.
func (a *TokenAuthenticator) Issue(userID int64) (string, int, error) {
	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
		UserID: userID,
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, int(TokenTTL.Seconds()), nil
}

// Parse validates signature and expiry and returns the embedded user id.
func (a *TokenAuthenticator) Parse(tokenString string) (int64, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, fmt.Errorf("%w: expired", common.ErrTokenInvalid)
		}
		return 0, fmt.Errorf("%w: %v", common.ErrTokenInvalid, err)
	}
	if !token.Valid || claims.UserID == 0 {
		return 0, common.ErrTokenInvalid
	}
	return claims.UserID, nil
}

// ParseAuthorization extracts the token from an "Authorization: Bearer ..." header value.
func ParseAuthorization(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", common.ErrTokenMissing
	}
	scheme, token, found := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "bearer") {
		return "", common.ErrTokenTypeInvalid
	}
	token = strings.TrimSpace(token)
	if !found || token == "" {
		return "", common.ErrTokenMissing
	}
	return token, nil
}
