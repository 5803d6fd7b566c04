// Package token issues and verifies the signed session tokens used as
// bearer credentials. Tokens are self-contained: validity is determined
// entirely by the HMAC signature and the expiry claim, never by a lookup
// against the store. The trade-off: a password change does not revoke
// outstanding tokens before they expire.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissing = errors.New("missing authorization header")
	ErrInvalid = errors.New("invalid token")
	ErrExpired = errors.New("token has expired")
)

// Claims is the decoded token payload. user_id and username identify the
// caller on every protected request.
type Claims struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Issue signs a token for the given user, valid for ttl from now.
func Issue(secret []byte, userID int, username string, ttl time.Duration, now time.Time) (string, error) {
	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

// Verify parses and validates a raw token string. It accepts only HS256 and
// returns ErrExpired for an out-of-date token and ErrInvalid for anything
// else wrong with it (tampered signature, malformed payload, wrong alg).
func Verify(secret []byte, raw string) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}
	if !t.Valid {
		return nil, ErrInvalid
	}
	return claims, nil
}

// FromAuthHeader extracts the raw token from an "Authorization: Bearer X"
// header value. Returns ErrMissing when the header is empty and ErrInvalid
// when the scheme is not Bearer.
func FromAuthHeader(header string) (string, error) {
	if header == "" {
		return "", ErrMissing
	}
	scheme, raw, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || raw == "" {
		return "", ErrInvalid
	}
	return raw, nil
}
