package tokens

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims is the payload of the signed session cookie.
// Subject carries the user id, ID the session jti.
type SessionClaims struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

func (c *SessionClaims) UserID() (uint, error) {
	n, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad subject %q: %w", c.Subject, err)
	}
	return uint(n), nil
}

type Issuer struct {
	Secret []byte
	TTL    time.Duration
}

// Issue signs a fresh session token with a new jti.
func (i *Issuer) Issue(userID uint, username string, isAdmin bool, now time.Time) (string, *SessionClaims, error) {
	if len(i.Secret) == 0 {
		return "", nil, errors.New("session secret is empty")
	}
	claims := &SessionClaims{
		Username: username,
		IsAdmin:  isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.TTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.Secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

func (i *Issuer) Parse(tokenStr string) (*SessionClaims, error) {
	return SessionClaimsFromToken(tokenStr, i.Secret)
}

func SessionClaimsFromToken(tokenStr string, secret []byte) (*SessionClaims, error) {
	var claims SessionClaims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.ID == "" {
		return nil, errors.New("token has no jti")
	}
	return &claims, nil
}
