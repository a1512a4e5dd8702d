// Package auth resolves bearer tokens into caller identities.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/punchamoorthee/backoffice/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the token payload. Subject carries the identity id.
type Claims struct {
	Staff bool `json:"is_staff"`
	jwt.RegisteredClaims
}

// Resolver turns a bearer token into an Identity.
type Resolver interface {
	Resolve(token string) (domain.Identity, error)
}

// JWT verifies and issues HS256 tokens.
type JWT struct {
	secret []byte
	log    *logrus.Logger
	now    func() time.Time
}

var _ Resolver = (*JWT)(nil)

func NewJWT(secret string, log *logrus.Logger) *JWT {
	return &JWT{secret: []byte(secret), log: log, now: time.Now}
}

func (j *JWT) Resolve(token string) (domain.Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(j.now))
	if err != nil || !parsed.Valid {
		j.log.WithError(err).Debug("rejected bearer token")
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return domain.Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return domain.Identity{ID: claims.Subject, Privileged: claims.Staff}, nil
}

// Issue signs a token for id valid for ttl.
func (j *JWT) Issue(id domain.Identity, ttl time.Duration) (string, error) {
	now := j.now()
	claims := Claims{
		Staff: id.Privileged,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}
