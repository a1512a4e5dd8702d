package auth

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/backoffice/internal/domain"
)

func newTestJWT(secret string) *JWT {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewJWT(secret, log)
}

func TestIssueAndResolve(t *testing.T) {
	j := newTestJWT("secret")

	token, err := j.Issue(domain.Identity{ID: "admin", Privileged: true}, time.Hour)
	require.NoError(t, err)

	id, err := j.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", id.ID)
	assert.True(t, id.Privileged)

	token, err = j.Issue(domain.Identity{ID: "u-1"}, time.Hour)
	require.NoError(t, err)
	id, err = j.Resolve(token)
	require.NoError(t, err)
	assert.False(t, id.Privileged)
}

func TestResolveRejects(t *testing.T) {
	j := newTestJWT("secret")

	expired, err := j.Issue(domain.Identity{ID: "u-1"}, -time.Minute)
	require.NoError(t, err)

	foreign, err := newTestJWT("other").Issue(domain.Identity{ID: "u-1"}, time.Hour)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Staff: true}).SignedString([]byte("secret"))
	require.NoError(t, err)

	wrongAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":    expired,
		"signature":  foreign,
		"no subject": noSubject,
		"algorithm":  wrongAlg,
		"garbage":    "not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := j.Resolve(token)
			assert.True(t, errors.Is(err, ErrInvalidToken))
		})
	}
}
