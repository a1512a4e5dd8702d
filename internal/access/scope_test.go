package access

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/punchamoorthee/backoffice/internal/domain"
)

func TestFor(t *testing.T) {
	staff := For(domain.Identity{ID: "admin", Privileged: true})
	assert.True(t, staff.All())
	assert.True(t, staff.Permits("anyone"))

	owner := For(domain.Identity{ID: "u-1"})
	assert.False(t, owner.All())
	assert.Equal(t, "u-1", owner.IdentityID())
	assert.True(t, owner.Permits("u-1"))
	assert.False(t, owner.Permits("u-2"))
}

func TestZeroScopeMatchesNothing(t *testing.T) {
	var s Scope
	assert.False(t, s.Permits(""))
	assert.False(t, s.Permits("u-1"))

	anonymous := For(domain.Identity{})
	assert.False(t, anonymous.Permits(""))
}

func TestAuthorize(t *testing.T) {
	assert.NoError(t, Authorize(domain.Identity{ID: "u-1"}, "u-1"))
	assert.NoError(t, Authorize(domain.Identity{ID: "staff", Privileged: true}, "u-1"))

	err := Authorize(domain.Identity{ID: "u-2"}, "u-1")
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	assert.True(t, errors.Is(RequirePrivileged(domain.Identity{ID: "u-1"}, "no"), domain.ErrForbidden))
	assert.NoError(t, RequirePrivileged(domain.Identity{Privileged: true}, "no"))
}
