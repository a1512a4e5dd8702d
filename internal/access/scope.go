// Package access decides which records an identity may see or touch.
//
// A privileged identity sees everything; anyone else sees only records whose
// owning client is linked to their identity. Storage applies a Scope to every
// list and detail query, and services use Authorize before mutating.
package access

import "github.com/punchamoorthee/backoffice/internal/domain"

// Scope is a read filter over owned records. The zero value matches nothing.
type Scope struct {
	all        bool
	identityID string
}

// Unrestricted matches every record. Internal code uses it for lookups that
// are authorized by other means.
var Unrestricted = Scope{all: true}

// For returns the scope visible to id.
func For(id domain.Identity) Scope {
	if id.Privileged {
		return Unrestricted
	}
	return Scope{identityID: id.ID}
}

func (s Scope) All() bool { return s.all }

func (s Scope) IdentityID() string { return s.identityID }

// Permits reports whether a record owned by ownerIdentityID is in scope.
func (s Scope) Permits(ownerIdentityID string) bool {
	if s.all {
		return true
	}
	return s.identityID != "" && s.identityID == ownerIdentityID
}

// Authorize fails with Forbidden unless id may mutate a record owned by ownerIdentityID.
func Authorize(id domain.Identity, ownerIdentityID string) error {
	if For(id).Permits(ownerIdentityID) {
		return nil
	}
	return domain.Forbidden("Você não tem permissão para acessar este recurso.")
}

// RequirePrivileged fails with Forbidden for non-privileged identities.
func RequirePrivileged(id domain.Identity, message string) error {
	if id.Privileged {
		return nil
	}
	return domain.Forbidden(message)
}
