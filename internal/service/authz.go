package service

import "github.com/tasklist/tasklist-go/internal/model"

// RequireAdmin is the role check: only admins pass.
func RequireAdmin(id model.Identity) error {
	if id.User.ID == "" {
		return ErrUnauthenticated
	}
	if !id.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// CheckOwnership is the ownership check for an already loaded resource: the
// creator and any admin pass. Callers report a missing resource as
// ErrNotFound before calling it.
func CheckOwnership(id model.Identity, ownerID string) error {
	if id.User.ID == "" {
		return ErrUnauthenticated
	}
	if id.IsAdmin() || (ownerID != "" && ownerID == id.User.ID) {
		return nil
	}
	return ErrForbidden
}
