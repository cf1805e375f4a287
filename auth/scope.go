package auth

import (
	"github.com/google/uuid"

	apperrors "github.com/nathangtg/coffee-single-tenant-sub000/common/errors"
)

// CanAccess reports whether p may act on a resource owned by ownerID.
func CanAccess(p Principal, ownerID uuid.UUID) bool {
	return p.Role == RoleAdmin || p.ID == ownerID
}

// Authorize returns notFound when p is outside the owner's scope, so callers
// cannot tell a missing resource from someone else's.
func Authorize(p Principal, ownerID uuid.UUID, notFound error) error {
	if CanAccess(p, ownerID) {
		return nil
	}
	if notFound == nil {
		return apperrors.NotFoundOrForbidden("Resource not found")
	}
	return notFound
}

// RequireRole rejects principals whose role is not listed.
func RequireRole(p Principal, roles ...Role) error {
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	return apperrors.ErrForbidden
}
