package auth

import (
	"strings"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleStaff Role = "STAFF"
	RoleUser  Role = "USER"
)

// ParseRole normalizes a role claim or header. Unknown values fall back to USER.
func ParseRole(s string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleStaff:
		return RoleStaff
	default:
		return RoleUser
	}
}

// Principal is the authenticated caller.
type Principal struct {
	ID   uuid.UUID
	Role Role
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// SystemPrincipal acts on behalf of trusted internal callers such as the
// Stripe webhook. It has admin scope.
var SystemPrincipal = Principal{ID: uuid.Nil, Role: RoleAdmin}
