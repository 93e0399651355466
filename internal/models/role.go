package models

import pkgerrors "github.com/vendmach/vending-service/pkg/errors"

// Role is the closed set of capabilities a token can carry.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleUser    Role = "user"
	RoleMachine Role = "machine"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleUser, RoleMachine:
		return Role(s), nil
	}
	return "", pkgerrors.ErrInvalidRole
}

// HasAny reports whether r is one of the allowed roles.
func (r Role) HasAny(allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}
