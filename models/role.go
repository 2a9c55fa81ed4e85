package models

import "fmt"

// Role is the closed set of principals the tuckshop knows about.
type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
	RoleRunner  Role = "runner"
	RoleAdmin   Role = "admin"
)

// AuthProvider records where a user's identity was established.
type AuthProvider string

const (
	ProviderLocal     AuthProvider = "local"
	ProviderMicrosoft AuthProvider = "microsoft"
)

// ParseRole converts a raw string into a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleStudent, RoleStaff, RoleRunner, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// RoleSet is the set of roles a capability is granted to.
type RoleSet map[Role]struct{}

func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Allows reports whether the caller's role is in the set.
func (s RoleSet) Allows(caller Role) bool {
	_, ok := s[caller]
	return ok
}

// Capabilities used by the REST layer. Kept here so the policy lives in one place.
var (
	CanPlaceOrders   = NewRoleSet(RoleStudent, RoleAdmin)
	CanManageOrders  = NewRoleSet(RoleStaff, RoleAdmin)
	CanViewAllOrders = NewRoleSet(RoleStaff, RoleAdmin)
	CanManageMenu    = NewRoleSet(RoleStaff)
	CanManageCatalog = NewRoleSet(RoleAdmin)
	CanDeliver       = NewRoleSet(RoleRunner)
	CanAdminister    = NewRoleSet(RoleAdmin)
)
