package domain

import "fmt"

// Role is the closed set of actor roles. Role determines which lifecycle
// operations a caller may invoke, so it is validated at parse time rather
// than compared as a loose string at each call site.
type Role string

const (
	// RoleIssuer may mint, revoke, and supersede claims.
	RoleIssuer Role = "issuer"
	// RoleHolder owns claims: visibility toggles and share tokens.
	RoleHolder Role = "holder"
	// RoleVerifier consumes tokens and registry lookups.
	RoleVerifier Role = "verifier"
)

var validRoles = map[Role]struct{}{
	RoleIssuer:   {},
	RoleHolder:   {},
	RoleVerifier: {},
}

// ParseRole validates and returns a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := validRoles[r]; !ok {
		return "", fmt.Errorf("unknown role: %s", s)
	}
	return r, nil
}

func (r Role) String() string { return string(r) }

// IsNil returns true if the role is empty.
func (r Role) IsNil() bool { return r == "" }

// Roles returns all valid roles in a stable order.
func Roles() []Role {
	return []Role{RoleIssuer, RoleHolder, RoleVerifier}
}
