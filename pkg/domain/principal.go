package domain

import "strings"

// AuthorityPrefix is the canonical prefix for role authorities.
const AuthorityPrefix = "ROLE_"

// Well-known authorities used by the delivery workflow.
const (
	AuthorityAdmin   = "ROLE_ADMIN"
	AuthorityCourier = "ROLE_REPARTIDOR"
	AuthorityUser    = "ROLE_USER"
)

// Principal is the authenticated caller's identity for one request. It is
// derived from the bearer credential, never persisted, and discarded when the
// request completes.
type Principal struct {
	Subject     string
	Authorities []string
}

// HasAuthority reports whether the principal holds the given authority.
func (p Principal) HasAuthority(authority string) bool {
	for _, a := range p.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}

// HasAnyAuthority reports whether the principal holds at least one of the
// given authorities.
func (p Principal) HasAnyAuthority(authorities ...string) bool {
	for _, a := range authorities {
		if p.HasAuthority(a) {
			return true
		}
	}
	return false
}

// NormalizeAuthority prefixes a role claim with ROLE_ unless already prefixed.
func NormalizeAuthority(role string) string {
	if strings.HasPrefix(role, AuthorityPrefix) {
		return role
	}
	return AuthorityPrefix + role
}
