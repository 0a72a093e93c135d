package docsystem

import "sort"

// Principal is the request-time view of an authenticated user.
// It is supplied by the identity collaborator and never persisted here.
type Principal struct {
	ID           string   `json:"id"`
	DepartmentID string   `json:"department_id"`
	Roles        []string `json:"roles"`
}

// HasRole reports whether the principal holds role
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// SortedRoles returns a sorted copy of the role set
func (p *Principal) SortedRoles() []string {
	roles := append([]string(nil), p.Roles...)
	sort.Strings(roles)
	return roles
}
