package auth

import "strings"

// Permission names granted by the identity provider.
const (
	PermissionDump   = "dump"
	PermissionView   = "view"
	PermissionDelete = "delete"
)

// HasPermission reports whether perms contains want.
func HasPermission(perms []string, want string) bool {
	for _, p := range perms {
		if p == want {
			return true
		}
	}
	return false
}

// ParsePermissions splits a space or comma separated list and drops duplicates.
func ParsePermissions(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n'
	})
	return Normalize(fields)
}

// Normalize lower-cases, trims and de-duplicates permissions keeping order.
func Normalize(perms []string) []string {
	out := make([]string, 0, len(perms))
	seen := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
