package auth

// Role is one of the closed set of blog roles
type Role string

const (
	// RoleAdmin manages users and every post
	RoleAdmin Role = "Admin"
	// RoleEditor writes and publishes their own drafts
	RoleEditor Role = "Editor"
	// RoleReader is the default role given at registration
	RoleReader Role = "Reader"
)

// DefaultRole is assigned to every new account
const DefaultRole = RoleReader

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleReader:
		return true
	default:
		return false
	}
}

// CanPublish reports roles allowed to work on drafts
func (r Role) CanPublish() bool {
	return r == RoleAdmin || r == RoleEditor
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{RoleAdmin, RoleEditor, RoleReader}
}

// ParseRole safely parses a string into a Role
func ParseRole(s string) (Role, bool) {
	for _, r := range GetAllRoles() {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// ParseRoles keeps the valid roles of the list, dropping duplicates
func ParseRoles(values []string) []Role {
	out := make([]Role, 0, len(values))
	seen := map[Role]bool{}
	for _, v := range values {
		r, ok := ParseRole(v)
		if !ok || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// RoleStrings is the wire form of roles
func RoleStrings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
