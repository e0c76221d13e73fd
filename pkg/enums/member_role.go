package enums

import "fmt"

// MemberRole is the role a user holds inside a company.
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleEditor MemberRole = "editor"
	MemberRoleViewer MemberRole = "viewer"
)

var validMemberRoles = []MemberRole{
	MemberRoleAdmin,
	MemberRoleEditor,
	MemberRoleViewer,
}

// IsValid reports whether the role is known.
func (m MemberRole) IsValid() bool {
	for _, candidate := range validMemberRoles {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	role := MemberRole(value)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid member role %q", value)
	}
	return role, nil
}
