package enums

// MemberRole is the public view of a membership link's is_owner flag.
type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleTenant MemberRole = "tenant"
)

// RoleFromOwnerFlag maps the stored is_owner flag to its role.
func RoleFromOwnerFlag(isOwner bool) MemberRole {
	if isOwner {
		return MemberRoleOwner
	}
	return MemberRoleTenant
}
