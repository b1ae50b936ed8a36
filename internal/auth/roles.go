package auth

// Role represents a clinical user role.
type Role string

const (
	RoleNurse  Role = "nurse"
	RoleDoctor Role = "doctor"
	RoleAdmin  Role = "admin"
)

// NormalizeRole validates and normalizes a role string.
func NormalizeRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleNurse, RoleDoctor, RoleAdmin:
		return Role(value), true
	default:
		return "", false
	}
}

// RoleAtLeast returns true when role satisfies required role.
func RoleAtLeast(role Role, required Role) bool {
	return roleRank(role) >= roleRank(required)
}

func roleRank(role Role) int {
	switch role {
	case RoleNurse:
		return 1
	case RoleDoctor:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}
