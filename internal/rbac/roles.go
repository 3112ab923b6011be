package rbac

// Role names. Keep these stable; they are part of auth contracts.
const (
	RoleAdmin = "admin"
	RoleAgent = "agent"
)

func IsAdmin(role string) bool { return role == RoleAdmin }

func IsKnownRole(role string) bool {
	switch role {
	case RoleAdmin, RoleAgent:
		return true
	default:
		return false
	}
}
