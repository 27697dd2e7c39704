package rbac

const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	RoleStudent: {
		"quiz:view",
		"quiz:submit",
	},
	RoleTeacher: {
		"question:create",
		"question:list_own",
		"question:delete_own",
		"question:audit",
	},
}

// ValidRole reports whether role is one a user can register with.
func ValidRole(role string) bool {
	return role == RoleTeacher || role == RoleStudent
}
