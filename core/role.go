package core

import "strings"

// Roles scope what a dashboard user sees. They are a display switch, not an authentication mechanism.
const (
	RoleAdmin          = "ADMIN"
	RoleClassTeacher   = "CLASS_TEACHER"
	RoleSubjectTeacher = "SUBJECT_TEACHER"
	RoleBursar         = "BURSAR"
	RoleParent         = "PARENT"
	RoleNone           = "NONE"
)

var Roles = []string{RoleAdmin, RoleClassTeacher, RoleSubjectTeacher, RoleBursar, RoleParent, RoleNone}

// ParseRole returns the known role matching s (case-insensitive), RoleNone otherwise.
func ParseRole(s string) string {
	s = strings.ToUpper(strings.ReplaceAll(CleanString(s), " ", "_"))
	for _, r := range Roles {
		if r == s {
			return r
		}
	}
	return RoleNone
}
