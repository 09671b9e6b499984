package nav

import "tutorportal/internal/model"

// View names a screen of the portal.
type View string

const (
	ViewLogin                   View = "login"
	ViewTeacherDashboard        View = "teacher-dashboard"
	ViewStudentDashboard        View = "student-dashboard"
	ViewParentDashboard         View = "parent-dashboard"
	ViewAdminDashboard          View = "admin-dashboard"
	ViewSuperAdminDashboard     View = "superadmin-dashboard"
	ViewSupportTeacherDashboard View = "support-teacher-dashboard"
	ViewHomeworks               View = "homeworks"
	ViewHomeworkDetail          View = "homework-detail"
	ViewBooking                 View = "booking"
	ViewRanking                 View = "ranking"
	ViewGroups                  View = "groups"
	ViewSchedule                View = "schedule"
)

var homes = map[model.Role]View{
	model.RoleTeacher:        ViewTeacherDashboard,
	model.RoleStudent:        ViewStudentDashboard,
	model.RoleParent:         ViewParentDashboard,
	model.RoleAdmin:          ViewAdminDashboard,
	model.RoleSuperAdmin:     ViewSuperAdminDashboard,
	model.RoleSupportTeacher: ViewSupportTeacherDashboard,
}

var (
	staff    = []model.Role{model.RoleTeacher, model.RoleSupportTeacher, model.RoleAdmin, model.RoleSuperAdmin}
	learners = []model.Role{model.RoleStudent, model.RoleParent}
)

// access lists the roles allowed to open each non-dashboard view.
var access = map[View][]model.Role{
	ViewHomeworks:      append(append([]model.Role{}, learners...), model.RoleTeacher, model.RoleSupportTeacher),
	ViewHomeworkDetail: append(append([]model.Role{}, learners...), model.RoleTeacher, model.RoleSupportTeacher),
	ViewBooking:        learners,
	ViewRanking:        append(append([]model.Role{}, learners...), staff...),
	ViewGroups:         staff,
	ViewSchedule:       {model.RoleTeacher, model.RoleSupportTeacher},
}

// HomeFor returns the dashboard of a role; unknown roles land on login.
func HomeFor(role model.Role) View {
	if v, ok := homes[role]; ok {
		return v
	}
	return ViewLogin
}

// Known reports whether v is a view of the portal.
func Known(v View) bool {
	if v == ViewLogin {
		return true
	}
	if _, ok := access[v]; ok {
		return true
	}
	for _, home := range homes {
		if home == v {
			return true
		}
	}
	return false
}

// Allowed reports whether role may open v. Every role may open its own
// dashboard and the login screen.
func Allowed(role model.Role, v View) bool {
	if v == ViewLogin || HomeFor(role) == v {
		return true
	}
	for _, r := range access[v] {
		if r == role {
			return true
		}
	}
	return false
}
