package auth

const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleHR       = "hr"
	RoleAdmin    = "admin"
)

const (
	PermOrgRead      = "org.read"
	PermOrgWrite     = "org.write"
	PermLeaveRead    = "leave.read"
	PermLeaveWrite   = "leave.write"
	PermLeaveApprove = "leave.approve"
	PermLeaveAdmin   = "leave.admin"
	PermReportsRead  = "reports.read"
)

var DefaultRoles = []string{RoleEmployee, RoleManager, RoleHR, RoleAdmin}

var DefaultPermissions = []string{
	PermOrgRead,
	PermOrgWrite,
	PermLeaveRead,
	PermLeaveWrite,
	PermLeaveApprove,
	PermLeaveAdmin,
	PermReportsRead,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermOrgRead,
		PermLeaveRead,
		PermLeaveWrite,
	},
	RoleManager: {
		PermOrgRead,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermReportsRead,
	},
	RoleHR: {
		PermOrgRead,
		PermOrgWrite,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermLeaveAdmin,
		PermReportsRead,
	},
	RoleAdmin: {
		PermOrgRead,
		PermOrgWrite,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermLeaveAdmin,
		PermReportsRead,
	},
}

// PrivilegedRole reports whether the role carries the organization-wide
// override used for approvals and deletions.
func PrivilegedRole(role string) bool {
	return role == RoleHR || role == RoleAdmin
}
