package auth

import "testing"

func TestRolePermissionsSubset(t *testing.T) {
	allowed := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		allowed[perm] = struct{}{}
	}

	for role, perms := range RolePermissions {
		if len(perms) == 0 {
			t.Fatalf("role %s has no permissions", role)
		}
		for _, perm := range perms {
			if _, ok := allowed[perm]; !ok {
				t.Fatalf("role %s has unknown permission %s", role, perm)
			}
		}
	}
}

func TestEmployeeCannotApproveOrAdminister(t *testing.T) {
	for _, perm := range RolePermissions[RoleEmployee] {
		if perm == PermLeaveApprove || perm == PermLeaveAdmin {
			t.Fatalf("employee role must not hold %s", perm)
		}
	}
}

func TestPrivilegedRole(t *testing.T) {
	if !PrivilegedRole(RoleHR) || !PrivilegedRole(RoleAdmin) {
		t.Fatal("hr and admin are privileged")
	}
	if PrivilegedRole(RoleManager) || PrivilegedRole(RoleEmployee) {
		t.Fatal("manager and employee are not privileged")
	}
}
