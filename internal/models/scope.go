package models

import "fmt"

// RoleScopeKey is the single shared slot used in role-based mode
const RoleScopeKey = "role"

// Scope is the identity boundary a "current session" lookup runs within
type Scope struct {
	EmployeeID uint // zero in role mode
}

// EmployeeScope returns the scope of one employee
func EmployeeScope(employeeID uint) Scope {
	return Scope{EmployeeID: employeeID}
}

// RoleScope returns the global role-based scope
func RoleScope() Scope {
	return Scope{}
}

// IsRole reports whether this is the shared role-based scope
func (s Scope) IsRole() bool {
	return s.EmployeeID == 0
}

// Key is the indexed value stored on every session of the scope
func (s Scope) Key() string {
	if s.IsRole() {
		return RoleScopeKey
	}
	return fmt.Sprintf("employee:%d", s.EmployeeID)
}

func (s Scope) String() string {
	return s.Key()
}
