package model

// Role represents user roles in the system
type Role struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Code        string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name        string      `gorm:"type:varchar(100)" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Privileges  []Privilege `gorm:"many2many:role_privileges;" json:"privileges,omitempty"`
}

// Role codes as constants
const (
	RoleAdmin     = "ADMIN"
	RoleLibrarian = "LIBRARIAN"
	RoleTeacher   = "TEACHER"
	RoleStudent   = "STUDENT"
)

// DefaultRoles defines the default roles in the system
var DefaultRoles = []Role{
	{Code: RoleAdmin, Name: "Administrator", Description: "Full system access with all privileges"},
	{Code: RoleLibrarian, Name: "Pustakawan", Description: "Manages catalog and the borrowing desk"},
	{Code: RoleTeacher, Name: "Guru", Description: "Browses the catalog and borrows books"},
	{Code: RoleStudent, Name: "Siswa", Description: "Browses the catalog and borrows books"},
}

var borrowerPrivileges = []string{PrivBorrowingRequest}

// DefaultRolePrivileges maps a role code to the privilege codes seeded for it.
// A nil entry means every privilege.
var DefaultRolePrivileges = map[string][]string{
	RoleAdmin: nil,
	RoleLibrarian: {
		PrivUserView,
		PrivBookCreate, PrivBookUpdate, PrivBookDelete,
		PrivCategoryCreate, PrivCategoryUpdate, PrivCategoryDelete,
		PrivBorrowingRequest, PrivBorrowingViewAll, PrivBorrowingApprove,
		PrivBorrowingExtend, PrivBorrowingReturn,
		PrivReportView, PrivNotificationSend, PrivSweepRun,
	},
	RoleTeacher: borrowerPrivileges,
	RoleStudent: borrowerPrivileges,
}

// IsStaff reports whether the role works the circulation desk.
func IsStaff(roleCode string) bool {
	return roleCode == RoleAdmin || roleCode == RoleLibrarian
}
