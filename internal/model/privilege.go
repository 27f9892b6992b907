package model

// Privilege represents a permission that can be assigned to users
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "book:create"
	Name string `gorm:"type:varchar(100)" json:"name"`                     // e.g., "Create Book"
}

// Privilege codes checked by the HTTP layer.
const (
	PrivUserView            = "user:view"
	PrivUserCreate          = "user:create"
	PrivUserUpdate          = "user:update"
	PrivUserDelete          = "user:delete"
	PrivUserUpdatePrivilege = "user:update_privilege"

	PrivBookCreate = "book:create"
	PrivBookUpdate = "book:update"
	PrivBookDelete = "book:delete"

	PrivCategoryCreate = "category:create"
	PrivCategoryUpdate = "category:update"
	PrivCategoryDelete = "category:delete"

	PrivBorrowingRequest = "borrowing:request"
	PrivBorrowingViewAll = "borrowing:view_all"
	PrivBorrowingApprove = "borrowing:approve"
	PrivBorrowingExtend  = "borrowing:extend"
	PrivBorrowingReturn  = "borrowing:return"

	PrivReportView       = "report:view"
	PrivNotificationSend = "notification:send"
	PrivSweepRun         = "sweep:run"
)

// Default privileges for the system
var DefaultPrivileges = []Privilege{
	// User management
	{Code: PrivUserView, Name: "View User"},
	{Code: PrivUserCreate, Name: "Create User"},
	{Code: PrivUserUpdate, Name: "Update User"},
	{Code: PrivUserDelete, Name: "Delete User"},
	{Code: PrivUserUpdatePrivilege, Name: "Update User Privileges"},
	// Catalog
	{Code: PrivBookCreate, Name: "Create Book"},
	{Code: PrivBookUpdate, Name: "Update Book"},
	{Code: PrivBookDelete, Name: "Delete Book"},
	{Code: PrivCategoryCreate, Name: "Create Category"},
	{Code: PrivCategoryUpdate, Name: "Update Category"},
	{Code: PrivCategoryDelete, Name: "Delete Category"},
	// Borrowing workflow
	{Code: PrivBorrowingRequest, Name: "Request Borrowing"},
	{Code: PrivBorrowingViewAll, Name: "View All Borrowings"},
	{Code: PrivBorrowingApprove, Name: "Approve or Reject Borrowing"},
	{Code: PrivBorrowingExtend, Name: "Extend Borrowing"},
	{Code: PrivBorrowingReturn, Name: "Record Return"},
	// Reporting & operations
	{Code: PrivReportView, Name: "View Reports"},
	{Code: PrivNotificationSend, Name: "Send Notification"},
	{Code: PrivSweepRun, Name: "Run Due-Date Sweep"},
}
