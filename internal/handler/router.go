package handler

import (
	"go-school-library/internal/middleware"
	"go-school-library/internal/model"

	"github.com/gofiber/fiber/v2"
)

// Handlers groups every HTTP handler mounted by SetupRoutes.
type Handlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Role         *RoleHandler
	Category     *CategoryHandler
	Book         *BookHandler
	Borrowing    *BorrowingHandler
	Notification *NotificationHandler
	Report       *ReportHandler
	WS           *WSHandler
}

// SetupRoutes mounts the REST API under /api/v1 and the websocket endpoint at /ws.
// requireAuth guards everything except login and token validation.
func SetupRoutes(app *fiber.App, h Handlers, requireAuth fiber.Handler) {
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", h.Auth.Login)
	auth.Post("/validate-token", h.Auth.ValidateToken)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", requireAuth)

	protected.Post("/auth/logout", h.Auth.Logout)
	protected.Get("/auth/me", h.Auth.Me)
	protected.Post("/auth/change-password", h.Auth.ChangePassword)

	// Katalog
	protected.Get("/categories", h.Category.GetCategories)
	protected.Get("/categories/:id", h.Category.GetCategory)
	protected.Post("/categories", middleware.RequirePrivilege(model.PrivCategoryCreate), h.Category.CreateCategory)
	protected.Put("/categories/:id", middleware.RequirePrivilege(model.PrivCategoryUpdate), h.Category.UpdateCategory)
	protected.Delete("/categories/:id", middleware.RequirePrivilege(model.PrivCategoryDelete), h.Category.DeleteCategory)

	protected.Get("/books", h.Book.GetBooks)
	protected.Get("/books/:id", h.Book.GetBook)
	protected.Post("/books", middleware.RequirePrivilege(model.PrivBookCreate), h.Book.CreateBook)
	protected.Put("/books/:id", middleware.RequirePrivilege(model.PrivBookUpdate), h.Book.UpdateBook)
	protected.Delete("/books/:id", middleware.RequirePrivilege(model.PrivBookDelete), h.Book.DeleteBook)

	// Peminjaman
	protected.Get("/borrowings", h.Borrowing.GetBorrowings)
	protected.Post("/borrowings", middleware.RequirePrivilege(model.PrivBorrowingRequest), h.Borrowing.Submit)
	protected.Post("/borrowings/sweep", middleware.RequirePrivilege(model.PrivSweepRun), h.Borrowing.Sweep)
	protected.Get("/borrowings/:id", h.Borrowing.GetBorrowing)
	protected.Post("/borrowings/:id/approve", middleware.RequirePrivilege(model.PrivBorrowingApprove), h.Borrowing.Approve)
	protected.Post("/borrowings/:id/reject", middleware.RequirePrivilege(model.PrivBorrowingApprove), h.Borrowing.Reject)
	protected.Post("/borrowings/:id/extend", middleware.RequirePrivilege(model.PrivBorrowingExtend), h.Borrowing.Extend)
	protected.Post("/borrowings/:id/return", middleware.RequirePrivilege(model.PrivBorrowingReturn), h.Borrowing.Return)

	// Notifikasi
	protected.Get("/notifications", h.Notification.GetNotifications)
	protected.Get("/notifications/unread-count", h.Notification.UnreadCount)
	protected.Put("/notifications/read-all", h.Notification.MarkAllRead)
	protected.Put("/notifications/:id/read", h.Notification.MarkRead)
	protected.Post("/notifications", middleware.RequirePrivilege(model.PrivNotificationSend), h.Notification.Send)

	// Laporan
	reports := protected.Group("/reports", middleware.RequirePrivilege(model.PrivReportView))
	reports.Get("/stats", h.Report.GetDashboardStats)
	reports.Get("/loan-movement", h.Report.GetLoanMovement)
	reports.Get("/borrowings/export", h.Report.ExportBorrowings)

	// User Management Routes (with privilege checks)
	protected.Get("/users", middleware.RequirePrivilege(model.PrivUserView), h.User.GetUsers)
	protected.Get("/users/:id", middleware.RequirePrivilege(model.PrivUserView), h.User.GetUser)
	protected.Post("/users", middleware.RequirePrivilege(model.PrivUserCreate), h.User.CreateUser)
	protected.Put("/users/:id", middleware.RequirePrivilege(model.PrivUserUpdate), h.User.UpdateUser)
	protected.Delete("/users/:id", middleware.RequirePrivilege(model.PrivUserDelete), h.User.DeleteUser)
	protected.Put("/users/:id/privileges", middleware.RequirePrivilege(model.PrivUserUpdatePrivilege), h.User.UpdateUserPrivileges)

	protected.Get("/roles", h.Role.GetRoles)
	protected.Get("/privileges", h.Role.GetPrivileges)

	// WebSocket Route, token via ?token=
	app.Get("/ws", requireAuth, h.WS.Upgrade, h.WS.Serve())
}
