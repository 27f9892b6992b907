package handler

import (
	"go-school-library/internal/middleware"
	"go-school-library/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type NotificationHandler struct {
	service service.NotificationService
}

func NewNotificationHandler(s service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: s}
}

// GetNotifications GET /api/v1/notifications?unread=true&limit=&offset=
func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}
	limit, offset := pagination(c)

	items, total, err := h.service.List(userID, c.QueryBool("unread", false), limit, offset)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch notifications"})
	}
	return c.JSON(fiber.Map{"data": items, "total": total, "limit": limit, "offset": offset})
}

// UnreadCount GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	count, err := h.service.UnreadCount(userID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to count notifications"})
	}
	return c.JSON(fiber.Map{"unread": count})
}

// MarkRead PUT /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c, "notification")
	}

	if err := h.service.MarkRead(id, userID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Notification marked as read"})
}

// MarkAllRead PUT /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	updated, err := h.service.MarkAllRead(userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Notifications marked as read", "updated": updated})
}

// Send POST /api/v1/notifications
func (h *NotificationHandler) Send(c *fiber.Ctx) error {
	var req service.SendNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	sent, err := h.service.Send(&req, middleware.ActorID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Notification sent", "recipients": sent})
}
