package handler

import (
	"go-school-library/internal/middleware"
	"go-school-library/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type WSHandler struct {
	hub *ws.Hub
}

func NewWSHandler(hub *ws.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Upgrade rejects plain HTTP requests on the websocket route and hands the caller's
// ID over to the connection handler.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.SendStatus(fiber.StatusUpgradeRequired)
	}
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}
	c.Locals("ws_user_id", userID)
	return c.Next()
}

// Serve registers the connection with the hub. The hub does all writes, this
// goroutine only reads until the client goes away.
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("ws_user_id").(uuid.UUID)
		client := &ws.Client{UserID: userID, Conn: conn}

		h.hub.Register(client)
		defer h.hub.Unregister(client)

		for {
			// Keep alive loop
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	})
}
