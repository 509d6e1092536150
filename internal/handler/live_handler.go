package handler

import (
	"strings"

	"notes-rag-be/internal/pkg/logger"
	"notes-rag-be/internal/pkg/serverutils"
	internalWS "notes-rag-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const liveOwnerLocal = "live_owner_id"

// LiveHandler upgrades authenticated clients to a websocket that streams
// NOTE_INDEXED and CHAT_TITLED events for the caller.
type LiveHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewLiveHandler(hub *internalWS.Hub, log logger.ILogger) *LiveHandler {
	return &LiveHandler{hub: hub, logger: log}
}

func (h *LiveHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/live/v1/ws", h.Authorize, h.ServeWs)
}

// Authorize accepts the token as a query parameter (browsers cannot set
// headers on a websocket handshake) or as a bearer header.
func (h *LiveHandler) Authorize(c *fiber.Ctx) error {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		tokenStr = strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
	}

	ownerId, err := serverutils.ParseOwnerToken(tokenStr)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, err.Error()))
	}
	c.Locals(liveOwnerLocal, ownerId)
	return c.Next()
}

func (h *LiveHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	ownerId := c.Locals(liveOwnerLocal).(uuid.UUID)

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("LiveHandler", "Starting WebSocket session", map[string]interface{}{"owner_id": ownerId})
		internalWS.ServeWs(h.hub, conn, ownerId)
		h.logger.Info("LiveHandler", "WebSocket session ended", map[string]interface{}{"owner_id": ownerId})
	})(c)
}
