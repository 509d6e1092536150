package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs registers the connection and blocks until it closes.
func ServeWs(hub *Hub, conn *websocket.Conn, ownerId uuid.UUID) {
	client := &Client{Hub: hub, Conn: conn, OwnerId: ownerId, Send: make(chan []byte, 64)}
	hub.register <- client

	go client.writePump()
	client.readPump()
}
