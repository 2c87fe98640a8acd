package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vongdev/E-learning--sub001/internal/database"
	"github.com/vongdev/E-learning--sub001/internal/middleware"
	ws "github.com/vongdev/E-learning--sub001/internal/websocket"
)

// WebSocketHandler поднимает соединение до websocket и запускает pumps
type WebSocketHandler struct {
	db       *database.Database
	hub      *ws.Hub
	bridge   *GatewayBridge
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(db *database.Database, hub *ws.Hub, bridge *GatewayBridge) *WebSocketHandler {
	return &WebSocketHandler{
		db:     db,
		hub:    hub,
		bridge: bridge,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// TODO: проверять origin в prod
				return true
			},
		},
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.db.GetUser(userID.(uuid.UUID).String())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := ws.NewClient(h.hub, conn, user.ID, user.Username)

	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.bridge)
}
