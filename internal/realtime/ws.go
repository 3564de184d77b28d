package realtime

import (
	"log"
	"net/http"

	"github.com/edushare/edushare-backend/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Auth is token-based, not cookie-based, so cross-origin upgrades
		// carry no ambient credentials.
		return true
	},
}

// WSHandler upgrades HTTP requests into hub-attached websocket clients.
type WSHandler struct {
	hub *Hub
}

func NewWSHandler(hub *Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// ServeMaterialRoom attaches the connection to a material's room. Public:
// anyone viewing a material can watch its comments and ratings move.
func (h *WSHandler) ServeMaterialRoom(c *gin.Context) {
	materialID, err := uuid.Parse(c.Param("material_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid material id"})
		return
	}

	h.serve(c, MaterialRoom(materialID))
}

// ServeUserRoom attaches the connection to the caller's personal
// notification room. Requires auth; a user can only join their own room.
func (h *WSHandler) ServeUserRoom(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	h.serve(c, UserRoom(userID))
}

func (h *WSHandler) serve(c *gin.Context, room string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("realtime: websocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn)
	h.hub.Join(room, client)

	go client.WritePump()
	go client.ReadPump(h.hub)
}
