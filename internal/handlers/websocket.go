package handlers

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tictactoe-client/internal/models"
	"tictactoe-client/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler streams board updates of one game to its watchers.
type WebSocketHandler struct {
	gameEngine *services.GameEngine
	hub        *WebSocketHub
}

type WebSocketHub struct {
	clients    map[int]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

type Client struct {
	UserID    int
	SessionID int
	Conn      *websocket.Conn

	// gorilla connections allow one concurrent writer.
	writeMu sync.Mutex
}

func (c *Client) send(msg *Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteJSON(msg)
}

type Message struct {
	Type      string      `json:"type"`
	SessionID int         `json:"session_id,omitempty"`
	Data      interface{} `json:"data"`
}

func NewWebSocketHandler(gameEngine *services.GameEngine) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[int]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
	}

	go hub.run()

	return &WebSocketHandler{
		gameEngine: gameEngine,
		hub:        hub,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetInt("user_id")

	gameID, err := strconv.Atoi(c.Query("sessionId"))
	if err != nil || gameID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	session, err := h.gameEngine.GameState(c.Request.Context(), userID, gameID)
	if err != nil {
		engineError(c, "Failed to watch game", err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	client := &Client{
		UserID:    userID,
		SessionID: gameID,
		Conn:      conn,
	}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	client.send(&Message{Type: "BOARD_STATE", SessionID: gameID, Data: sessionPayload(session)})

	for {
		var msg Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case "PING":
		client.send(&Message{
			Type: "PONG",
			Data: gin.H{
				"timestamp": time.Now().Unix(),
			},
		})
	}
}

// BroadcastBoard implements services.Broadcaster.
func (h *WebSocketHandler) BroadcastBoard(session *models.GameSession) {
	h.hub.broadcast <- &Message{
		Type:      "BOARD_UPDATE",
		SessionID: session.ID,
		Data:      sessionPayload(session),
	}
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			watchers, ok := hub.clients[client.SessionID]
			if !ok {
				watchers = make(map[*Client]bool)
				hub.clients[client.SessionID] = watchers
			}
			watchers[client] = true
			log.Printf("Client %d watching game %d", client.UserID, client.SessionID)

		case client := <-hub.unregister:
			if watchers, ok := hub.clients[client.SessionID]; ok {
				delete(watchers, client)
				if len(watchers) == 0 {
					delete(hub.clients, client.SessionID)
				}
			}

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)
		}
	}
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	for client := range hub.clients[message.SessionID] {
		if err := client.send(message); err != nil {
			log.Printf("Failed to send to client %d: %v", client.UserID, err)
		}
	}
}
