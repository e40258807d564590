// Package websocket provides real-time chat rooms over WebSockets. It
// implements a hub-and-spoke pattern where clients join rooms and receive
// events broadcast to those rooms.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/platform/auth"
)

// Event represents a real-time message sent to WebSocket clients.
type Event struct {
	Type      string          `json:"type"`
	Room      string          `json:"room"`
	SenderID  string          `json:"senderId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ClientMessage represents an inbound message from a WebSocket client.
type ClientMessage struct {
	Action  string `json:"action"`
	Room    string `json:"room"`
	Content string `json:"content,omitempty"`
}

// EventPublisher defines the interface for publishing events to room members.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// MessageSink receives inbound chat messages for persistence before they are
// broadcast to the room. Implementations must be safe for concurrent use.
type MessageSink interface {
	HandleChatMessage(ctx context.Context, room, senderID, content string) (json.RawMessage, error)
}

// Conn is the subset of a WebSocket connection the read and write pumps use.
// *gorilla/websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a single WebSocket connection.
type Client struct {
	ID     string
	UserID string
	Rooms  []string
	Send   chan []byte
	conn   Conn
}

// Hub is the central connection manager that tracks clients and their room
// memberships. All operations are thread-safe via sync.RWMutex.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // room -> set of clients
	all     map[*Client]struct{}            // all connected clients
	logger  zerolog.Logger
}

// NewHub creates a new Hub ready to manage WebSocket clients.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub and joins it to its initial rooms.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.all[client] = struct{}{}

	for _, room := range client.Rooms {
		if h.clients[room] == nil {
			h.clients[room] = make(map[*Client]struct{})
		}
		h.clients[room][client] = struct{}{}
	}
}

// Unregister removes a client from the hub, all room memberships, and closes
// the client's Send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}

	for _, room := range client.Rooms {
		if members, ok := h.clients[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.clients, room)
			}
		}
	}

	delete(h.all, client)
	close(client.Send)
}

// Join adds the client to a room.
func (h *Hub) Join(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[room] == nil {
		h.clients[room] = make(map[*Client]struct{})
	}
	if _, already := h.clients[room][client]; already {
		return
	}
	h.clients[room][client] = struct{}{}
	client.Rooms = append(client.Rooms, room)
}

// Leave removes the client from a room.
func (h *Hub) Leave(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.clients[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.clients, room)
		}
	}

	remaining := make([]string, 0, len(client.Rooms))
	for _, r := range client.Rooms {
		if r != room {
			remaining = append(remaining, r)
		}
	}
	client.Rooms = remaining
}

// Broadcast sends an event to all clients in the given room.
func (h *Hub) Broadcast(room string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket: failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	members, ok := h.clients[room]
	if !ok {
		return
	}

	for client := range members {
		select {
		case client.Send <- data:
		default:
			// Client buffer full; skip to avoid blocking.
		}
	}
}

// BroadcastAll sends an event to every connected client regardless of room.
func (h *Hub) BroadcastAll(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket: failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.all {
		select {
		case client.Send <- data:
		default:
			// Client buffer full; skip to avoid blocking.
		}
	}
}

// Publish implements the EventPublisher interface by broadcasting the event
// to members of the event's room.
func (h *Hub) Publish(_ context.Context, event Event) error {
	h.Broadcast(event.Room, event)
	return nil
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// RoomCount returns the number of clients in a specific room.
func (h *Hub) RoomCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[room])
}

// ProcessMessage handles an inbound ClientMessage. Join and leave update room
// membership; message is persisted through the sink and then broadcast to the
// room. A persistence failure drops the message without broadcasting.
func (h *Hub) ProcessMessage(ctx context.Context, client *Client, msg ClientMessage, sink MessageSink) {
	switch msg.Action {
	case "join":
		h.Join(client, msg.Room)
	case "leave":
		h.Leave(client, msg.Room)
	case "message":
		if msg.Room == "" || msg.Content == "" {
			return
		}
		var data json.RawMessage
		if sink != nil {
			saved, err := sink.HandleChatMessage(ctx, msg.Room, client.UserID, msg.Content)
			if err != nil {
				h.logger.Error().Err(err).Str("room", msg.Room).Msg("websocket: failed to persist chat message")
				return
			}
			data = saved
		}
		h.Broadcast(msg.Room, Event{
			Type:      "message",
			Room:      msg.Room,
			SenderID:  client.UserID,
			Timestamp: time.Now().UTC(),
			Data:      data,
		})
	}
}

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// WebSocketHandler handles HTTP-to-WebSocket upgrades and message routing.
type WebSocketHandler struct {
	hub  *Hub
	sink MessageSink
}

// NewWebSocketHandler creates a new handler bound to the given Hub and sink.
func NewWebSocketHandler(hub *Hub, sink MessageSink) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, sink: sink}
}

// RegisterRoutes registers the WebSocket endpoint on the provided Echo group.
func (wsh *WebSocketHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws", wsh.HandleConnect)
}

// HandleConnect upgrades an HTTP connection to WebSocket, registers the
// client with the hub, and starts read/write pumps. The authenticated user ID
// is taken from the request context when present.
func (wsh *WebSocketHandler) HandleConnect(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	userID := auth.UserIDFromContext(c.Request().Context())

	client := &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Rooms:  []string{},
		Send:   make(chan []byte, 256),
		conn:   ws,
	}

	wsh.hub.Register(client)

	go wsh.writePump(client)
	go wsh.readPump(client)

	return nil
}

// readPump reads messages from the client's connection and processes them.
func (wsh *WebSocketHandler) readPump(client *Client) {
	defer func() {
		wsh.hub.Unregister(client)
		client.conn.Close()
	}()

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue // Ignore malformed messages.
		}

		wsh.hub.ProcessMessage(context.Background(), client, msg, wsh.sink)
	}
}

// writePump writes messages from the Send channel to the client's connection.
func (wsh *WebSocketHandler) writePump(client *Client) {
	defer client.conn.Close()

	for message := range client.Send {
		if err := client.conn.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			break
		}
	}
}
