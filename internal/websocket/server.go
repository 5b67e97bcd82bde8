package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yegors/fdwatch/pkg/logger"
)

// Message types pushed to display clients
const (
	MessageTypeTracksUpdate  = "tracks_update"
	MessageTypeCueScheduled  = "cue_scheduled"
	MessageTypeCueFired      = "cue_fired"
	MessageTypeCueMissed     = "cue_missed"
	MessageTypeStateChange   = "state_change"
	MessageTypeStatusRequest = "status_request" // Client asks for the current status
	MessageTypeStatus        = "status"         // Reply to status_request
	MessageTypeFilterUpdate  = "filter_update"  // Client narrows the message types it receives
)

const (
	writeWait     = 10 * time.Second
	sendQueueSize = 256
)

// Message represents a WebSocket message
type Message struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// MessageHandler defines the interface for handling incoming WebSocket messages
type MessageHandler interface {
	HandleMessage(client *Client, messageType string, data map[string]any) error
}

// Client represents a WebSocket client
type Client struct {
	conn      *websocket.Conn
	send      chan *Message
	server    *Server
	mu        sync.Mutex
	closed    bool
	closeChan chan struct{}
	types     map[string]bool // Subscribed message types, nil for all
}

// Server is the hub fanning engine events out to connected clients
type Server struct {
	clients        map[*Client]bool
	register       chan *Client
	unregister     chan *Client
	broadcast      chan *Message
	upgrader       websocket.Upgrader
	logger         *logger.Logger
	mu             sync.RWMutex
	messageHandler MessageHandler
	done           chan struct{} // Closed when Run returns
}

// NewServer creates a new WebSocket server
func NewServer(log *logger.Logger) *Server {
	return &Server{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, sendQueueSize),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		logger: log.Named("web-socket"),
		done:   make(chan struct{}),
	}
}

// SetMessageHandler sets the message handler for incoming WebSocket messages
func (s *Server) SetMessageHandler(handler MessageHandler) {
	s.messageHandler = handler
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Run services the hub until ctx is cancelled
func (s *Server) Run(ctx context.Context) {
	s.logger.Info("Starting WebSocket server")
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			for client := range s.clients {
				delete(s.clients, client)
				client.shutdown()
			}
			s.mu.Unlock()
			s.logger.Info("WebSocket server stopped")
			return

		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			clientCount := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug("Client registered", logger.Int("client_count", clientCount))

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				client.shutdown()
			}
			clientCount := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug("Client unregistered", logger.Int("client_count", clientCount))

		case message := <-s.broadcast:
			s.deliver(message)
		}
	}
}

func (s *Server) deliver(message *Message) {
	s.mu.RLock()
	var slow []*Client
	for client := range s.clients {
		if !client.wants(message.Type) {
			continue
		}
		if !client.SendMessage(message) {
			slow = append(slow, client)
		}
	}
	s.mu.RUnlock()

	if len(slow) == 0 {
		return
	}
	s.mu.Lock()
	for _, client := range slow {
		if _, ok := s.clients[client]; ok {
			delete(s.clients, client)
			client.shutdown()
		}
	}
	s.mu.Unlock()
}

// HandleConnection upgrades an HTTP request and attaches the client to the hub
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			Error(err),
			String("remote_addr", r.RemoteAddr))
		return
	}

	s.logger.Debug("Client connected", String("remote_addr", r.RemoteAddr))

	client := &Client{
		conn:      conn,
		send:      make(chan *Message, sendQueueSize),
		server:    s,
		closeChan: make(chan struct{}),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.readPump()
	go client.writePump()
}

// Broadcast queues a message for every client. It never blocks the caller; when the hub
// is backed up the message is dropped.
func (s *Server) Broadcast(message *Message) {
	select {
	case s.broadcast <- message:
	default:
		s.logger.Warn("Broadcast queue full, dropping message", String("message_type", message.Type))
	}
}

// shutdown marks the client closed and stops its write pump. Callers hold s.mu.
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) wants(messageType string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.types == nil || c.types[messageType]
}

// SetTypes restricts the client to the given message types. An empty list restores all.
func (c *Client) SetTypes(types []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(types) == 0 {
		c.types = nil
		return
	}
	c.types = make(map[string]bool, len(types))
	for _, t := range types {
		c.types[t] = true
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.done:
		}
		c.conn.Close()
	}()

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.server.logger.Error("WebSocket read error", Error(err))
			}
			return
		}

		var message Message
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			c.server.logger.Warn("Failed to parse WebSocket message", Error(err))
			continue
		}

		if message.Type == MessageTypeFilterUpdate {
			c.SetTypes(stringList(message.Data["types"]))
			continue
		}

		if c.server.messageHandler != nil {
			if err := c.server.messageHandler.HandleMessage(c, message.Type, message.Data); err != nil {
				c.server.logger.Warn("Failed to handle WebSocket message",
					Error(err),
					String("type", message.Type))
			}
		}
	}
}

func stringList(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	defer c.conn.Close()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				c.server.logger.Error("Failed to marshal message", Error(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-c.closeChan:
			return
		}
	}
}

// Close closes the client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.closeChan:
	default:
		close(c.closeChan)
	}
	c.conn.Close()
}

// SendMessage sends a message to this specific client without blocking
func (c *Client) SendMessage(message *Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// Import logger functions
var (
	String = logger.String
	Error  = logger.Error
)
