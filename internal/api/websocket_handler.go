package api

import (
	"github.com/yegors/fdwatch/internal/websocket"
	"github.com/yegors/fdwatch/pkg/logger"
)

// Client request types
const (
	MessageTypeAircraftRequest = "aircraft_request"
)

// WebSocketHandler answers client requests from the engine view
type WebSocketHandler struct {
	engine EngineView
	logger *logger.Logger
}

// NewWebSocketHandler creates a new WebSocket message handler
func NewWebSocketHandler(view EngineView, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		engine: view,
		logger: log.Named("ws-handler"),
	}
}

// HandleMessage implements websocket.MessageHandler
func (h *WebSocketHandler) HandleMessage(client *websocket.Client, messageType string, data map[string]any) error {
	switch messageType {
	case websocket.MessageTypeStatusRequest:
		client.SendMessage(&websocket.Message{
			Type: websocket.MessageTypeStatus,
			Data: map[string]any{"status": h.engine.Status()},
		})
	case MessageTypeAircraftRequest:
		aircraft := h.engine.Aircraft()
		client.SendMessage(&websocket.Message{
			Type: websocket.MessageTypeTracksUpdate,
			Data: map[string]any{"aircraft": aircraft, "count": len(aircraft)},
		})
	default:
		h.logger.Debug("Ignoring unknown message type", logger.String("type", messageType))
	}
	return nil
}
