package api

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/fdwatch/internal/config"
	"github.com/yegors/fdwatch/internal/engine"
	"github.com/yegors/fdwatch/internal/track"
	"github.com/yegors/fdwatch/internal/websocket"
	"github.com/yegors/fdwatch/pkg/logger"
)

func TestWebSocketRequests(t *testing.T) {
	hub := websocket.NewServer(logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	view := &fakeView{
		status:   engine.Status{State: engine.StateCooldown},
		aircraft: []track.View{{ID: "abc123"}},
	}
	srv := httptest.NewServer(NewRouter(view, nil, &config.Config{}, hub, logger.NewNop()).Routes())
	defer srv.Close()

	conn, _, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() websocket.Message {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg websocket.Message
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	require.NoError(t, conn.WriteJSON(websocket.Message{Type: websocket.MessageTypeStatusRequest}))
	msg := read()
	assert.Equal(t, websocket.MessageTypeStatus, msg.Type)
	status := msg.Data["status"].(map[string]any)
	assert.Equal(t, "cooldown", status["state"])

	require.NoError(t, conn.WriteJSON(websocket.Message{Type: MessageTypeAircraftRequest}))
	msg = read()
	assert.Equal(t, websocket.MessageTypeTracksUpdate, msg.Type)
	assert.Equal(t, 1.0, msg.Data["count"])
}
