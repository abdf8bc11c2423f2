package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sparkplay/dominion-server-go/internal/game/rules"
)

func TestHubStreamsRoomEvents(t *testing.T) {
	hub := NewHub(time.Second, 8, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	bus := rules.NewEventBus()
	hub.Attach(bus)

	srv := httptest.NewServer(NewRouter(HTTPOptions{Hub: hub, Logger: zaptest.NewLogger(t)}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?room=room1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.Connected() == 1 }, time.Second, 5*time.Millisecond)

	bus.Publish(rules.NewEvent(rules.EventCardBought, "room2", "bob", "silver"))
	bus.Publish(rules.NewEvent(rules.EventCardBought, "room1", "alice", "gold"))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg WSMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "game_event", msg.Type)
	assert.Equal(t, "room1", msg.Room)
	assert.Equal(t, "gold", msg.Event.Card, "events for other rooms are not delivered")
	assert.Equal(t, rules.EventCardBought, msg.Event.Type)
}

func TestHubRequiresRoom(t *testing.T) {
	hub := NewHub(0, 0, zaptest.NewLogger(t))
	rec := httptest.NewRecorder()
	hub.ServeWS(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub := NewHub(0, 0, zaptest.NewLogger(t))
	for i := 0; i < 300; i++ {
		hub.Publish(rules.NewEvent(rules.EventTurnStarted, "room1", "alice", ""))
	}
	assert.Equal(t, int64(300-256), hub.dropped.Load())
}
