package network

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

	"github.com/MRamiBalles/SalaTrece/server/internal/domain/chance"
	"github.com/MRamiBalles/SalaTrece/server/internal/engine"
	"github.com/MRamiBalles/SalaTrece/server/internal/events"
	"github.com/MRamiBalles/SalaTrece/server/internal/platform/config"
	"github.com/MRamiBalles/SalaTrece/server/internal/platform/logger"
	"github.com/MRamiBalles/SalaTrece/server/internal/platform/metrics"
)

type server struct {
	url     string
	room    *engine.Engine
	metrics *metrics.Collector
}

// startServer runs a real room behind the websocket and REST routes.
func startServer(t *testing.T, opts HubOptions) server {
	t.Helper()
	cfg := config.Default()
	cfg.FrameRateHz = 200
	log := events.NewEventLog(cfg.RoomID, nil)
	m := metrics.New()
	room, err := engine.NewEngine(cfg, engine.Deps{EventLog: log, Logger: logger.Nop(), Metrics: m, Source: chance.New(3)})
	require.NoError(t, err)
	schema, err := CompileActionSchema()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go room.Run(ctx)
	hub := NewHub(room, schema, opts, logger.Nop(), m)
	go hub.Run(ctx)
	hub.StartEventPoller(ctx, log, 5*time.Millisecond)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	NewActionBridge(room, schema, logger.Nop()).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return server{url: srv.URL, room: room, metrics: m}
}

type frame struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, s server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.url, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

// readUntil skips frames until one matches.
func readUntil(t *testing.T, conn *websocket.Conn, match func(frame) bool) frame {
	t.Helper()
	for i := 0; i < 100; i++ {
		if f := readFrame(t, conn); match(f) {
			return f
		}
	}
	t.Fatal("frame never arrived")
	return frame{}
}

func TestWebsocketWelcomesAndStreamsEvents(t *testing.T) {
	s := startServer(t, HubOptions{SendBuffer: 64, MaxMessagesPerSecond: 20})
	conn := dial(t, s)

	welcome := readFrame(t, conn)
	require.Equal(t, MsgTypeWelcome, welcome.Type)
	var w WelcomePayload
	require.NoError(t, json.Unmarshal(welcome.Payload, &w))
	assert.Equal(t, "sala-13", w.RoomID)
	assert.NotEmpty(t, w.ClientID)

	state := readFrame(t, conn)
	require.Equal(t, MsgTypeState, state.Type)
	var v engine.RoomView
	require.NoError(t, json.Unmarshal(state.Payload, &v))
	assert.Len(t, v.Boxes, 4)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "OPEN", "puzzle": "magicbox"}))
	ev := readUntil(t, conn, func(f frame) bool { return f.Type == MsgTypeEvent })
	var got events.GameEvent
	require.NoError(t, json.Unmarshal(ev.Payload, &got))
	assert.Equal(t, events.EventTypePuzzleOpened, got.Type)
	assert.Equal(t, "magicbox", got.Puzzle)
	assert.Equal(t, w.ClientID, got.ActorID)

	readUntil(t, conn, func(f frame) bool {
		if f.Type != MsgTypeState {
			return false
		}
		var v engine.RoomView
		require.NoError(t, json.Unmarshal(f.Payload, &v))
		return v.Active == engine.PuzzleMagicBox
	})
}

func TestWebsocketReportsErrors(t *testing.T) {
	s := startServer(t, HubOptions{SendBuffer: 64, MaxMessagesPerSecond: 20})
	conn := dial(t, s)
	readFrame(t, conn)
	readFrame(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"DANCE"}`)))
	f := readUntil(t, conn, func(f frame) bool { return f.Type == MsgTypeError })
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(f.Payload, &p))
	assert.Equal(t, "BAD_ACTION", p.Code)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "PRESS_BUTTON", "index": 0}))
	f = readUntil(t, conn, func(f frame) bool { return f.Type == MsgTypeError })
	require.NoError(t, json.Unmarshal(f.Payload, &p))
	assert.Equal(t, "NO_ACTIVE_PUZZLE", p.Code)
}

func TestWebsocketRateLimit(t *testing.T) {
	s := startServer(t, HubOptions{SendBuffer: 64, MaxMessagesPerSecond: 1})
	conn := dial(t, s)
	readFrame(t, conn)
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "LEAVE"}))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "LEAVE"}))

	var codes []string
	for len(codes) < 2 {
		f := readUntil(t, conn, func(f frame) bool { return f.Type == MsgTypeError })
		var p ErrorPayload
		require.NoError(t, json.Unmarshal(f.Payload, &p))
		codes = append(codes, p.Code)
	}
	assert.Equal(t, []string{"NO_ACTIVE_PUZZLE", "RATE_LIMITED"}, codes)
}

func post(t *testing.T, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/api/actions", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set(ActorHeader, "kiosk-1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestRESTActions(t *testing.T) {
	s := startServer(t, HubOptions{})

	resp, out := post(t, s.url, `{"type":"OPEN","puzzle":"lightwall"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["accepted"])
	room := out["room"].(map[string]interface{})
	assert.Equal(t, "lightwall", room["active"])

	resp, out = post(t, s.url, `{"type":"PRESS_BUTTON","index":9999}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "OUT_OF_RANGE", out["code"])

	resp, out = post(t, s.url, `{"type":"OPEN"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "BAD_ACTION", out["code"])

	resp, out = post(t, s.url, `{"type":"LEAVE"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, out = post(t, s.url, `{"type":"LEAVE"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "NO_ACTIVE_PUZZLE", out["code"])
}

func TestRESTRoomAndMethods(t *testing.T) {
	s := startServer(t, HubOptions{})

	resp, err := http.Get(s.url + "/api/room")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var v engine.RoomView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	assert.Equal(t, "sala-13", v.RoomID)

	resp2, err := http.Get(s.url + "/api/actions")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp2.StatusCode)
}
