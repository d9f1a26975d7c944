package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/MRamiBalles/SalaTrece/server/internal/engine"
	"github.com/MRamiBalles/SalaTrece/server/internal/events"
	"github.com/MRamiBalles/SalaTrece/server/internal/platform/logger"
	"github.com/MRamiBalles/SalaTrece/server/internal/platform/metrics"
)

// DefaultPollInterval is how often the hub looks for new events.
const DefaultPollInterval = 50 * time.Millisecond

// Room is what transports need from the engine.
type Room interface {
	RoomID() string
	Submit(ctx context.Context, a engine.Action) error
	Snapshot() engine.RoomView
}

// HubOptions tunes per-client limits.
type HubOptions struct {
	SendBuffer           int
	MaxMessagesPerSecond int
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex

	room    Room
	schema  *jsonschema.Schema
	opts    HubOptions
	logger  *logger.Logger
	metrics *metrics.Collector
}

// NewHub initializes a new WebSocket Hub.
func NewHub(room Room, schema *jsonschema.Schema, opts HubOptions, log *logger.Logger, m *metrics.Collector) *Hub {
	if opts.SendBuffer < 1 {
		opts.SendBuffer = 64
	}
	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		room:       room,
		schema:     schema,
		opts:       opts,
		logger:     log,
		metrics:    m,
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("websocket hub shutting down")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.RecordWSConnection(1)
			client.queue(newMessage(MsgTypeWelcome, WelcomePayload{ClientID: client.id, RoomID: h.room.RoomID()}))
			client.queue(newMessage(MsgTypeState, h.room.Snapshot()))
			h.logger.Info("websocket client connected", zap.String("client", client.id))
		case client := <-h.unregister:
			h.drop(client)
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					h.metrics.RecordWSMessage(false)
				default:
					// Too slow to keep up; the write pump will close the socket.
					delete(h.clients, client)
					close(client.send)
					h.metrics.RecordWSConnection(-1)
					h.metrics.RecordWSError()
					h.logger.Warn("websocket client dropped", zap.String("client", client.id))
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.metrics.RecordWSConnection(-1)
		h.logger.Info("websocket client disconnected", zap.String("client", client.id))
	}
}

// Len is the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast serializes msg and sends it to every connected client.
func (h *Hub) Broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to serialize broadcast", zap.String("type", string(msg.Type)), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- payload:
	case <-h.done:
	}
}

// BroadcastEvent sends one room event to every client.
func (h *Hub) BroadcastEvent(event events.GameEvent) {
	h.Broadcast(newMessage(MsgTypeEvent, event))
}

// StartEventPoller spawns a goroutine that polls the EventLog and pushes new
// events to the Hub, followed by a fresh STATE snapshot per batch.
func (h *Hub) StartEventPoller(ctx context.Context, eventLog *events.EventLog, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	go func() {
		pollInterval := time.NewTicker(interval)
		defer pollInterval.Stop()

		offset := eventLog.Len()
		for {
			select {
			case <-ctx.Done():
				return
			case <-pollInterval.C:
				var batch []events.GameEvent
				batch, offset = eventLog.Since(offset)
				if len(batch) == 0 {
					continue
				}
				for _, event := range batch {
					h.BroadcastEvent(event)
				}
				h.Broadcast(newMessage(MsgTypeState, h.room.Snapshot()))
			}
		}
	}()
}
