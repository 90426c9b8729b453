package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"statementcheck/internal/config"
	"statementcheck/internal/infrastructure"
	"statementcheck/pkg/contracts/events"
)

// Options are the connection timings and buffer sizes of a hub's clients.
type Options struct {
	ReadBufferSize  int
	WriteBufferSize int
	PingPeriod      time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
	MaxMessageSize  int64
	SendBuffer      int
}

// OptionsFrom converts the websocket configuration section.
func OptionsFrom(cfg config.WebSocketConfig) Options {
	opts := Options{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		PingPeriod:      cfg.PingPeriod,
		PongWait:        cfg.PongWait,
		WriteWait:       cfg.WriteWait,
		MaxMessageSize:  cfg.MaxMessageSize,
		SendBuffer:      cfg.SendBuffer,
	}
	def := config.Default().WebSocket
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = def.PingPeriod
	}
	if opts.PongWait <= 0 {
		opts.PongWait = def.PongWait
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = def.WriteWait
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = def.MaxMessageSize
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = def.SendBuffer
	}
	return opts
}

// Hub maintains the set of connected clients and fans analysis progress out to them.
type Hub struct {
	clients map[*Client]struct{}

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	logger  *slog.Logger
	metrics *infrastructure.AppMetrics
	opts    Options

	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	messagesDropped  atomic.Int64
}

// NewHub creates a hub. metrics may be nil.
func NewHub(logger *slog.Logger, cfg config.WebSocketConfig, metrics *infrastructure.AppMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	opts := OptionsFrom(cfg)
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, opts.SendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
		opts:       opts,
	}
}

// Options returns the client settings of the hub.
func (h *Hub) Options() Options {
	return h.opts
}

// Start runs the hub loop in a goroutine. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Stop ends the hub loop and disconnects every client. It waits for the loop
// to exit and is safe to call more than once.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

// Run is the hub loop. Start calls it.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.closeAll()
			h.logger.Info("Hub shut down",
				slog.Int64("total_connections", h.totalConnections.Load()),
				slog.Int64("messages_sent", h.messagesSent.Load()),
				slog.Int64("messages_dropped", h.messagesDropped.Load()))
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client, "disconnected")

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

// Register adds a client and reports whether the hub accepted it. When the
// hub is not running the client is dropped and its send channel closed, which
// ends its write pump.
func (h *Hub) Register(client *Client) bool {
	if h.isRunning() {
		select {
		case h.register <- client:
			return true
		case <-h.quit:
		}
	}
	close(client.send)
	return false
}

// Unregister removes a client and closes its send channel. It returns
// immediately when the hub is not running.
func (h *Hub) Unregister(client *Client) {
	if !h.isRunning() {
		return
	}
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

func (h *Hub) isRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// Broadcast queues msg for every connected client. It never blocks: when the
// queue is full or the hub is stopped the message is dropped.
func (h *Hub) Broadcast(msg events.WebSocketMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("message_type", string(msg.Type)),
			slog.String("error", err.Error()))
		return
	}

	select {
	case <-h.quit:
		return
	default:
	}

	select {
	case h.broadcast <- data:
	default:
		h.messagesDropped.Add(1)
		h.logger.Warn("Broadcast queue full, message dropped",
			slog.String("message_type", string(msg.Type)),
			slog.String("trace_id", msg.TraceID))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns counters for the health endpoint.
func (h *Hub) Stats() map[string]int64 {
	return map[string]int64{
		"active_clients":    int64(h.ClientCount()),
		"total_connections": h.totalConnections.Load(),
		"messages_sent":     h.messagesSent.Load(),
		"messages_dropped":  h.messagesDropped.Load(),
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.totalConnections.Add(1)

	ctx := client.context()
	h.metrics.AddWebSocketClients(ctx, 1)
	h.logger.InfoContext(ctx, "Client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))

	hello, err := json.Marshal(events.NewMessage(events.MessageTypeConnect, client.traceID, events.Connected{
		ClientID:        client.id,
		ProtocolVersion: events.ProtocolVersion,
	}))
	if err != nil {
		return
	}
	select {
	case client.send <- hello:
	default:
		h.logger.WarnContext(ctx, "Failed to send connection message, client buffer full",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) removeClient(client *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.metrics.AddWebSocketClients(ctx, -1)
	h.logger.InfoContext(ctx, "Client unregistered",
		slog.String("reason", reason),
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- message:
			h.messagesSent.Add(1)
		default:
			h.removeClient(client, "send buffer full")
		}
	}

	h.logger.Debug("Broadcast delivered",
		slog.Int("client_count", len(clients)),
		slog.Int("message_size", len(message)))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for client := range clients {
		close(client.send)
		h.metrics.AddWebSocketClients(context.Background(), -1)
	}
}
