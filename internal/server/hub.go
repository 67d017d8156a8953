// Package server coordinates client registration, game actions, the income
// tick and broadcast fanout through the Hub type.
package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/tapwars/internal/dependencies/clock"
	"github.com/Tyrowin/tapwars/internal/storage"
)

// storeTimeout bounds every store call made from the hub goroutine.
const storeTimeout = 5 * time.Second

// ErrHubClosed is returned when a request reaches a hub that has shut down.
var ErrHubClosed = errors.New("hub is closed")

type inboundMessage struct {
	client *Client
	msg    ClientMessage
}

// Hub is the single authority over game state. Registrations, inbound
// messages, tick firings and out-of-band calls are all handled one at a time
// by the goroutine running Run, so a handler's read-then-write against the
// store never interleaves with another handler.
type Hub struct {
	clients  map[*Client]bool
	registry *Registry
	store    storage.Storage
	clock    clock.Clock
	cfg      Config
	logger   *slog.Logger

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundMessage
	calls      chan func()

	mutex  sync.RWMutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a hub over store. The hub does nothing until Run is called.
func NewHub(store storage.Storage, cfg Config, clk clock.Clock, logger *slog.Logger) *Hub {
	cfg = sanitizeConfig(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		registry:   NewRegistry(store, cfg.AdminToken),
		store:      store,
		clock:      clk,
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "hub")),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundMessage),
		calls:      make(chan func()),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Register hands a new connection to the hub.
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	}
}

// disconnect asks the hub to forget client. It never blocks after shutdown.
func (h *Hub) disconnect(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// submit queues a decoded client message for the hub goroutine.
func (h *Hub) submit(client *Client, msg ClientMessage) bool {
	select {
	case h.inbound <- inboundMessage{client: client, msg: msg}:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// do runs fn on the hub goroutine and waits for it to finish. An error
// means fn never ran. Once the hub has accepted fn, do waits for it even if
// ctx ends.
func (h *Hub) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	call := func() {
		defer close(finished)
		fn()
	}

	select {
	case h.calls <- call:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return ErrHubClosed
	}

	<-finished
	return nil
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(h.ctx, storeTimeout)
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("recovered from panic in safeSend", slog.Any("panic", r))
		}
	}()

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, exists := h.clients[client]
	if !exists || client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// Run starts the hub's main event loop. It returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	ticker := time.NewTicker(h.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case in := <-h.inbound:
			h.handleMessage(in.client, in.msg)

		case <-ticker.C:
			h.autoIncomeTick()

		case call := <-h.calls:
			call()
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	if client == nil {
		h.logger.Warn("received nil client registration; skipping")
		return
	}

	h.mutex.Lock()
	client.closed = false
	h.clients[client] = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	h.registry.Connect(client)
	client.logger.Info("client registered", slog.Int("total_clients", clientCount))

	if client.conn != nil {
		h.wg.Add(2)
		go func() {
			defer h.wg.Done()
			client.writePump()
		}()
		go func() {
			defer h.wg.Done()
			client.readPump()
		}()
	}

	h.sendInit(client)
}

func (h *Hub) handleUnregister(client *Client) {
	if h.removeClient(client) {
		client.logger.Info("client unregistered", slog.Int("total_clients", h.ClientCount()))
	}

	if _, known := h.registry.Release(client); known {
		h.broadcastPlayersAndRanks()
	}
}

// removeClient forgets client and closes its send channel, which makes the
// write pump flush what is queued and send a close frame.
func (h *Hub) removeClient(client *Client) bool {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return false
	}
	delete(h.clients, client)
	client.closed = true
	h.mutex.Unlock()

	close(client.send)
	return true
}

// dropClient force-closes client and releases its session at once.
func (h *Hub) dropClient(client *Client) {
	h.removeClient(client)
	h.registry.Release(client)
}

func (h *Hub) isConnected(client *Client) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.clients[client] && !client.closed
}

// shutdownClients gracefully closes all active client connections
func (h *Hub) shutdownClients() {
	h.logger.Info("shutting down all client connections")

	clients := h.getClientSnapshot()
	for _, client := range clients {
		// Closing send stops the write pump; closing conn stops the read pump.
		h.removeClient(client)
		if client.conn == nil {
			continue
		}
		if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
			client.logger.Error("error closing client connection", slog.Any("error", err))
		}
	}

	h.logger.Info("closed client connections", slog.Int("count", len(clients)))
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines to complete.
// It returns after all client connections are closed and goroutines have finished,
// or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
