// Package server coordinates client registration, topic subscriptions,
// message delivery, and connection cleanup for the Spindle WebSocket
// transport via the Hub type.
package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spindle-chat/spindle/internal/chat"
)

// Hub manages all WebSocket client connections and their topic
// subscriptions. It implements chat.Notifier: deliveries never block, so
// the coordinator's mutation path is never stalled by a slow recipient.
type Hub struct {
	clients    map[string]*Client            // connection ID -> client
	topics     map[string]map[string]*Client // topic -> connection ID -> client
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	log        *zap.SugaredLogger
	metrics    *Metrics
}

// NewHub creates and initializes a new Hub instance. The returned Hub is
// ready to manage WebSocket connections once Run is started.
func NewHub(log *zap.SugaredLogger, metrics *Metrics) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]*Client),
		topics:     make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		log:        log,
		metrics:    metrics,
	}
}

// Register returns the channel used for registering new clients.
func (h *Hub) Register() chan<- *Client {
	return h.register
}

// Unregister returns the channel used for unregistering clients.
func (h *Hub) Unregister() chan<- *Client {
	return h.unregister
}

// Run starts the hub's main event loop, handling client registration and
// unregistration and launching each client's pump goroutines. This method
// should be called in a separate goroutine as it runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("received nil client registration; skipping")
				continue
			}

			h.mutex.Lock()
			h.clients[client.id] = client
			h.subscribeLocked(client, chat.GlobalTopic)
			clientCount := len(h.clients)
			h.mutex.Unlock()

			h.metrics.Incr(metricConnections, 1)
			h.log.Infow("client registered", "conn", client.id, "addr", client.addr, "total", clientCount)

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client.id]; ok {
				h.dropLocked(client)
				clientCount := len(h.clients)
				h.mutex.Unlock()
				// Close the channel after releasing the lock.
				close(client.send)
				h.metrics.Decr(metricConnections, 1)
				h.log.Infow("client unregistered", "conn", client.id, "total", clientCount)
			} else {
				h.mutex.Unlock()
			}
		}
	}
}

// Broadcast delivers an event to every connection subscribed to the topic.
// Clients whose send buffers are full are dropped rather than awaited.
func (h *Hub) Broadcast(topic, event string, payload any) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		h.log.Errorw("failed to encode broadcast frame", "event", event, "error", err)
		return
	}

	h.mutex.RLock()
	subscribers := make([]*Client, 0, len(h.topics[topic]))
	for _, client := range h.topics[topic] {
		subscribers = append(subscribers, client)
	}
	h.mutex.RUnlock()

	h.metrics.Incr(metricBroadcasts, 1)

	var failed []*Client
	for _, client := range subscribers {
		if !h.safeSend(client, frame) {
			failed = append(failed, client)
		}
	}
	h.removeFailedClients(failed)
}

// Unicast delivers an event to exactly one connection.
func (h *Hub) Unicast(connID, event string, payload any) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		h.log.Errorw("failed to encode unicast frame", "event", event, "error", err)
		return
	}

	h.mutex.RLock()
	client, ok := h.clients[connID]
	h.mutex.RUnlock()
	if !ok {
		return
	}

	if !h.safeSend(client, frame) {
		h.removeFailedClients([]*Client{client})
	}
}

// JoinTopic subscribes a connection to a topic.
func (h *Hub) JoinTopic(connID, topic string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return
	}
	h.subscribeLocked(client, topic)
}

// LeaveTopic unsubscribes a connection from a topic.
func (h *Hub) LeaveTopic(connID, topic string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	subscribers, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(subscribers, connID)
	if len(subscribers) == 0 {
		delete(h.topics, topic)
	}
}

func (h *Hub) subscribeLocked(client *Client, topic string) {
	subscribers, ok := h.topics[topic]
	if !ok {
		subscribers = make(map[string]*Client)
		h.topics[topic] = subscribers
	}
	subscribers[client.id] = client
}

// dropLocked removes a client from the client map and every topic.
func (h *Hub) dropLocked(client *Client) {
	delete(h.clients, client.id)
	client.closed = true
	for topic, subscribers := range h.topics {
		delete(subscribers, client.id)
		if len(subscribers) == 0 {
			delete(h.topics, topic)
		}
	}
}

func (h *Hub) safeSend(client *Client, frame []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			h.log.Warnw("recovered from panic in safeSend", "panic", r)
		}
	}()

	// Hold the lock during the entire send operation to prevent race conditions.
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, exists := h.clients[client.id]
	if !exists || client.closed {
		return false
	}

	select {
	case client.send <- frame:
		return true
	default:
		return false
	}
}

// removeFailedClients removes clients that failed to receive messages and
// closes their channels.
func (h *Hub) removeFailedClients(clients []*Client) {
	if len(clients) == 0 {
		return
	}

	h.mutex.Lock()
	var channelsToClose []chan []byte
	for _, client := range clients {
		if _, exists := h.clients[client.id]; exists {
			h.dropLocked(client)
			channelsToClose = append(channelsToClose, client.send)
			h.metrics.Incr(metricDrops, 1)
			h.log.Warnw("client removed due to full send buffer", "conn", client.id, "addr", client.addr)
		}
	}
	h.mutex.Unlock()

	// Close channels after releasing the lock.
	for _, ch := range channelsToClose {
		close(ch)
	}
	if len(channelsToClose) > 0 {
		h.metrics.Decr(metricConnections, int64(len(channelsToClose)))
	}
}

// shutdownClients gracefully closes all active client connections.
func (h *Hub) shutdownClients() {
	h.log.Info("shutting down all client connections")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.log.Warnw("error closing client connection", "conn", client.id, "error", err)
			}
		}
	}

	h.log.Infow("closed client connections", "count", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all
// goroutines to complete, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
