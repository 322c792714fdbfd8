package models

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// GlobalHub is a singleton instance of the Hub
var GlobalHub *Hub
var hubOnce sync.Once

// Hub maintains the mapping from logical channel name (user:<id> inbox,
// conversation:<id> room, global admin broadcast) to the set of live
// connections, and delivers events to every connection subscribed to a
// channel at the time of delivery. Delivery is at-most-once per connection,
// no buffering, no retry: a missed event is recoverable through the plain
// read path on the next page load.
type Hub struct {
	// Registered clients.
	Clients map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Channel name -> subscribed connections.
	channels map[string]map[*Client]bool

	// Mutex guarding Clients and channels.
	mu sync.RWMutex
}

// MessageRelay persists and fans out a chat message sent over a websocket
// frame. Implemented by the messages service; kept as an interface so the
// hub does not depend on the service layer.
type MessageRelay interface {
	RelayMessage(senderID, conversationID int64, text string)
}

// Client represents one WebSocket connection.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	// Connection id for log correlation.
	ConnID string

	// Authenticated user information.
	UserID  int64
	IsAdmin bool

	// Handles send_message frames; may be nil.
	Relay MessageRelay
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Clients:    make(map[*Client]bool),
		channels:   make(map[string]map[*Client]bool),
	}
}

// GetHub returns the singleton instance of the Hub
func GetHub() *Hub {
	hubOnce.Do(func() {
		GlobalHub = NewHub()
		go GlobalHub.Run()
	})
	return GlobalHub
}

// Run services the register/unregister channels. One goroutine per hub.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.Clients[client] = true
			h.mu.Unlock()

			// Admins are implicit members of the global broadcast channel
			// for the lifetime of the connection.
			if client.IsAdmin {
				h.Join(client, AdminChannel)
			}

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)

				// Remove the connection from every channel it joined so no
				// dangling references survive the transport close.
				for name, subscribers := range h.channels {
					if subscribers[client] {
						delete(subscribers, client)
						if len(subscribers) == 0 {
							delete(h.channels, name)
						}
					}
				}

				close(client.Send)
			}
			h.mu.Unlock()
		}
	}
}

// Join subscribes a connection to a channel.
func (h *Hub) Join(client *Client, channel string) {
	if channel == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.channels[channel]; !exists {
		h.channels[channel] = make(map[*Client]bool)
	}
	h.channels[channel][client] = true
}

// Leave unsubscribes a connection from a channel.
func (h *Hub) Leave(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subscribers, exists := h.channels[channel]; exists {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.channels, channel)
		}
	}
}

// Publish delivers an event to every connection currently subscribed to the
// channel. Sends are non-blocking: a client whose buffer is full misses the
// frame rather than stalling the caller.
func (h *Hub) Publish(channel string, event Event) {
	data, err := event.Encode()
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.channels[channel] {
		select {
		case client.Send <- data:
		default:
			// Slow consumer, frame dropped.
		}
	}
}

// PublishToAdmins delivers an event on the global admin broadcast channel.
func (h *Hub) PublishToAdmins(event Event) {
	h.Publish(AdminChannel, event)
}

// Subscribers returns the number of live connections on a channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// IsUserConnected checks if a user has a live connection on their inbox
// channel.
func (h *Hub) IsUserConnected(userID int64) bool {
	return h.Subscribers(UserChannel(userID)) > 0
}

// ReadPump pumps frames from the WebSocket connection into the hub. Join
// frames mutate channel membership; send_message frames are handed to the
// relay. The deferred unregister removes the connection from every channel
// as soon as the transport closes.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			break
		}

		var frame ClientFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			continue
		}
		c.handleFrame(frame)
	}
}

func (c *Client) handleFrame(frame ClientFrame) {
	switch frame.Type {
	case FrameJoinUserRoom:
		if frame.UserID != 0 {
			c.Hub.Join(c, UserChannel(frame.UserID))
		}
	case FrameJoinConversation:
		if frame.ConversationID != 0 {
			c.Hub.Join(c, ConversationChannel(frame.ConversationID))
		}
	case FrameSendMessage:
		if c.Relay != nil && frame.ConversationID != 0 {
			c.Relay.RelayMessage(c.UserID, frame.ConversationID, frame.Text)
		}
	}
}

// WritePump pumps events from the hub to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed
	maxMessageSize = 1024
)
