// Package hub fans call events out to connected display screens.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"qms/hospital-service/internal/events"
)

type Client struct {
	ID     string
	Send   chan []byte
	Topics map[string]bool
}

// NewClient subscribes to every topic until the client narrows it down.
func NewClient(id string, buffer int) *Client {
	return &Client{ID: id, Send: make(chan []byte, buffer)}
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	log     zerolog.Logger
}

type SubscribeMessage struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

type envelope struct {
	Type      string `json:"type"`
	Payload   any    `json:"payload"`
	CreatedAt string `json:"created_at"`
}

func New(log zerolog.Logger) *Hub {
	return &Hub{clients: make(map[string]*Client), log: log}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Subscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client.Topics == nil {
		client.Topics = make(map[string]bool)
	}
	client.Topics[topic] = true
}

func (h *Hub) Unsubscribe(client *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if topic == "" {
		client.Topics = nil
		return
	}
	delete(client.Topics, topic)
	if len(client.Topics) == 0 {
		client.Topics = map[string]bool{}
	}
}

func (h *Hub) Broadcast(payload []byte, topic string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if !match(client, topic) {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			h.log.Warn().Str("client_id", client.ID).Str("topic", topic).Msg("drop message for slow client")
		}
	}
}

// Publish broadcasts the event on the calls topic.
func (h *Hub) Publish(_ context.Context, event events.Event) error {
	payload, err := json.Marshal(envelope{
		Type:      event.Type,
		Payload:   event.Payload,
		CreatedAt: event.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.Type, err)
	}
	h.Broadcast(payload, events.TopicCalls)
	return nil
}

// match treats a nil topic set as subscribed to everything and an empty set as muted.
func match(client *Client, topic string) bool {
	if client.Topics == nil {
		return true
	}
	return client.Topics[topic]
}

func ParseSubscribe(data []byte) (SubscribeMessage, bool) {
	var msg SubscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SubscribeMessage{}, false
	}
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return SubscribeMessage{}, false
	}
	return msg, true
}
