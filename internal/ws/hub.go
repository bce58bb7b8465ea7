package ws

import (
	"encoding/json"
	"sync"

	"party_server/internal/domain"
	"party_server/internal/logger"
	"party_server/internal/metrics"
	"party_server/internal/room"
)

// Hub tracks connected clients by actor id and delivers outbound frames.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ActorID] = c
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(n))
}

// Unregister removes c and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.ActorID]; ok && cur == c {
		delete(h.clients, c.ActorID)
		c.closeSend()
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(n))
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	for id, c := range h.clients {
		c.closeSend()
		delete(h.clients, id)
	}
	h.mu.Unlock()
	metrics.WSConnections.Set(0)
}

func encode(event string, payload any) ([]byte, error) {
	return json.Marshal(outFrame{Type: event, Payload: payload})
}

// Deliver sends env to exactly the listed recipients. It never blocks: a
// client whose buffer is full loses the frame.
func (h *Hub) Deliver(env domain.Envelope, recipients []string) {
	msg, err := encode(env.Event, env.Payload)
	if err != nil {
		logger.Error("failed to encode frame", "event", env.Event, "room", env.Audience.RoomID, "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range recipients {
		if c, ok := h.clients[id]; ok {
			h.push(c, msg)
		}
	}
}

// SendTo delivers a frame to a single actor.
func (h *Hub) SendTo(actorID, event string, payload any) {
	h.Deliver(domain.Envelope{
		Audience: domain.Audience{Kind: domain.AudienceActor, ActorID: actorID},
		Event:    event,
		Payload:  payload,
	}, []string{actorID})
}

// Broadcast sends a frame to every connected client.
func (h *Hub) Broadcast(event string, payload any) {
	msg, err := encode(event, payload)
	if err != nil {
		logger.Error("failed to encode frame", "event", event, "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.push(c, msg)
	}
}

// push must be called with h.mu held.
func (h *Hub) push(c *Client, msg []byte) {
	select {
	case c.Send <- msg:
	default:
		metrics.WSDropped.Inc()
		logger.Debug("client buffer full, frame dropped", "actor", c.ActorID)
	}
}

// RoomChanged implements room.Notifier.
func (h *Hub) RoomChanged(view room.View, members []string) {
	h.Deliver(domain.Envelope{
		Audience: domain.RoomAudience(view.ID),
		Event:    MsgRoomUpdated,
		Payload:  view,
	}, members)
}

// LobbyChanged implements room.Notifier.
func (h *Hub) LobbyChanged(list []room.Summary) {
	if list == nil {
		list = []room.Summary{}
	}
	h.Broadcast(MsgRoomList, list)
}
