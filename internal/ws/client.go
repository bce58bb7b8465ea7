package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"party_server/internal/domain"
	"party_server/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 16 << 10
	sendBuffer     = 256
)

// Client is one websocket connection. Each connection is a distinct actor.
type Client struct {
	ActorID  string
	Name     string
	Identity *domain.Identity
	Conn     *websocket.Conn
	Send     chan []byte

	limiter   *rate.Limiter
	closeOnce sync.Once
}

func NewClient(actorID, name string, identity *domain.Identity, conn *websocket.Conn, limiter *rate.Limiter) *Client {
	return &Client{
		ActorID:  actorID,
		Name:     name,
		Identity: identity,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
		limiter:  limiter,
	}
}

// Actor is the registry's view of this connection.
func (c *Client) Actor() domain.Actor {
	a := domain.Actor{ID: c.ActorID, Name: c.Name, Identity: c.Identity}
	if c.Identity != nil {
		a.Avatar = c.Identity.AvatarRef
	}
	return a
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.Send) })
}

// allow reports whether another inbound message fits the rate budget.
func (c *Client) allow() bool {
	return c.limiter == nil || c.limiter.Allow()
}

//read
func (c *Client) readPump(onMessage func([]byte)) {
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws read error", "actor", c.ActorID, "error", err)
			}
			return
		}
		onMessage(msg)
	}
}

//write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("ws write error", "actor", c.ActorID, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
