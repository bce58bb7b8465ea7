package ws

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"party_server/internal/domain"
	"party_server/internal/logger"
)

// IdentitySource resolves an optional bearer token. nil means anonymous.
type IdentitySource interface {
	Resolve(token string) *domain.Identity
}

// Limits bounds inbound messages per connection.
type Limits struct {
	Rate  float64
	Burst int
}

func HandleWS(hub *Hub, router *Router, ids IdentitySource, allowedOrigins []string, limits Limits) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowedOrigins {
				if o == origin {
					return true
				}
			}
			return false
		},
	}

	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = c.GetHeader("Authorization")
		}
		var identity *domain.Identity
		if ids != nil {
			identity = ids.Resolve(token)
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade error", "error", err)
			return
		}

		actorID := uuid.NewString()
		client := NewClient(actorID, displayName(c.Query("name"), identity, actorID), identity, conn, newLimiter(limits))
		Serve(hub, router, client)
	}
}

// Serve runs the client until its connection closes.
func Serve(hub *Hub, router *Router, client *Client) {
	hub.Register(client)
	logger.Info("client connected", "actor", client.ActorID, "authenticated", client.Identity != nil)

	go client.writePump()
	router.Connected(client)

	client.readPump(func(msg []byte) { router.Handle(client, msg) })

	router.Disconnected(client)
	hub.Unregister(client)
	logger.Info("client disconnected", "actor", client.ActorID)
}

func newLimiter(l Limits) *rate.Limiter {
	if l.Rate <= 0 {
		return nil
	}
	burst := l.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(l.Rate), burst)
}

// displayName prefers the requested name, then the identity, then a generated one.
func displayName(requested string, id *domain.Identity, actorID string) string {
	name := strings.TrimSpace(requested)
	if name == "" && id != nil {
		name = strings.TrimSpace(id.DisplayName)
	}
	if name == "" {
		name = "Player-" + actorID[:4]
	}
	if r := []rune(name); len(r) > 32 {
		name = string(r[:32])
	}
	return name
}
