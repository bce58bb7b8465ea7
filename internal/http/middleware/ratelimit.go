package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type clientInfo struct {
	last  time.Time
	count int
}

// memoryWindow is the in-process fixed window used when Redis is absent.
type memoryWindow struct {
	mu      sync.Mutex
	clients map[string]*clientInfo
	now     func() time.Time
}

func newMemoryWindow() *memoryWindow {
	return &memoryWindow{clients: make(map[string]*clientInfo), now: time.Now}
}

// hit counts one request for key and returns the count inside the window.
func (m *memoryWindow) hit(key string, window time.Duration) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	ci, ok := m.clients[key]
	if !ok || now.Sub(ci.last) > window {
		m.clients[key] = &clientInfo{last: now, count: 1}
		m.sweep(now, window)
		return 1
	}
	ci.count++
	return int64(ci.count)
}

// sweep drops expired windows so the map does not grow with every IP seen.
func (m *memoryWindow) sweep(now time.Time, window time.Duration) {
	if len(m.clients) < 1024 {
		return
	}
	for k, ci := range m.clients {
		if now.Sub(ci.last) > window {
			delete(m.clients, k)
		}
	}
}

// SimpleRateLimit blocks clients that send more than maxRequests per window
func SimpleRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	mw := newMemoryWindow()
	return func(c *gin.Context) {
		if mw.hit(c.ClientIP(), window) > int64(maxRequests) {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
