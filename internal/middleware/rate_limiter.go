package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/isaqueitalo/restaurante-1.0/internal/apierror"

	"github.com/gin-gonic/gin"
)

// fixedWindow counts requests of one client within the current window.
type fixedWindow struct {
	count     int
	windowEnd time.Time
}

// RateLimiter allows limit requests per window and per client IP. Expired
// windows are dropped whenever the map grows past purgeAt entries.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	const purgeAt = 1024
	var (
		mu      sync.Mutex
		clients = make(map[string]*fixedWindow)
	)

	return func(c *gin.Context) {
		now := time.Now()
		ip := c.ClientIP()

		mu.Lock()
		if len(clients) >= purgeAt {
			for k, w := range clients {
				if now.After(w.windowEnd) {
					delete(clients, k)
				}
			}
		}
		w, ok := clients[ip]
		if !ok || now.After(w.windowEnd) {
			w = &fixedWindow{windowEnd: now.Add(window)}
			clients[ip] = w
		}
		w.count++
		exceeded := w.count > limit
		retryAfter := int(w.windowEnd.Sub(now).Seconds()) + 1
		mu.Unlock()

		if exceeded {
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("too many requests, try again shortly"))
			return
		}
		c.Next()
	}
}
