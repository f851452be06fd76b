package app

import (
	"net/http"
	"sync"
	"time"

	"github.com/ItsBrandon78/careerheap.com-sub001/app/models"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a per-process fixed-window counter keyed by
// (namespace, identifier). It is coarse abuse mitigation only and is not
// shared across horizontally scaled instances.
type RateLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	buckets map[string]*rateBucket
	stop    chan struct{}
	now     func() time.Time
}

type rateBucket struct {
	count   int
	resetAt time.Time
}

// NewRateLimiter builds a limiter and starts its eviction sweep. Entries
// whose window has elapsed are dropped each sweep so the map stays bounded.
func NewRateLimiter(max int, window, sweepEvery time.Duration) *RateLimiter {
	rl := &RateLimiter{
		max:     max,
		window:  window,
		buckets: map[string]*rateBucket{},
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	go rl.sweep(sweepEvery)
	return rl
}

// Allow records one hit for the identifier and reports whether it is still
// under the limit. The count resets to 1 once the window has elapsed.
func (rl *RateLimiter) Allow(namespace, id string) bool {
	key := namespace + ":" + id
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok || now.After(b.resetAt) {
		rl.buckets[key] = &rateBucket{count: 1, resetAt: now.Add(rl.window)}
		return true
	}
	b.count++
	return b.count <= rl.max
}

func (rl *RateLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.evictExpired(now)
		}
	}
}

func (rl *RateLimiter) evictExpired(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, b := range rl.buckets {
		if now.After(b.resetAt) {
			delete(rl.buckets, key)
		}
	}
}

// Close stops the eviction sweep.
func (rl *RateLimiter) Close() {
	close(rl.stop)
}

// limitRequest applies the limiter to one request. Authenticated actors get
// their own bucket; anonymous traffic is keyed by client IP so a client that
// refuses cookies cannot mint a fresh bucket on every request.
func limitRequest(c *gin.Context, rl *RateLimiter, namespace string, actor Actor) bool {
	id := c.ClientIP()
	if actor.Authenticated {
		id = actor.ID
	}
	if rl.Allow(namespace, id) {
		return true
	}
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": models.ErrRateLimited})
	return false
}
