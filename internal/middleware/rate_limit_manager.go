package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitManager keeps per-client limiters for general API traffic and
// for document transfers (export and import), and evicts idle clients.
type RateLimitManager struct {
	visitors           map[string]*visitor
	visitorsMu         sync.Mutex
	transferVisitors   map[string]*visitor
	transferVisitorsMu sync.Mutex
	ctx                context.Context
	cancel             context.CancelFunc
	wg                 sync.WaitGroup
}

// NewRateLimitManager starts the eviction loop; it stops when ctx is done
// or Shutdown is called.
func NewRateLimitManager(ctx context.Context) *RateLimitManager {
	managerCtx, cancel := context.WithCancel(ctx)

	m := &RateLimitManager{
		visitors:         make(map[string]*visitor),
		transferVisitors: make(map[string]*visitor),
		ctx:              managerCtx,
		cancel:           cancel,
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m
}

// GetVisitor returns the general limiter for ip, or nil when limiting is off.
func (m *RateLimitManager) GetVisitor(ip string, requestsPerWindow, windowSeconds, burst int) *rate.Limiter {
	m.visitorsMu.Lock()
	defer m.visitorsMu.Unlock()
	return getOrCreate(m.visitors, ip, requestsPerWindow, windowSeconds, burst)
}

// GetTransferLimiter returns the export/import limiter for ip.
func (m *RateLimitManager) GetTransferLimiter(ip string, requestsPerWindow, windowSeconds int) *rate.Limiter {
	m.transferVisitorsMu.Lock()
	defer m.transferVisitorsMu.Unlock()
	return getOrCreate(m.transferVisitors, ip, requestsPerWindow, windowSeconds, requestsPerWindow)
}

func getOrCreate(visitors map[string]*visitor, ip string, requestsPerWindow, windowSeconds, burst int) *rate.Limiter {
	if requestsPerWindow <= 0 {
		return nil
	}

	if v, exists := visitors[ip]; exists {
		v.lastSeen = time.Now()
		return v.limiter
	}

	if windowSeconds <= 0 {
		windowSeconds = 60
	}
	limit := rate.Limit(float64(requestsPerWindow) / float64(windowSeconds))
	if burst < requestsPerWindow {
		burst = requestsPerWindow
	}

	limiter := rate.NewLimiter(limit, burst)
	visitors[ip] = &visitor{limiter: limiter, lastSeen: time.Now()}
	return limiter
}

func (m *RateLimitManager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.cleanup(time.Now())
		}
	}
}

func (m *RateLimitManager) cleanup(now time.Time) {
	m.visitorsMu.Lock()
	evictIdle(m.visitors, now, 3*time.Minute)
	m.visitorsMu.Unlock()

	m.transferVisitorsMu.Lock()
	evictIdle(m.transferVisitors, now, 10*time.Minute)
	m.transferVisitorsMu.Unlock()
}

func evictIdle(visitors map[string]*visitor, now time.Time, idle time.Duration) {
	for ip, v := range visitors {
		if now.Sub(v.lastSeen) > idle {
			delete(visitors, ip)
		}
	}
}

// Shutdown stops the eviction loop and waits for it to finish.
func (m *RateLimitManager) Shutdown() error {
	m.cancel()
	m.wg.Wait()
	return nil
}
