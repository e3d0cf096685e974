package finance

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"varRiskBot/internal/risk"
)

const chartCacheTTL = 60 * time.Second

// Chart image cache entry
type chartCacheEntry struct {
	createdAt time.Time
	image     []byte
}

// ChartCache keeps rendered PNGs for a short TTL so repeated requests for the
// same calculation do not re-render.
type ChartCache struct {
	mu      sync.Mutex
	entries map[string]chartCacheEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewChartCache(ttl time.Duration) *ChartCache {
	if ttl <= 0 {
		ttl = chartCacheTTL
	}
	return &ChartCache{entries: map[string]chartCacheEntry{}, ttl: ttl, now: time.Now}
}

func (c *ChartCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.createdAt.Add(c.ttl)) {
		delete(c.entries, key)
		return nil, false
	}
	img := make([]byte, len(entry.image))
	copy(img, entry.image)
	return img, true
}

// set stores img under key and drops every expired entry.
func (c *ChartCache) set(key string, img []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.createdAt.Add(c.ttl)) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = chartCacheEntry{createdAt: now, image: img}
}

// ChartKey identifies the charts of a calculation by what was asked for, so
// the same request within the TTL reuses the rendered images.
func ChartKey(req risk.Request) string {
	p := req.EffectivePortfolio()
	var b strings.Builder
	fmt.Fprintf(&b, "%s|", p.Basis)
	for _, h := range p.Holdings {
		fmt.Fprintf(&b, "%s:%g,", h.Symbol, h.Amount)
	}
	fmt.Fprintf(&b, "|%s|%s|w%d|c%g|v%g",
		formatKeyDate(req.Start), formatKeyDate(req.End), req.Window, req.Confidence, req.PortfolioValue)
	if req.MonteCarlo {
		fmt.Fprintf(&b, "|mc%d", req.Simulations)
		if req.Seed != nil {
			fmt.Fprintf(&b, "|s%d", *req.Seed)
		}
	}
	return b.String()
}

func formatKeyDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.DateOnly)
}

// render returns the cached image for key or calls fn and caches its result.
// A nil cache always renders.
func (c *ChartCache) render(key string, fn func() ([]byte, error)) ([]byte, error) {
	if c == nil {
		return fn()
	}
	if img, ok := c.get(key); ok {
		return img, nil
	}
	img, err := fn()
	if err != nil {
		return nil, err
	}
	c.set(key, img)
	return img, nil
}
