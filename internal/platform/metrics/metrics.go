package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector keeps cheap in-process counters exposed on /metrics. It is not a
// metrics pipeline; scraping and retention live outside the service.
type Collector struct {
	start time.Time

	requestsTotal  atomic.Int64
	requestsFailed atomic.Int64

	mu       sync.Mutex
	byRoute  map[string]int64
	byStatus map[int]int64
}

func NewCollector() *Collector {
	return &Collector{
		start:    time.Now(),
		byRoute:  map[string]int64{},
		byStatus: map[int]int64{},
	}
}

func (c *Collector) Observe(route string, status int) {
	c.requestsTotal.Add(1)
	if status >= 500 {
		c.requestsFailed.Add(1)
	}
	c.mu.Lock()
	c.byRoute[route]++
	c.byStatus[status]++
	c.mu.Unlock()
}

func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		byRoute := make(map[string]int64, len(c.byRoute))
		for k, v := range c.byRoute {
			byRoute[k] = v
		}
		byStatus := make(map[int]int64, len(c.byStatus))
		for k, v := range c.byStatus {
			byStatus[k] = v
		}
		c.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"uptimeSeconds":  int64(time.Since(c.start).Seconds()),
			"requestsTotal":  c.requestsTotal.Load(),
			"requestsFailed": c.requestsFailed.Load(),
			"byRoute":        byRoute,
			"byStatus":       byStatus,
		})
	}
}
