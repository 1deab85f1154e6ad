package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics collects basic application counters exposed as JSON.
type Metrics struct {
	wsConnections atomic.Int64
	activeMatches atomic.Int64
	totalMatches  atomic.Int64
	totalKills    atomic.Int64
	totalPayouts  atomic.Int64
	startTime     time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

func (m *Metrics) IncrWSConn()            { m.wsConnections.Add(1) }
func (m *Metrics) DecrWSConn()            { m.wsConnections.Add(-1) }
func (m *Metrics) IncrMatches()           { m.activeMatches.Add(1); m.totalMatches.Add(1) }
func (m *Metrics) DecrMatches()           { m.activeMatches.Add(-1) }
func (m *Metrics) IncrKills()             { m.totalKills.Add(1) }
func (m *Metrics) AddPayout(amount int64) { m.totalPayouts.Add(amount) }

// ServeHTTP exposes metrics as JSON at /metrics.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	data := map[string]any{
		"uptime_seconds": int(time.Since(m.startTime).Seconds()),
		"ws_connections": m.wsConnections.Load(),
		"active_matches": m.activeMatches.Load(),
		"total_matches":  m.totalMatches.Load(),
		"total_kills":    m.totalKills.Load(),
		"total_payouts":  m.totalPayouts.Load(),
		"goroutines":     runtime.NumGoroutine(),
		"heap_alloc_mb":  mem.HeapAlloc / 1024 / 1024,
		"sys_mb":         mem.Sys / 1024 / 1024,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
}
