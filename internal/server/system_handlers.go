package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var startTime = time.Now()

type databaseHealth struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type systemStats struct {
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	MemoryPercent float64 `json:"memory_percent"`
	CPUPercent    float64 `json:"cpu_percent"`
	Goroutines    int     `json:"goroutines"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	EventClients  int     `json:"event_clients"`
}

type healthResponse struct {
	Status    string           `json:"status"`
	Version   string           `json:"version"`
	Databases []databaseHealth `json:"databases"`
	System    systemStats      `json:"system"`
}

// handleHealth reports overall service health: database connectivity plus
// host resource usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:  "ok",
		Version: Version,
		System:  collectSystemStats(s.events),
	}

	for _, db := range s.databases {
		health := databaseHealth{Name: db.Name(), Status: "ok"}
		if err := db.HealthCheck(ctx); err != nil {
			health.Status = "error"
			health.Error = err.Error()
			resp.Status = "degraded"
		}
		resp.Databases = append(resp.Databases, health)
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}

type databaseStats struct {
	Name         string `json:"name"`
	SizeBytes    int64  `json:"size_bytes"`
	WALSizeBytes int64  `json:"wal_size_bytes"`
	PageCount    int64  `json:"page_count"`
	PageSize     int64  `json:"page_size"`
}

// handleStats reports on-disk size and page stats per database.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	out := make([]databaseStats, 0, len(s.databases))
	for _, db := range s.databases {
		stats, err := db.GetStats()
		if err != nil {
			s.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to read database stats")
			continue
		}
		out = append(out, databaseStats{
			Name:         db.Name(),
			SizeBytes:    stats.SizeBytes,
			WALSizeBytes: stats.WALSizeBytes,
			PageCount:    stats.PageCount,
			PageSize:     stats.PageSize,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"databases": out})
}

// handleVersion reports the build version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"version": Version,
		"go":      runtime.Version(),
	})
}

func collectSystemStats(events *EventHub) systemStats {
	stats := systemStats{
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
	}
	if events != nil {
		stats.EventClients = events.SubscriberCount()
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemoryUsedMB = vm.Used / 1024 / 1024
		stats.MemoryPercent = vm.UsedPercent
	}

	// Non-blocking sample: percent since the last call.
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}

	return stats
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
