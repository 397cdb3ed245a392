package rest

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"
)

const apiVersion = "1.0.0"

// Pinger reports whether the credential store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthHandler struct {
	store       Pinger
	environment string
	startedAt   time.Time
}

func (h *healthHandler) database(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}

func (h *healthHandler) status(db string) (string, int) {
	if db == "connected" {
		return "OK", http.StatusOK
	}
	return "ERROR", http.StatusServiceUnavailable
}

func (h *healthHandler) health(w http.ResponseWriter, r *http.Request) {
	db := h.database(r.Context())
	status, code := h.status(db)

	writeJSON(w, code, map[string]any{
		"status":      status,
		"timestamp":   time.Now().UTC(),
		"uptime":      time.Since(h.startedAt).Seconds(),
		"environment": h.environment,
		"version":     apiVersion,
		"services":    map[string]string{"database": db, "server": "running"},
	})
}

func (h *healthHandler) detailed(w http.ResponseWriter, r *http.Request) {
	db := h.database(r.Context())
	status, code := h.status(db)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	uptime := time.Since(h.startedAt)

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"uptime": map[string]any{
			"seconds":  uptime.Seconds(),
			"readable": formatUptime(uptime),
		},
		"environment": h.environment,
		"version":     apiVersion,
		"go":          runtime.Version(),
		"platform":    runtime.GOOS,
		"arch":        runtime.GOARCH,
		"goroutines":  runtime.NumGoroutine(),
		"services":    map[string]string{"database": db, "server": "running"},
		"memory": map[string]float64{
			"heapAlloc": megabytes(mem.HeapAlloc),
			"heapSys":   megabytes(mem.HeapSys),
			"sys":       megabytes(mem.Sys),
		},
	})
}

func (h *healthHandler) root(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"message":   "WEB TOZ API",
		"version":   apiVersion,
		"status":    "running",
		"timestamp": time.Now().UTC(),
	}
	if u := UserFromContext(r.Context()); u != nil {
		body["user"] = map[string]any{"id": u.ID, "role": u.Role}
	}
	writeJSON(w, http.StatusOK, body)
}

func megabytes(b uint64) float64 {
	return float64(b*100/(1<<20)) / 100
}

func formatUptime(d time.Duration) string {
	s := int64(d.Seconds())
	return fmt.Sprintf("%dd %dh %dm %ds", s/86400, s%86400/3600, s%3600/60, s%60)
}
