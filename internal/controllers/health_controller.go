package controllers

import (
	"context"
	"fmt"
	"net/http"
	"roverchat/internal/poll/interfaces"
	"roverchat/internal/realtime"
	"roverchat/internal/storage"
	"time"

	json "github.com/goccy/go-json"
)

const healthPingTimeout = 2 * time.Second

type HealthController struct {
	eventLog  storage.EventLogInterface
	registry  realtime.RegistryInterface
	poll      interfaces.EngineInterface
	startTime time.Time
}

type healthResponse struct {
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Connections   int     `json:"connections"`
	Database      string  `json:"database"`
	PollActive    bool    `json:"poll_active"`
	PollSession   int64   `json:"poll_session"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	uptime := time.Since(hc.startTime)
	state := hc.poll.State()
	resp := healthResponse{
		Status:        "ok",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		Connections:   hc.registry.Count(),
		Database:      "ok",
		PollActive:    state.Active,
		PollSession:   state.Session,
	}

	status := http.StatusOK
	if err := hc.eventLog.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = err.Error()
		status = http.StatusServiceUnavailable
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(eventLog storage.EventLogInterface, registry realtime.RegistryInterface, poll interfaces.EngineInterface) *HealthController {
	return &HealthController{
		eventLog:  eventLog,
		registry:  registry,
		poll:      poll,
		startTime: time.Now(),
	}
}
