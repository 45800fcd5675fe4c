package handlers

import (
	"context"
	"net/http"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type BrokerStatus interface {
	Healthy() bool
}

type HealthHandler struct {
	DB        Pinger
	Broker    BrokerStatus
	Adapters  []string
	Version   string
	StartTime time.Time
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Adapters     []string          `json:"adapters"`
	Dependencies map[string]string `json:"dependencies"`
}

func NewHealthHandler(db Pinger, broker BrokerStatus, adapters []string, version string) *HealthHandler {
	return &HealthHandler{
		DB:        db,
		Broker:    broker,
		Adapters:  adapters,
		Version:   version,
		StartTime: time.Now(),
	}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	deps := make(map[string]string)
	status := "healthy"

	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.Ping(ctx); err != nil {
			deps["database"] = "unhealthy: " + err.Error()
			status = "degraded"
		} else {
			deps["database"] = "healthy"
		}
	} else {
		deps["database"] = "not configured"
	}

	if h.Broker != nil {
		if h.Broker.Healthy() {
			deps["rabbitmq"] = "healthy"
		} else {
			deps["rabbitmq"] = "unhealthy: connection closed"
			status = "degraded"
		}
	} else {
		deps["rabbitmq"] = "not configured"
	}

	response := HealthResponse{
		Status:       status,
		Version:      h.Version,
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Adapters:     h.Adapters,
		Dependencies: deps,
	}

	code := http.StatusOK
	if status == "degraded" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, response)
}
