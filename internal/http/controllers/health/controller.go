// Package health expone el health check del servicio.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/weasl/internal/http/helpers"
	"github.com/dropDatabas3/weasl/internal/observability/logger"
)

// Pinger es lo que el health check necesita del store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Controller struct {
	store   Pinger
	version string
	timeout time.Duration
}

func NewController(store Pinger, version string) *Controller {
	return &Controller{store: store, version: version, timeout: 2 * time.Second}
}

type response struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Storage string `json:"storage"`
}

// Healthz maneja GET /healthz: 200 si el store responde, 503 si no.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()

	res := response{Status: "ok", Version: c.version, Storage: "ok"}
	status := http.StatusOK
	if err := c.store.Ping(ctx); err != nil {
		logger.From(ctx).Warn("health check: storage ping failed", logger.Err(err))
		res.Status, res.Storage = "unavailable", "down"
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, status, res)
}
