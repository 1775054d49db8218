package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/signalrelay/authgate/api/transport"
	"github.com/signalrelay/authgate/internal/infrastructure/monitor"
	"github.com/signalrelay/authgate/pkg/httpcontext"
)

type HealthHandler struct {
	baseHandler
	monitor *monitor.Monitor
}

func NewHealthHandler(mon *monitor.Monitor, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
	}
}

// Check reports service health. The profile store being up is what decides
// ok versus degraded; the cache and journal are advisory detail.
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	services := map[string]interface{}{
		"store": status.Store,
		"redis": status.Redis,
		"journal": map[string]interface{}{
			"online": status.Journal,
			"size":   status.JournalSize,
		},
		"last_check": status.LastCheck.UTC().Format(time.RFC3339),
	}

	if status.Store {
		h.respondJSON(ctx, http.StatusOK, transport.HealthResponse{Status: "ok", Services: services})
		return
	}
	h.respondJSON(ctx, http.StatusServiceUnavailable, transport.HealthResponse{Status: "degraded", Services: services})
}
