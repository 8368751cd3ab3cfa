package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check pings one dependency; nil means healthy.
type Check func(ctx context.Context) error

type HealthHandler struct {
	checks       map[string]Check
	shuttingDown func() bool
}

// NewHealthHandler takes the dependencies /readyz should ping, keyed by name.
// Nil checks are skipped so optional deps (redis) can be passed unconditionally.
func NewHealthHandler(checks map[string]Check) *HealthHandler {
	live := make(map[string]Check, len(checks))
	for name, c := range checks {
		if c != nil {
			live[name] = c
		}
	}
	return &HealthHandler{checks: live}
}

// WithShutdownSignal makes /readyz fail once shuttingDown reports true, so load
// balancers stop routing before the server closes.
func (h *HealthHandler) WithShutdownSignal(shuttingDown func() bool) *HealthHandler {
	h.shuttingDown = shuttingDown
	return h
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.shuttingDown != nil && h.shuttingDown() {
		RespondServiceUnavailable(ctx, "Shutting down", nil)
		return
	}

	failed := gin.H{}

	for name, check := range h.checks {
		cctx, cancel := context.WithTimeout(ctx.Request.Context(), 1*time.Second)
		err := check(cctx)
		cancel()

		if err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		RespondServiceUnavailable(ctx, "Dependencies unavailable", failed)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
