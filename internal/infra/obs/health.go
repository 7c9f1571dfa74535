package obs

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandlers exposes endpoints for liveness and readiness checks.
type HealthHandlers struct {
	Ready func() error
}

func (h HealthHandlers) Livez(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h HealthHandlers) Readyz(c *gin.Context) {
	if h.Ready != nil {
		if err := h.Ready(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Pinger is satisfied by the mongo and redis clients.
type Pinger func(ctx context.Context) error

// ReadyCheck combines pings into a Ready func with a shared timeout.
func ReadyCheck(timeout time.Duration, pings ...Pinger) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		for _, ping := range pings {
			if ping == nil {
				continue
			}
			if err := ping(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}
