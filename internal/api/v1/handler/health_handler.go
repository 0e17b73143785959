package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	ledgerdomain "github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/ledger/domain"
	monitordomain "github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/monitor/domain"
	recoverydomain "github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/recovery/domain"
)

const actionTimeout = 30 * time.Second

// HealthProvider is the slice of the health monitor the handler exposes
type HealthProvider interface {
	GetStatus() monitordomain.HealthStatus
	GetDiagnostics(ctx context.Context) monitordomain.DiagnosticsReport
	Uptime() time.Duration
}

// RecoveryProvider exposes the coordinator's control actions
type RecoveryProvider interface {
	Recover(ctx context.Context) recoverydomain.RecoveryResult
	ForceCheck(ctx context.Context) monitordomain.HealthStatus
}

// ThrottleController exposes the ledger throttler's lock controls
type ThrottleController interface {
	SetOperationLock(operationType string, locked bool)
	Status() map[string]ledgerdomain.WindowStatus
}

// HealthHandler provides health check and recovery action endpoints
type HealthHandler struct {
	monitor   HealthProvider
	recovery  RecoveryProvider
	throttler ThrottleController
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(monitor HealthProvider, recovery RecoveryProvider, throttler ThrottleController) *HealthHandler {
	return &HealthHandler{
		monitor:   monitor,
		recovery:  recovery,
		throttler: throttler,
	}
}

// SetupRoutes registers handler routes to the router
func (h *HealthHandler) SetupRoutes(r *gin.Engine) {
	health := r.Group("/health")
	{
		health.GET("", h.healthCheck)
		health.GET("/detailed", h.detailedHealth)
		health.GET("/diagnostics", h.diagnostics)

		actions := health.Group("/actions")
		{
			actions.POST("/check", h.forceCheck)
			actions.POST("/recover", h.forceRecover)
			actions.POST("/throttle", h.setThrottleLock)
		}
	}
}

// healthCheck returns the last published snapshot without performing I/O.
// Safe to poll frequently.
func (h *HealthHandler) healthCheck(c *gin.Context) {
	status := h.monitor.GetStatus()

	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"healthy": status.Healthy,
		"services": gin.H{
			"store":  status.Store,
			"ledger": status.Ledger,
		},
		"timestamp": status.Timestamp,
	})
}

// detailedHealth returns the full snapshot plus uptime and the route map
func (h *HealthHandler) detailedHealth(c *gin.Context) {
	status := h.monitor.GetStatus()

	c.JSON(http.StatusOK, gin.H{
		"healthy":   status.Healthy,
		"store":     status.Store,
		"ledger":    status.Ledger,
		"timestamp": status.Timestamp,
		"uptime":    h.monitor.Uptime().String(),
		"routes": gin.H{
			"health":      "GET /health",
			"detailed":    "GET /health/detailed",
			"diagnostics": "GET /health/diagnostics",
			"check":       "POST /health/actions/check",
			"recover":     "POST /health/actions/recover",
			"throttle":    "POST /health/actions/throttle",
			"metrics":     "GET /metrics",
		},
	})
}

// diagnostics performs a fresh synchronous deep check of both services
func (h *HealthHandler) diagnostics(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), actionTimeout)
	defer cancel()

	report := h.monitor.GetDiagnostics(ctx)

	if err := ctx.Err(); err != nil {
		log.Printf("Error collecting diagnostics: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "diagnostics failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// forceCheck runs an immediate health check outside the periodic schedule.
// Returns 200 even when the probes find the services unhealthy: the action
// ran, the data reports the outcome.
func (h *HealthHandler) forceCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), actionTimeout)
	defer cancel()

	status := h.recovery.ForceCheck(ctx)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"store":   status.Store.Connected,
		"ledger":  status.Ledger.Connected,
		"status":  status,
	})
}

// forceRecover triggers a recovery attempt for any unhealthy service
func (h *HealthHandler) forceRecover(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), actionTimeout)
	defer cancel()

	result := h.recovery.Recover(ctx)

	c.JSON(http.StatusOK, gin.H{
		"success":  result.Store && result.Ledger,
		"recovery": result,
		"status":   h.monitor.GetStatus(),
	})
}

// setThrottleLock locks or unlocks one ledger operation type
func (h *HealthHandler) setThrottleLock(c *gin.Context) {
	var req struct {
		OperationType string `json:"operationType" binding:"required"`
		Locked        *bool  `json:"locked" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("invalid request format: %v", err),
		})
		return
	}

	h.throttler.SetOperationLock(req.OperationType, *req.Locked)

	verb := "unlocked"
	if *req.Locked {
		verb = "locked"
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         fmt.Sprintf("operation type %q %s", req.OperationType, verb),
		"throttlerStatus": h.throttler.Status(),
	})
}
