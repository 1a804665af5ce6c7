package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

const readinessTimeout = 2 * time.Second

// HealthHandler reports process liveness and invoice store readiness.
type HealthHandler struct {
	db      *sqlx.DB
	driver  string
	started time.Time
}

// NewHealthHandler creates a HealthHandler for the store reached through db.
func NewHealthHandler(db *sqlx.DB, driver string) *HealthHandler {
	return &HealthHandler{db: db, driver: driver, started: time.Now()}
}

// Liveness handles GET /health and GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"service":        "invoicescan",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}

// Readiness handles GET /readyz. The store is ready once it answers and the
// invoices table exists.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	checks := gin.H{"database": "ok", "schema": "ok"}
	status := http.StatusOK
	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = "unreachable"
		checks["schema"] = "unknown"
		status = http.StatusServiceUnavailable
	} else if err := h.schemaReady(ctx); err != nil {
		checks["schema"] = "not migrated"
		status = http.StatusServiceUnavailable
	}

	body := gin.H{"status": "ready", "driver": h.driver, "checks": checks}
	if status != http.StatusOK {
		body["status"] = "unavailable"
	}
	c.JSON(status, body)
}

func (h *HealthHandler) schemaReady(ctx context.Context) error {
	var one int
	err := h.db.QueryRowxContext(ctx, "SELECT 1 FROM invoices LIMIT 1").Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}
