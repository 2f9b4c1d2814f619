package handlers

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/testdesk/internal/models"
	"github.com/huangang/testdesk/internal/services"
	"gorm.io/gorm"
)

// MetricsHandler renders gauges in the Prometheus text format.
type MetricsHandler struct {
	db        *gorm.DB
	queue     services.TaskQueue
	startTime time.Time
}

func NewMetricsHandler(db *gorm.DB, queue services.TaskQueue) *MetricsHandler {
	return &MetricsHandler{db: db, queue: queue, startTime: time.Now()}
}

// Metrics returns Prometheus-compatible text format metrics.
// GET /metrics
func (h *MetricsHandler) Metrics(c *gin.Context) {
	var b strings.Builder

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeGauge(&b, "testdesk_uptime_seconds", "Time since server start in seconds", time.Since(h.startTime).Seconds())
	writeGauge(&b, "testdesk_goroutines", "Number of active goroutines", float64(runtime.NumGoroutine()))
	writeGauge(&b, "testdesk_memory_alloc_bytes", "Current heap allocation in bytes", float64(m.Alloc))
	writeGauge(&b, "testdesk_gc_runs_total", "Total number of GC runs", float64(m.NumGC))

	if sqlDB, err := h.db.DB(); err == nil {
		stats := sqlDB.Stats()
		writeGauge(&b, "testdesk_db_open_connections", "Number of open DB connections", float64(stats.OpenConnections))
		writeGauge(&b, "testdesk_db_in_use_connections", "Number of in-use DB connections", float64(stats.InUse))
		writeGauge(&b, "testdesk_db_idle_connections", "Number of idle DB connections", float64(stats.Idle))
	}

	queueAsync := 0.0
	if h.queue != nil && h.queue.IsAsync() {
		queueAsync = 1.0
	}
	writeGauge(&b, "testdesk_queue_async_enabled", "Whether async queue (Redis) is enabled (1=yes, 0=no)", queueAsync)

	db := h.db.WithContext(c.Request.Context())
	live := []struct {
		name, help string
		model      interface{}
	}{
		{"testdesk_projects_total", "Number of live projects", &models.Project{}},
		{"testdesk_requirements_total", "Number of live requirements", &models.Requirement{}},
		{"testdesk_test_plans_total", "Number of live test plans", &models.TestPlan{}},
		{"testdesk_documents_total", "Number of live documents", &models.Document{}},
		{"testdesk_comments_total", "Number of live comments", &models.Comment{}},
	}
	for _, g := range live {
		var n int64
		if err := db.Model(g.model).Count(&n).Error; err == nil {
			writeGauge(&b, g.name, g.help, float64(n))
		}
	}

	var activeUsers, pendingInvites int64
	if err := db.Model(&models.User{}).Where("is_active = ?", true).Count(&activeUsers).Error; err == nil {
		writeGauge(&b, "testdesk_users_active", "Number of active users", float64(activeUsers))
	}
	if err := db.Model(&models.ProjectMember{}).Where("is_verified = ?", false).Count(&pendingInvites).Error; err == nil {
		writeGauge(&b, "testdesk_invitations_pending", "Memberships waiting for the tester to accept", float64(pendingInvites))
	}

	c.Data(200, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %g\n\n", name, value)
}
