package dashboard

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/switchboardhq/switchboard/internal/delivery"
	"github.com/switchboardhq/switchboard/internal/models"
)

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB, state func() delivery.Snapshot) {
	router.GET("/healthz", handleHealth(db))
	router.GET("/api/state", handleState(db, state))
	router.GET("/api/notifications", handleNotifications(db))
	router.GET("/api/deliveries", handleDeliveries(db))
	router.GET("/api/events", handleSSE(db))
}

func handleHealth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// handleState reports the live scheduler counters plus the current queue depth.
func handleState(db *gorm.DB, state func() delivery.Snapshot) gin.HandlerFunc {
	return func(c *gin.Context) {
		var snap delivery.Snapshot
		if state != nil {
			snap = state()
		}

		var pending int64
		db.Model(&models.Notification{}).
			Where("status = ?", models.NotificationPending).
			Count(&pending)

		c.JSON(http.StatusOK, gin.H{
			"delivery": snap,
			"pending":  pending,
		})
	}
}

// handleNotifications lists notifications, newest first. Filterable by
// ?status= and bounded by ?limit= (default 50).
func handleNotifications(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := queryLimit(c, 50)

		q := db.Model(&models.Notification{}).Order("created_at DESC, id DESC").Limit(limit)
		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}

		var rows []models.Notification
		if err := q.Find(&rows).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"notifications": rows})
	}
}

// handleDeliveries lists recent delivery log entries, newest first.
func handleDeliveries(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := queryLimit(c, 50)

		var rows []models.DeliveryLog
		if err := db.Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deliveries": rows})
	}
}

func queryLimit(c *gin.Context, def int) int {
	limit := def
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	return limit
}
