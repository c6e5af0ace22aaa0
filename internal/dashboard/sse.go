package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/switchboardhq/switchboard/internal/models"
)

// deliveryEvent holds data for a delivery SSE event.
type deliveryEvent struct {
	ID             uint   `json:"id"`
	NotificationID uint   `json:"notification_id"`
	AgentID        string `json:"agent_id"`
	SessionKey     string `json:"session_key"`
	Outcome        string `json:"outcome"`
	Detail         string `json:"detail,omitempty"`
}

// handleSSE streams new delivery log entries as they appear. The stream is
// poll-based: clients see each outcome within a few seconds of the attempt.
func handleSSE(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		if db == nil {
			return
		}

		// Only stream entries created after the client connected.
		var lastSeenID uint
		var latest models.DeliveryLog
		if err := db.Order("id DESC").Limit(1).First(&latest).Error; err == nil {
			lastSeenID = latest.ID
		}

		ctx := c.Request.Context()
		ticker := time.NewTicker(3 * time.Second)
		heartbeat := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				var entries []models.DeliveryLog
				db.Where("id > ?", lastSeenID).Order("id ASC").Find(&entries)
				if len(entries) == 0 {
					continue
				}
				lastSeenID = entries[len(entries)-1].ID

				for _, e := range entries {
					writeSSE(c.Writer, "delivery", deliveryEvent{
						ID:             e.ID,
						NotificationID: e.NotificationID,
						AgentID:        e.AgentID,
						SessionKey:     e.SessionKey,
						Outcome:        e.Outcome,
						Detail:         e.Detail,
					})
				}
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
