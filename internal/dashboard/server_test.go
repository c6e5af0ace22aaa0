package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/switchboardhq/switchboard/internal/delivery"
	"github.com/switchboardhq/switchboard/internal/models"
)

func TestStart_NilDB(t *testing.T) {
	err := Start(context.Background(), StartOpts{DB: nil})
	if err == nil {
		t.Fatal("expected error for nil db")
	}
	if !strings.Contains(err.Error(), "db is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db is required")
	}
}

// findFreePort finds an available port for testing.
func findFreePort() int {
	// Use a high port range unlikely to conflict.
	return 18787 + int(time.Now().UnixNano()%1000)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Notification{}, &models.DeliveryLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func setupTestServer(t *testing.T, db *gorm.DB) (string, func()) {
	t.Helper()
	port := findFreePort()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- Start(ctx, StartOpts{
			DB:    db,
			State: func() delivery.Snapshot { return delivery.Snapshot{Delivered: 7} },
			Port:  port,
		})
	}()

	baseURL := fmt.Sprintf("http://localhost:%d", port)
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	return baseURL, func() {
		cancel()
		<-errCh
	}
}

func TestHealthz(t *testing.T) {
	baseURL, cleanup := setupTestServer(t, openTestDB(t))
	defer cleanup()

	resp, err := http.Get(baseURL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestStateEndpoint(t *testing.T) {
	db := openTestDB(t)
	db.Create(&models.Notification{AccountID: "acme", Type: models.NotifyMention,
		RecipientType: models.RecipientAgent, RecipientID: "a1", Status: models.NotificationPending})

	baseURL, cleanup := setupTestServer(t, db)
	defer cleanup()

	resp, err := http.Get(baseURL + "/api/state")
	if err != nil {
		t.Fatalf("GET /api/state: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Delivery delivery.Snapshot `json:"delivery"`
		Pending  int64             `json:"pending"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Delivery.Delivered != 7 {
		t.Errorf("delivered = %d, want 7 (from injected state func)", body.Delivery.Delivered)
	}
	if body.Pending != 1 {
		t.Errorf("pending = %d, want 1", body.Pending)
	}
}

func TestNotificationsEndpoint_FiltersByStatus(t *testing.T) {
	db := openTestDB(t)
	db.Create(&models.Notification{AccountID: "acme", Type: models.NotifyMention,
		RecipientType: models.RecipientAgent, RecipientID: "a1", Status: models.NotificationPending})
	db.Create(&models.Notification{AccountID: "acme", Type: models.NotifyMention,
		RecipientType: models.RecipientAgent, RecipientID: "a2", Status: models.NotificationDelivered})

	baseURL, cleanup := setupTestServer(t, db)
	defer cleanup()

	resp, err := http.Get(baseURL + "/api/notifications?status=pending")
	if err != nil {
		t.Fatalf("GET /api/notifications: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Notifications []models.Notification `json:"notifications"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Notifications) != 1 || body.Notifications[0].RecipientID != "a1" {
		t.Errorf("notifications = %+v", body.Notifications)
	}
}

func TestDeliveriesEndpoint(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 3; i++ {
		db.Create(&models.DeliveryLog{NotificationID: uint(i + 1), AgentID: "a1",
			SessionKey: "agent:a1:main", Outcome: "delivered"})
	}

	baseURL, cleanup := setupTestServer(t, db)
	defer cleanup()

	resp, err := http.Get(baseURL + "/api/deliveries?limit=2")
	if err != nil {
		t.Fatalf("GET /api/deliveries: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Deliveries []models.DeliveryLog `json:"deliveries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Deliveries) != 2 {
		t.Fatalf("deliveries = %d, want 2 (limit applied)", len(body.Deliveries))
	}
	if body.Deliveries[0].NotificationID != 3 {
		t.Errorf("first entry = %+v, want newest first", body.Deliveries[0])
	}
}

func TestSSEEndpoint_Headers(t *testing.T) {
	baseURL, cleanup := setupTestServer(t, openTestDB(t))
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/events: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("content-type = %q, want text/event-stream", ct)
	}

	buf := make([]byte, 1024)
	n, _ := resp.Body.Read(buf)
	if !strings.Contains(string(buf[:n]), "connected") {
		t.Errorf("first event = %q, want connected", string(buf[:n]))
	}
}

func TestUnknownRoute_Returns404(t *testing.T) {
	baseURL, cleanup := setupTestServer(t, openTestDB(t))
	defer cleanup()

	resp, err := http.Get(baseURL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
