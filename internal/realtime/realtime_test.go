package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/clinigo/platform/internal/events"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?doctor_id=doc-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// The registration races the dial return; wait for it.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectionCount("doc-1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Broadcast("doc-1", events.QueuePayload{QueueID: "q-1", DoctorID: "doc-1", Kind: "insert"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(data), `"kind":"insert"`) {
		t.Errorf("unexpected message: %s", data)
	}
}

func TestHubRequiresDoctorID(t *testing.T) {
	hub := NewHub(nil, nil)
	rec := httptest.NewRecorder()
	hub.ServeWS(rec, httptest.NewRequest(http.MethodGet, "/api/checkin/queue/ws", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPublisherBridgeRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	hub := NewHub(nil, nil)
	bridge := NewBridge(client, hub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = bridge.Run(ctx) }()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?doctor_id=doc-9"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectionCount("doc-9") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	pub := NewPublisher(client)
	// The PSubscribe may not be live yet; retry the publish briefly.
	var got []byte
	for attempt := 0; attempt < 20 && got == nil; attempt++ {
		if err := pub.PublishQueueEvent(ctx, "doc-9", events.QueuePayload{QueueID: "q-7", DoctorID: "doc-9", Kind: "update"}); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		if _, data, err := conn.ReadMessage(); err == nil {
			got = data
		}
	}
	if got == nil {
		t.Fatal("no message relayed through the bridge")
	}
	if !strings.Contains(string(got), `"queue_id":"q-7"`) {
		t.Errorf("unexpected message: %s", got)
	}
}

func TestRefresherCoalescesTriggers(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	r := NewRefresher(func(ctx context.Context) error {
		calls.Add(1)
		<-release
		return nil
	}, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	if !r.Trigger("event") {
		t.Fatal("first trigger should be accepted")
	}

	// Wait for the refresh to start, then hammer it while busy.
	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("refresh never started")
		}
		time.Sleep(5 * time.Millisecond)
	}
	for i := 0; i < 10; i++ {
		if r.Trigger("manual") {
			t.Fatal("triggers during a running refresh must be dropped")
		}
	}
	close(release)

	time.Sleep(50 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 refresh, got %d", got)
	}
}
