package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"airmon-cloud/internal/eventing/eventbus"
	"airmon-cloud/internal/telemetry/application/events"
	telemetry "airmon-cloud/internal/telemetry/domain"
)

func TestBroker_TopicFiltering(t *testing.T) {
	broker := NewBroker()
	onA := broker.Subscribe([]string{"st-a"})
	onAll := broker.Subscribe(nil)
	defer broker.Unsubscribe(onA)
	defer broker.Unsubscribe(onAll)

	broker.Publish("st-a", []byte("a1"))
	broker.Publish("st-b", []byte("b1"))

	if got := string(<-onA); got != "a1" {
		t.Fatalf("station subscriber got %q, want a1", got)
	}
	select {
	case extra := <-onA:
		t.Fatalf("station subscriber received foreign payload %q", extra)
	default:
	}

	if got := string(<-onAll); got != "a1" {
		t.Fatalf("wildcard subscriber got %q, want a1", got)
	}
	if got := string(<-onAll); got != "b1" {
		t.Fatalf("wildcard subscriber got %q, want b1", got)
	}
}

func TestBroker_SlowSubscriberSkipped(t *testing.T) {
	broker := NewBroker()
	ch := broker.Subscribe([]string{"st-a"})
	defer broker.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer+5; i++ {
			broker.Publish("st-a", []byte("x"))
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber buffer")
	}
	if got := len(ch); got != subscriberBuffer {
		t.Fatalf("buffered payloads = %d, want %d", got, subscriberBuffer)
	}
}

func TestBroker_UnsubscribeClosesChannel(t *testing.T) {
	broker := NewBroker()
	ch := broker.Subscribe(nil)
	broker.Unsubscribe(ch)
	if _, open := <-ch; open {
		t.Fatal("channel still open after unsubscribe")
	}
	// Double unsubscribe must not panic on a closed channel.
	broker.Unsubscribe(ch)
	broker.Publish("st-a", []byte("late"))
}

func TestBroker_ConcurrentPublishAndUnsubscribe(t *testing.T) {
	broker := NewBroker()

	stop := make(chan struct{})
	var publishers sync.WaitGroup
	for i := 0; i < 4; i++ {
		publishers.Add(1)
		go func() {
			defer publishers.Done()
			for {
				select {
				case <-stop:
					return
				default:
					broker.Publish("st-a", []byte("x"))
				}
			}
		}()
	}

	// Churn subscribers while publishes are in flight. A send racing a
	// close would panic one of the publisher goroutines.
	for i := 0; i < 2000; i++ {
		ch := broker.Subscribe([]string{"st-a"})
		broker.Unsubscribe(ch)
	}
	close(stop)
	publishers.Wait()
}

func TestConsumer_PublishesReceivedReadings(t *testing.T) {
	broker := NewBroker()
	consumer, err := NewConsumer(broker, nil)
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	bus := eventbus.NewBus()
	consumer.Register(bus)

	ch := broker.Subscribe([]string{"st-a"})
	defer broker.Unsubscribe(ch)

	temp := 19.5
	event := events.TelemetryReceived{
		StationID: "st-a",
		Reading: telemetry.Reading{
			ID:        "rd-1",
			StationID: "st-a",
			Timestamp: time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC),
			Fields:    telemetry.Fields{Temp: &temp},
		},
		ReceivedAt: time.Date(2026, time.March, 15, 12, 0, 1, 0, time.UTC),
	}
	if err := eventbus.Publish(context.Background(), bus, events.TopicTelemetryReceived, event); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	var update struct {
		StationID string `json:"stationId"`
		Reading   struct {
			Temp *float64 `json:"temp"`
		} `json:"reading"`
	}
	select {
	case payload := <-ch:
		if err := json.Unmarshal(payload, &update); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("no payload delivered")
	}
	if update.StationID != "st-a" {
		t.Fatalf("stationId = %q, want st-a", update.StationID)
	}
	if update.Reading.Temp == nil || *update.Reading.Temp != 19.5 {
		t.Fatalf("reading temp = %v, want 19.5", update.Reading.Temp)
	}
}

// streamRecorder is a goroutine-safe ResponseWriter with flush support.
type streamRecorder struct {
	header http.Header
	mu     sync.Mutex
	buf    bytes.Buffer
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{header: make(http.Header)}
}

func (r *streamRecorder) Header() http.Header { return r.header }
func (r *streamRecorder) WriteHeader(int)     {}
func (r *streamRecorder) Flush()              {}

func (r *streamRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(p)
}

func (r *streamRecorder) snapshot() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

func TestStreamHandler_DeliversEvents(t *testing.T) {
	broker := NewBroker()
	handler := NewStreamHandler(broker)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream?station=st-a", nil).WithContext(ctx)
	rec := newStreamRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(rec, req)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(rec.snapshot(), "event: sensor-data-updated") {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("no event frame written, body: %q", rec.snapshot())
		}
		broker.Publish("st-a", []byte(`{"stationId":"st-a"}`))
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not exit on context cancel")
	}

	body := rec.snapshot()
	if !strings.Contains(body, "event: ready") {
		t.Fatalf("missing ready frame in %q", body)
	}
	if !strings.Contains(body, `data: {"stationId":"st-a"}`) {
		t.Fatalf("missing data frame in %q", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q, want text/event-stream", ct)
	}
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	handler := NewStreamHandler(NewBroker())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/stream", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
