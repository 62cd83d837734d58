package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypeImageAdded, Data: map[string]string{"name": "a.txt"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: image.added") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"name":"a.txt"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func drain(ch chan []byte) []string {
	time.Sleep(50 * time.Millisecond)
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestPublishDocumentEvent_IndexThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First event should trigger index.updated.
	b.PublishDocumentEvent(KindSaved, "a.txt")
	// Second event immediately should NOT trigger another index.updated.
	b.PublishDocumentEvent(KindDeleted, "b.txt")

	indexCount := 0
	var docEvents []string
	for _, s := range drain(ch) {
		if strings.Contains(s, TypeIndexUpdated) {
			indexCount++
		} else {
			docEvents = append(docEvents, s)
		}
	}

	if len(docEvents) != 2 {
		t.Fatalf("document events = %d, want 2", len(docEvents))
	}
	if !strings.Contains(docEvents[0], "event: document.saved") || !strings.Contains(docEvents[1], "event: document.deleted") {
		t.Errorf("events = %q", docEvents)
	}
	if indexCount != 1 {
		t.Errorf("index events = %d, want 1 (throttled)", indexCount)
	}
}

func TestPublishDocumentEvent_WatcherKindsAndUnknown(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishDocumentEvent("renamed", "x.txt")
	b.PublishDocumentEvent(KindCreated, "y.txt")

	msgs := drain(ch)
	if len(msgs) != 2 {
		t.Fatalf("messages = %q", msgs)
	}
	if !strings.Contains(msgs[0], "event: document.saved") || !strings.Contains(msgs[0], `"name":"y.txt"`) {
		t.Errorf("first = %q", msgs[0])
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: TypeDocumentsCleared, Data: map[string]int{"deleted": 3}})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: documents.cleared") || !strings.Contains(body, `"deleted":3`) {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: TypeImageDeleted, Data: map[string]string{"id": "x"}})
	b.PublishDocumentEvent(KindSaved, "x.txt")
}

func TestEventIDsIncrease(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypeImageAdded, Data: map[string]string{}})
	b.Publish(Event{Type: TypeImageDeleted, Data: map[string]string{}})

	for _, want := range []string{"id: 1\n", "id: 2\n"} {
		select {
		case msg := <-ch:
			if !strings.HasPrefix(string(msg), want) {
				t.Errorf("message %q does not start with %q", msg, want)
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for message")
		}
	}
}
