package realtime

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHubFanOut(t *testing.T) {
	hub := NewHub(discardLogger())
	a, cancelA := hub.Subscribe(4)
	b, cancelB := hub.Subscribe(4)
	defer cancelB()

	hub.Publish(Change{Collection: "projects", Operation: OpUpdate, DocumentID: "p1"})

	for name, ch := range map[string]<-chan Change{"a": a, "b": b} {
		select {
		case c := <-ch:
			if c.DocumentID != "p1" || c.At.IsZero() {
				t.Errorf("%s received %+v", name, c)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s received nothing", name)
		}
	}

	cancelA()
	if _, ok := <-a; ok {
		t.Error("cancelled subscription should be closed")
	}
	if n := hub.Subscribers(); n != 1 {
		t.Errorf("subscribers = %d, want 1", n)
	}
	cancelA()
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub(discardLogger())
	ch, cancel := hub.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hub.Publish(Change{Collection: "tasks", Operation: OpInsert})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if len(ch) != 1 {
		t.Errorf("buffered = %d, want 1", len(ch))
	}

	if c := <-ch; c.Collection != "tasks" {
		t.Fatalf("first change = %+v", c)
	}
	select {
	case c := <-ch:
		if c.Operation != OpResync {
			t.Errorf("after overflow got %+v, want a resync", c)
		}
	case <-time.After(time.Second):
		t.Fatal("overflowed subscriber was never told to resync")
	}
	select {
	case c := <-ch:
		t.Errorf("only one resync expected, got %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubCancelWhileResyncPending(t *testing.T) {
	hub := NewHub(discardLogger())
	ch, cancel := hub.Subscribe(1)

	hub.Publish(Change{Collection: "users", Operation: OpUpdate, DocumentID: "u1"})
	hub.Publish(Change{Collection: "users", Operation: OpUpdate, DocumentID: "u2"})

	done := make(chan struct{})
	go func() {
		cancel()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cancel blocked on a pending resync")
	}
	for range ch {
	}
	if n := hub.Subscribers(); n != 0 {
		t.Errorf("subscribers = %d, want 0", n)
	}
}

func TestToCloudEvent(t *testing.T) {
	at := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
	e, err := ToCloudEvent(Change{Collection: "brochure_pages", Operation: OpUpdate, DocumentID: "pg1", At: at})
	if err != nil {
		t.Fatal(err)
	}
	if e.Type() != "com.clientdesk.brochure_pages.update" {
		t.Errorf("type = %q", e.Type())
	}
	if e.Source() != "/clientdesk/brochure_pages" || e.Subject() != "pg1" {
		t.Errorf("source = %q, subject = %q", e.Source(), e.Subject())
	}
	if !e.Time().Equal(at) {
		t.Errorf("time = %v", e.Time())
	}
	if err := e.Validate(); err != nil {
		t.Errorf("invalid event: %v", err)
	}

	var data Change
	if err := json.Unmarshal(e.Data(), &data); err != nil {
		t.Fatal(err)
	}
	if data.DocumentID != "pg1" || data.Collection != "brochure_pages" {
		t.Errorf("data = %+v", data)
	}
}
