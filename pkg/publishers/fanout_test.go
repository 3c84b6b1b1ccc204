package publishers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubPublisher struct {
	id     string
	typ    string
	err    error
	calls  int
	closed bool
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return s.typ }
func (s *stubPublisher) Publish(context.Context, Event) error {
	s.calls++
	return s.err
}
func (s *stubPublisher) Close() error {
	s.closed = true
	return nil
}

func TestFanoutPublishAggregatesErrors(t *testing.T) {
	fanout := NewFanout([]Publisher{
		&stubPublisher{id: "ok", typ: "http"},
		&stubPublisher{id: "bad", typ: "http", err: errors.New("failed")},
		nil,
	})

	count, err := fanout.Publish(context.Background(), Event{})
	if count != 1 {
		t.Fatalf("expected 1 success, got %d", count)
	}
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	if fanout.Size() != 2 {
		t.Fatalf("nil publishers must be dropped, size=%d", fanout.Size())
	}
}

func TestFanoutStatsCountDeliveries(t *testing.T) {
	fanout := NewFanout([]Publisher{
		&stubPublisher{id: "ok", typ: "sqs"},
		&stubPublisher{id: "bad", typ: "http", err: errors.New("failed")},
	})
	for i := 0; i < 3; i++ {
		_, _ = fanout.Publish(context.Background(), Event{})
	}

	stats := fanout.Stats()
	if len(stats) != 2 {
		t.Fatalf("expected stats per sink, got %d", len(stats))
	}
	if stats[0].ID != "ok" || stats[0].Delivered != 3 || stats[0].Failed != 0 {
		t.Fatalf("unexpected stats for ok sink: %+v", stats[0])
	}
	if stats[1].ID != "bad" || stats[1].Delivered != 0 || stats[1].Failed != 3 {
		t.Fatalf("unexpected stats for bad sink: %+v", stats[1])
	}
}

// rendezvousPublisher blocks until every peer has entered Publish.
type rendezvousPublisher struct {
	id    string
	wg    *sync.WaitGroup
	ready chan struct{}
}

func (r *rendezvousPublisher) ID() string   { return r.id }
func (r *rendezvousPublisher) Type() string { return "stub" }
func (r *rendezvousPublisher) Publish(ctx context.Context, _ Event) error {
	r.wg.Done()
	select {
	case <-r.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestFanoutDeliversConcurrently(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2)
	ready := make(chan struct{})
	go func() {
		wg.Wait()
		close(ready)
	}()

	fanout := NewFanout([]Publisher{
		&rendezvousPublisher{id: "a", wg: &wg, ready: ready},
		&rendezvousPublisher{id: "b", wg: &wg, ready: ready},
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	count, err := fanout.Publish(ctx, Event{})
	if err != nil || count != 2 {
		t.Fatalf("expected both sinks to meet, count=%d err=%v", count, err)
	}
}

func TestFanoutCloseClosesPublishers(t *testing.T) {
	a := &stubPublisher{id: "a", typ: "http"}
	fanout := NewFanout([]Publisher{a})
	if err := fanout.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !a.closed {
		t.Fatalf("publisher not closed")
	}
}

func TestBuildAllWithDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	pubs, err := BuildAll(context.Background(), reg, []PublisherConfig{
		sanitizePublisherConfig(PublisherConfig{ID: "http", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "https://example.com"}}),
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(pubs) != 1 {
		t.Fatalf("expected 1 publisher, got %d", len(pubs))
	}
	_ = closeAll(pubs)
}

func TestBuildAllUnknownTypeClosesBuilt(t *testing.T) {
	built := &stubPublisher{id: "a", typ: "stub"}
	reg := NewRegistry(map[string]Builder{
		"stub": func(context.Context, PublisherConfig, Logger) (Publisher, error) { return built, nil },
	})
	_, err := BuildAll(context.Background(), reg, []PublisherConfig{
		{ID: "a", Type: "stub"},
		{ID: "b", Type: "kafka"},
	}, nil)
	if err == nil {
		t.Fatalf("expected error for unregistered type")
	}
	if !built.closed {
		t.Fatalf("already built publisher must be closed on failure")
	}
}
