package publishers

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// maxConcurrentSinks caps how many sinks receive one event at the same time.
const maxConcurrentSinks = 8

// SinkStats counts deliveries for one publisher.
type SinkStats struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Delivered int64  `json:"delivered"`
	Failed    int64  `json:"failed"`
}

type sink struct {
	pub       Publisher
	delivered atomic.Int64
	failed    atomic.Int64
}

// Fanout delivers every event to all configured sinks concurrently.
// A failing sink does not stop delivery to the others.
type Fanout struct {
	sinks []*sink
}

// NewFanout drops nil publishers and takes ownership of the rest.
func NewFanout(pubs []Publisher) *Fanout {
	sinks := make([]*sink, 0, len(pubs))
	for _, p := range pubs {
		if p == nil {
			continue
		}
		sinks = append(sinks, &sink{pub: p})
	}
	return &Fanout{sinks: sinks}
}

// Publish sends evt to every sink and returns how many accepted it, with every failure joined.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil || len(f.sinks) == 0 {
		return 0, nil
	}

	errs := make([]error, len(f.sinks))
	var g errgroup.Group
	g.SetLimit(maxConcurrentSinks)
	for i, s := range f.sinks {
		i, s := i, s
		g.Go(func() error {
			if err := s.pub.Publish(ctx, evt); err != nil {
				s.failed.Add(1)
				errs[i] = fmt.Errorf("%s publisher[%s]: %w", s.pub.Type(), s.pub.ID(), err)
			} else {
				s.delivered.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	successful := 0
	for _, err := range errs {
		if err == nil {
			successful++
		}
	}
	return successful, errors.Join(errs...)
}

// Stats returns the delivery counters in configuration order.
func (f *Fanout) Stats() []SinkStats {
	if f == nil {
		return nil
	}
	out := make([]SinkStats, 0, len(f.sinks))
	for _, s := range f.sinks {
		out = append(out, SinkStats{
			ID:        s.pub.ID(),
			Type:      s.pub.Type(),
			Delivered: s.delivered.Load(),
			Failed:    s.failed.Load(),
		})
	}
	return out
}

// Close releases sinks that hold resources.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	pubs := make([]Publisher, 0, len(f.sinks))
	for _, s := range f.sinks {
		pubs = append(pubs, s.pub)
	}
	return closeAll(pubs)
}

// Size returns the number of sinks.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.sinks)
}
