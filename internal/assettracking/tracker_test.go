package assettracking

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adda-Baaj/north-relay/internal/domain"
)

type fakeStore struct {
	mu      sync.Mutex
	tuples  []domain.AssetTuple
	saved   []domain.AssetTuple
	loadErr error
}

func (f *fakeStore) Close() error { return nil }
func (f *fakeStore) LoadTuples() ([]domain.AssetTuple, error) {
	return f.tuples, f.loadErr
}
func (f *fakeStore) SaveTuple(t domain.AssetTuple) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, t)
	return nil
}

type fakeRegistrar struct {
	mu    sync.Mutex
	calls int
	err   error
	delay time.Duration
}

func (f *fakeRegistrar) AddTrack(context.Context, domain.AssetTuple) error {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func TestPopulateMirrorsStoreWithoutDuplicates(t *testing.T) {
	tuple := domain.AssetTuple{Service: "svc", Plugin: "p", Asset: "a", Event: "Ingest"}
	store := &fakeStore{tuples: []domain.AssetTuple{tuple, tuple}}
	tr, err := NewTracker("svc", store, nil, nil)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	if _, err := tr.Populate(); err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if tr.Len() != 1 || !tr.Check(tuple) {
		t.Fatalf("expected single cached tuple, len=%d", tr.Len())
	}
}

func TestAddRegistersPersistsOnce(t *testing.T) {
	store := &fakeStore{}
	reg := &fakeRegistrar{}
	tr, _ := NewTracker("svc", store, reg, nil)

	tuple := domain.AssetTuple{Plugin: "http", Asset: "a", Event: "Egress"}
	for i := 0; i < 3; i++ {
		if err := tr.Add(context.Background(), tuple); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if reg.calls != 1 || len(store.saved) != 1 {
		t.Fatalf("expected one registration and save, got %d/%d", reg.calls, len(store.saved))
	}
	found, ok := tr.Find(domain.AssetTuple{Service: "svc", Plugin: "http", Asset: "a", Event: "Egress"})
	if !ok || found.Service != "svc" {
		t.Fatalf("tuple not cached with service filled in: %+v", found)
	}
}

func TestAddDoesNotCacheWhenRegistrationFails(t *testing.T) {
	store := &fakeStore{}
	tr, _ := NewTracker("svc", store, &fakeRegistrar{err: errors.New("down")}, nil)

	tuple := domain.AssetTuple{Asset: "a", Event: "Egress"}
	if err := tr.Add(context.Background(), tuple); err == nil {
		t.Fatalf("expected registration error")
	}
	if tr.Len() != 0 || len(store.saved) != 0 {
		t.Fatalf("failed tuple must not be cached or saved")
	}
}

func TestAddRejectsIncompleteTuple(t *testing.T) {
	tr, _ := NewTracker("svc", &fakeStore{}, nil, nil)
	if err := tr.Add(context.Background(), domain.AssetTuple{Asset: "a"}); err == nil {
		t.Fatalf("expected error for missing event")
	}
}

func TestNewTrackerValidatesArguments(t *testing.T) {
	if _, err := NewTracker(" ", &fakeStore{}, nil, nil); err == nil {
		t.Fatalf("expected error for empty service")
	}
	if _, err := NewTracker("svc", nil, nil, nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
}

func TestConcurrentAddIsSafe(t *testing.T) {
	tr, _ := NewTracker("svc", &fakeStore{}, &fakeRegistrar{}, nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = tr.Add(context.Background(), domain.AssetTuple{Asset: "a", Event: []string{"Ingest", "Egress"}[i%2]})
		}(i)
	}
	wg.Wait()
	if tr.Len() != 2 {
		t.Fatalf("expected 2 tuples, got %d", tr.Len())
	}
}

func TestConcurrentTrackOfSameTupleRegistersOnce(t *testing.T) {
	store := &fakeStore{}
	reg := &fakeRegistrar{delay: 20 * time.Millisecond}
	tr, _ := NewTracker("svc", store, reg, nil)

	tuple := domain.AssetTuple{Plugin: "http", Asset: "a", Event: "Egress"}
	var added atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := tr.Track(context.Background(), tuple)
			if err != nil {
				t.Errorf("Track: %v", err)
			}
			if ok {
				added.Add(1)
			}
		}()
	}
	wg.Wait()

	if reg.calls != 1 || len(store.saved) != 1 || tr.Len() != 1 {
		t.Fatalf("expected one registration, got calls=%d saves=%d cached=%d", reg.calls, len(store.saved), tr.Len())
	}
	if added.Load() != 1 {
		t.Fatalf("expected exactly one caller to report the addition, got %d", added.Load())
	}
}

func TestTrackReportsAlreadyCached(t *testing.T) {
	tr, _ := NewTracker("svc", &fakeStore{}, &fakeRegistrar{}, nil)
	tuple := domain.AssetTuple{Asset: "a", Event: "Ingest"}
	if ok, err := tr.Track(context.Background(), tuple); err != nil || !ok {
		t.Fatalf("first Track: ok=%v err=%v", ok, err)
	}
	if ok, err := tr.Track(context.Background(), tuple); err != nil || ok {
		t.Fatalf("second Track: ok=%v err=%v", ok, err)
	}
}
