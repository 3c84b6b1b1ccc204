package assettracking

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Adda-Baaj/north-relay/internal/domain"
	"github.com/Adda-Baaj/north-relay/internal/logger"
	"github.com/Adda-Baaj/north-relay/internal/storage"
	"golang.org/x/sync/singleflight"
)

// Registrar records tuples with the core.
type Registrar interface {
	AddTrack(ctx context.Context, t domain.AssetTuple) error
}

// Tracker keeps a duplicate-free in-memory set of asset tuples mirrored from a Store.
// New tuples are registered with the core before they are persisted and cached.
// Concurrent additions of the same tuple are collapsed into one registration.
type Tracker struct {
	mu        sync.RWMutex
	cache     map[string]domain.AssetTuple
	flight    singleflight.Group
	store     storage.Store
	registrar Registrar
	service   string
	log       logger.Logger
}

// NewTracker builds a tracker for service. It does not take ownership of store.
func NewTracker(service string, store storage.Store, reg Registrar, log logger.Logger) (*Tracker, error) {
	service = strings.TrimSpace(service)
	if service == "" {
		return nil, fmt.Errorf("asset tracker requires a service name")
	}
	if store == nil {
		return nil, fmt.Errorf("asset tracker requires a store")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Tracker{
		cache:     make(map[string]domain.AssetTuple),
		store:     store,
		registrar: reg,
		service:   service,
		log:       log,
	}, nil
}

// Populate loads every persisted tuple into the cache and returns how many were loaded.
func (t *Tracker) Populate() (int, error) {
	tuples, err := t.store.LoadTuples()
	if err != nil {
		return 0, fmt.Errorf("load asset tuples: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tuple := range tuples {
		t.cache[tuple.Key()] = tuple
	}
	t.log.InfoObj("asset tracking cache populated", "asset_tracking", map[string]any{
		"service": t.service,
		"loaded":  len(tuples),
		"cached":  len(t.cache),
	})
	return len(tuples), nil
}

// Check reports whether a tuple with the same identity is cached.
func (t *Tracker) Check(tuple domain.AssetTuple) bool {
	_, ok := t.Find(tuple)
	return ok
}

// Find returns the cached tuple with the same identity.
func (t *Tracker) Find(tuple domain.AssetTuple) (domain.AssetTuple, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cached, ok := t.cache[tuple.Key()]
	return cached, ok
}

// Add registers, persists and caches a tuple. Tuples already cached are ignored.
// An empty Service is filled with the tracker's service.
func (t *Tracker) Add(ctx context.Context, tuple domain.AssetTuple) error {
	_, err := t.Track(ctx, tuple)
	return err
}

// Track is Add that also reports whether this call performed the registration.
// Of several concurrent calls for one new tuple exactly one reports true.
func (t *Tracker) Track(ctx context.Context, tuple domain.AssetTuple) (bool, error) {
	if tuple.Service == "" {
		tuple.Service = t.service
	}
	if tuple.Asset == "" || tuple.Event == "" {
		return false, fmt.Errorf("asset tuple %s is incomplete", tuple)
	}
	if t.Check(tuple) {
		return false, nil
	}

	added := false
	_, err, _ := t.flight.Do(tuple.Key(), func() (any, error) {
		// a flight for this key may have finished between Check and Do
		if t.Check(tuple) {
			return nil, nil
		}
		if err := t.register(ctx, tuple); err != nil {
			return nil, err
		}
		added = true
		return nil, nil
	})
	return added, err
}

func (t *Tracker) register(ctx context.Context, tuple domain.AssetTuple) error {
	if t.registrar != nil {
		if err := t.registrar.AddTrack(ctx, tuple); err != nil {
			return fmt.Errorf("register asset tuple %s: %w", tuple, err)
		}
	}
	if err := t.store.SaveTuple(tuple); err != nil {
		return fmt.Errorf("persist asset tuple %s: %w", tuple, err)
	}

	t.mu.Lock()
	t.cache[tuple.Key()] = tuple
	t.mu.Unlock()

	t.log.DebugObj("asset tuple added", "asset_tuple", tuple)
	return nil
}

// Len returns the number of cached tuples.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.cache)
}
