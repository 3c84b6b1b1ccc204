package storage

import (
	"fmt"
	"strings"

	"github.com/Adda-Baaj/north-relay/internal/domain"
)

// Package storage provides the persistent side of asset tracking.

// Store persists asset tracking tuples.
type Store interface {
	Close() error
	LoadTuples() ([]domain.AssetTuple, error)
	SaveTuple(t domain.AssetTuple) error
}

// NewStore creates the configured storage backend.
func NewStore(typ, path string) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

type noopStore struct{}

func (noopStore) Close() error                             { return nil }
func (noopStore) LoadTuples() ([]domain.AssetTuple, error) { return nil, nil }
func (noopStore) SaveTuple(domain.AssetTuple) error        { return nil }
