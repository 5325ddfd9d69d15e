// Package registry supplies the list of source identities for a fleet run.
//
// Backends:
//   - Static: ids from the configuration file
//   - Postgres: rows of the sources table
//   - Redis: members of a set
//
// A registry is read once before the run starts; the run never writes back.
package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/vietddude/routefleet/internal/core/domain"
)

// Backend names accepted in configuration.
const (
	BackendStatic   = "static"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Registry enumerates source identities.
type Registry interface {
	// List returns every enabled source id in a stable order
	List(ctx context.Context) ([]domain.SourceID, error)

	// Close releases backend connections
	Close() error
}

// Writer is implemented by registries that can register new sources.
type Writer interface {
	Add(ctx context.Context, ids ...domain.SourceID) error
}

// Static is a registry backed by a fixed list.
type Static struct {
	ids []domain.SourceID
}

// NewStatic creates a static registry, preserving order.
func NewStatic(ids []string) *Static {
	out := make([]domain.SourceID, len(ids))
	for i, id := range ids {
		out[i] = domain.SourceID(id)
	}
	return &Static{ids: out}
}

// List returns a copy of the configured ids.
func (s *Static) List(_ context.Context) ([]domain.SourceID, error) {
	out := make([]domain.SourceID, len(s.ids))
	copy(out, s.ids)
	return out, nil
}

// Close is a no-op.
func (s *Static) Close() error {
	return nil
}

func sortedIDs(raw []string) []domain.SourceID {
	sort.Strings(raw)
	out := make([]domain.SourceID, len(raw))
	for i, id := range raw {
		out[i] = domain.SourceID(id)
	}
	return out
}

func validateAdd(ids []domain.SourceID) error {
	for _, id := range ids {
		if id == "" {
			return fmt.Errorf("cannot register empty source id")
		}
	}
	return nil
}
