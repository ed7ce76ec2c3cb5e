// Package backend resolves data store types to their query and write services.
package backend

import (
	"fmt"
	"sync"

	"github.com/huangsam/autoindex/internal/backend/csvfile"
	"github.com/huangsam/autoindex/internal/backend/parquetstore"
	"github.com/huangsam/autoindex/internal/contract"
	"github.com/huangsam/autoindex/schema"
)

// Registry implements contract.BackendProvider.
type Registry struct {
	mu      sync.RWMutex
	queries map[schema.BackendType]contract.QueryService
	writes  map[schema.BackendType]contract.WriteService
}

var _ contract.BackendProvider = &Registry{} // Compile-time check

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		queries: map[schema.BackendType]contract.QueryService{},
		writes:  map[schema.BackendType]contract.WriteService{},
	}
}

// NewDefaultRegistry registers the bundled CSV and Parquet stores.
func NewDefaultRegistry(csvRoot, parquetRoot string) *Registry {
	r := NewRegistry()
	csvStore := csvfile.New(csvRoot)
	parquetStore := parquetstore.New(parquetRoot)
	r.Register(schema.CSVBackendType, csvStore, csvStore)
	r.Register(schema.ParquetBackendType, parquetStore, parquetStore)
	return r
}

// Register installs the services of a backend type. Either may be nil.
func (r *Registry) Register(typ schema.BackendType, q contract.QueryService, w contract.WriteService) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q != nil {
		r.queries[typ] = q
	}
	if w != nil {
		r.writes[typ] = w
	}
}

// QueryService implements contract.BackendProvider.
func (r *Registry) QueryService(typ schema.BackendType) (contract.QueryService, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.queries[typ]
	if !ok {
		return nil, fmt.Errorf("query service for %s: %w", typ, schema.ErrBackendUnavailable)
	}
	return q, nil
}

// WriteService implements contract.BackendProvider.
func (r *Registry) WriteService(typ schema.BackendType) (contract.WriteService, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.writes[typ]
	if !ok {
		return nil, fmt.Errorf("write service for %s: %w", typ, schema.ErrBackendUnavailable)
	}
	return w, nil
}
