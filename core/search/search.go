// Package search answers federated queries. It splits a query along the
// coverage of the source, runs the sub-queries concurrently on the raw and
// indexed backends, and merges the responses.
package search

import (
	"context"
	"fmt"

	"github.com/huangsam/autoindex/core/split"
	"github.com/huangsam/autoindex/internal/contract"
	"github.com/huangsam/autoindex/schema"
	"golang.org/x/sync/errgroup"
)

// DefaultParallelism bounds the number of sub-queries in flight per search.
const DefaultParallelism = 8

// Store is what the Searcher reads: sources and their trackers.
type Store interface {
	GetSource(ctx context.Context, id string) (schema.TrackedSource, error)
	GetTracker(ctx context.Context, sourceID string) (*schema.Tracker, error)
}

// Searcher runs federated queries against tracked sources.
type Searcher struct {
	store       Store
	backends    contract.BackendProvider
	parallelism int
	log         contract.Logger
}

// NewSearcher builds a Searcher. parallelism <= 0 selects DefaultParallelism.
func NewSearcher(store Store, backends contract.BackendProvider, parallelism int, log contract.Logger) *Searcher {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	if log == nil {
		log = contract.NopLogger()
	}
	return &Searcher{store: store, backends: backends, parallelism: parallelism, log: log}
}

// Plan resolves the source and splits q along a snapshot of its tracker.
func (s *Searcher) Plan(ctx context.Context, sourceID string, q schema.Query) (schema.TrackedSource, schema.SplitQuery, error) {
	source, err := s.store.GetSource(ctx, sourceID)
	if err != nil {
		return source, nil, err
	}
	tracker, err := s.store.GetTracker(ctx, sourceID)
	if err != nil {
		return source, nil, err
	}
	return source, split.ForSource(q, tracker, source), nil
}

// Search runs q against the source and returns the merged rows.
// Any failing sub-query fails the whole search.
func (s *Searcher) Search(ctx context.Context, sourceID string, q schema.Query) (*schema.ResultSet, error) {
	source, plan, err := s.Plan(ctx, sourceID, q)
	if err != nil {
		return nil, err
	}
	if q.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.Timeout)
		defer cancel()
	}

	subs := plan.Flatten()
	responses := make([]*schema.ResultSet, len(subs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, sub := range subs {
		g.Go(func() error {
			svc, err := s.backends.QueryService(sub.Backend.Type)
			if err != nil {
				return err
			}
			rs, err := svc.Execute(gctx, sub.Query)
			if err != nil {
				return fmt.Errorf("sub-query %s on %s: %w", sub.Window, sub.Backend, err)
			}
			responses[i] = rs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.log.DebugCtx(ctx, "federated search done", "source", sourceID, "subqueries", len(subs))

	var req *schema.ResultRequest
	if len(q.ResultRequests) > 0 {
		req = &q.ResultRequests[0]
	}
	return MergeResponses(responses, source.TimeField, req), nil
}
