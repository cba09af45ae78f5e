package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cognicore/opini/pkg/opini/internalerr"
	"github.com/cognicore/opini/pkg/opini/label"
	"github.com/cognicore/opini/pkg/opini/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu      sync.RWMutex
	results map[int]store.Result
	closed  bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{results: make(map[int]store.Result)}
}

// Close implements store.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// PutResult implements store.Store.
func (s *Store) PutResult(ctx context.Context, r store.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return internalerr.ErrStoreClosed
	}
	s.results[r.Seq] = r
	return nil
}

// Results implements store.Store.
func (s *Store) Results(ctx context.Context) ([]store.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, internalerr.ErrStoreClosed
	}
	return s.ordered(), nil
}

// TextsByLabel implements store.Store.
func (s *Store) TextsByLabel(ctx context.Context, sentiment label.Sentiment) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, internalerr.ErrStoreClosed
	}
	var texts []string
	for _, r := range s.ordered() {
		if r.Status == store.StatusOK && r.Sentiment == sentiment {
			texts = append(texts, r.CleanText)
		}
	}
	return texts, nil
}

// Distribution implements store.Store.
func (s *Store) Distribution(ctx context.Context) (map[label.Sentiment]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, internalerr.ErrStoreClosed
	}
	dist := store.NewDistribution()
	for _, r := range s.results {
		if r.Status == store.StatusOK {
			dist[r.Sentiment]++
		}
	}
	return dist, nil
}

// DailyCounts implements store.Store.
func (s *Store) DailyCounts(ctx context.Context) ([]store.DailyCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, internalerr.ErrStoreClosed
	}
	byDay := make(map[string]map[label.Sentiment]int)
	for _, r := range s.results {
		day := r.Day()
		if r.Status != store.StatusOK || day == "" {
			continue
		}
		if byDay[day] == nil {
			byDay[day] = make(map[label.Sentiment]int)
		}
		byDay[day][r.Sentiment]++
	}
	return store.DailySeries(byDay), nil
}

func (s *Store) ordered() []store.Result {
	out := make([]store.Result, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}
