package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mediascraper/pkg/media"
)

// MemoryStore is an in-process Store for local runs and tests
type MemoryStore struct {
	keys Keys

	mu      sync.Mutex
	tags    map[string]struct{}
	seen    map[string]float64
	entries []Entry
	lastMs  int64
	seq     int64
}

// NewMemoryStore creates a MemoryStore seeded with tags
func NewMemoryStore(keys Keys, tags ...string) *MemoryStore {
	s := &MemoryStore{
		keys: keys,
		tags: make(map[string]struct{}, len(tags)),
		seen: make(map[string]float64),
	}
	for _, t := range tags {
		if t != "" {
			s.tags[t] = struct{}{}
		}
	}
	return s
}

// Tags returns the tag set sorted
func (s *MemoryStore) Tags(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tags := make([]string, 0, len(s.tags))
	for t := range s.tags {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags, nil
}

// Score returns the seen score of id
func (s *MemoryStore) Score(_ context.Context, id string) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	score, ok := s.seen[id]
	return score, ok, nil
}

// PublishIfUnseen mirrors the Redis script under a mutex
func (s *MemoryStore) PublishIfUnseen(ctx context.Context, rec media.Record, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	score := float64(at.UnixMilli())
	if prev, ok := s.seen[rec.ID]; ok {
		if score > prev {
			s.seen[rec.ID] = score
		}
		return false, nil
	}
	s.seen[rec.ID] = score
	s.entries = append(s.entries, Entry{ID: s.nextID(at), Values: fieldMap(rec.Fields())})
	return true, nil
}

// nextID generates stream ids shaped like Redis "<ms>-<seq>"
func (s *MemoryStore) nextID(at time.Time) string {
	ms := at.UnixMilli()
	if ms <= s.lastMs {
		ms = s.lastMs
		s.seq++
	} else {
		s.lastMs = ms
		s.seq = 0
	}
	return fmt.Sprintf("%d-%d", ms, s.seq)
}

// Entries returns a copy of the stream
func (s *MemoryStore) Entries(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
