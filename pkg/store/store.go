// Package store is the key-value contract the pipeline reads tags from and
// publishes into.
//
// Three keys live under an optional namespace: the tag set, the sorted set
// of already published ids scored by first-seen time in milliseconds, and
// the append-only stream of published records.
package store

import (
	"context"
	"strings"
	"time"

	"mediascraper/pkg/config"
	"mediascraper/pkg/errors"
	"mediascraper/pkg/logger"
	"mediascraper/pkg/media"
)

const (
	TagsKey   = "tags"
	SeenKey   = "processed-medias"
	StreamKey = "medias"
)

// Store is what the pipeline needs from persistence
type Store interface {
	// Tags returns the current interest tags
	Tags(ctx context.Context) ([]string, error)
	// Score returns the first-seen score of id and whether it exists
	Score(ctx context.Context, id string) (float64, bool, error)
	// PublishIfUnseen marks rec as seen at time at and appends it to the
	// stream in one atomic step. It reports false when rec was already seen.
	PublishIfUnseen(ctx context.Context, rec media.Record, at time.Time) (bool, error)
	// Entries returns every stream entry in append order
	Entries(ctx context.Context) ([]Entry, error)
	Close() error
}

// Entry is one appended stream entry
type Entry struct {
	ID     string
	Values map[string]string
}

// Keys builds namespaced key names
type Keys struct {
	Namespace string
}

// Key returns "<namespace>:<name>", or name when no namespace is set
func (k Keys) Key(name string) string {
	if k.Namespace == "" {
		return name
	}
	return k.Namespace + ":" + name
}

// Open creates the store selected by cfg.Store.Driver
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (Store, error) {
	keys := Keys{Namespace: cfg.App.Namespace}

	switch strings.ToLower(cfg.Store.Driver) {
	case config.StoreDriverMemory:
		logger.OrGlobal(log).WithField("tags", cfg.Store.Tags).Info("Using in-memory store")
		return NewMemoryStore(keys, cfg.Store.Tags...), nil
	case config.StoreDriverRedis, "":
		return NewRedisStore(ctx, cfg.Redis, keys, log)
	default:
		return nil, errors.New(errors.ErrorTypeConfig, "unknown store driver %q", cfg.Store.Driver)
	}
}

func fieldMap(fields []string) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		m[fields[i]] = fields[i+1]
	}
	return m
}
