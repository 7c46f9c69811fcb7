package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"mediascraper/pkg/config"
	"mediascraper/pkg/errors"
	"mediascraper/pkg/logger"
	"mediascraper/pkg/media"
)

// publishScript adds the id to the seen set with ZADD GT and appends the
// record only when the id was new. ZADD without CH returns the number of
// added members, so an existing id returns 0 even if its score moved.
var publishScript = redis.NewScript(`
local added = redis.call("ZADD", KEYS[1], "GT", ARGV[1], ARGV[2])
if added == 1 then
	redis.call("XADD", KEYS[2], "*", unpack(ARGV, 3))
end
return added
`)

// RedisStore keeps tags, the seen index and the output stream in Redis
type RedisStore struct {
	client redis.UniversalClient
	keys   Keys
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, keys Keys, log logger.Logger) (*RedisStore, error) {
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse Redis URL")
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Addr(),
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeStore, "failed to connect to Redis at %s", opts.Addr)
	}

	logger.OrGlobal(log).WithFields(map[string]interface{}{
		"addr":      opts.Addr,
		"db":        opts.DB,
		"namespace": keys.Namespace,
	}).Info("Redis connection established")

	return NewRedisStoreWithClient(client, keys), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client redis.UniversalClient, keys Keys) *RedisStore {
	return &RedisStore{client: client, keys: keys}
}

// Tags returns the members of the tag set
func (s *RedisStore) Tags(ctx context.Context) ([]string, error) {
	tags, err := s.client.SMembers(ctx, s.keys.Key(TagsKey)).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStore, "failed to read tags")
	}
	return tags, nil
}

// Score returns the seen score of id
func (s *RedisStore) Score(ctx context.Context, id string) (float64, bool, error) {
	score, err := s.client.ZScore(ctx, s.keys.Key(SeenKey), id).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, errors.ErrorTypeStore, "failed to read score of %s", id)
	}
	return score, true, nil
}

// PublishIfUnseen runs the atomic mark-and-append script
func (s *RedisStore) PublishIfUnseen(ctx context.Context, rec media.Record, at time.Time) (bool, error) {
	fields := rec.Fields()
	args := make([]interface{}, 0, len(fields)+2)
	args = append(args, strconv.FormatInt(at.UnixMilli(), 10), rec.ID)
	for _, f := range fields {
		args = append(args, f)
	}

	keys := []string{s.keys.Key(SeenKey), s.keys.Key(StreamKey)}
	added, err := publishScript.Run(ctx, s.client, keys, args...).Int64()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrorTypeStore, "failed to publish %s", rec.ID)
	}
	return added == 1, nil
}

// Entries reads the whole output stream
func (s *RedisStore) Entries(ctx context.Context) ([]Entry, error) {
	msgs, err := s.client.XRange(ctx, s.keys.Key(StreamKey), "-", "+").Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStore, "failed to read stream")
	}

	entries := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		values := make(map[string]string, len(m.Values))
		for k, v := range m.Values {
			if str, ok := v.(string); ok {
				values[k] = str
			}
		}
		entries = append(entries, Entry{ID: m.ID, Values: values})
	}
	return entries, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
