package store

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

const redisNamespace = "outreach:"

// RedisKV implements KV on Redis strings under a namespace.
type RedisKV struct {
	rdb *redis.Client
}

// NewRedis connects to the Redis URL (redis://host:port/db).
func NewRedis(ctx context.Context, url string) (*RedisKV, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "redis: parse url")
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "redis: ping")
	}
	return &RedisKV{rdb: rdb}, nil
}

func (s *RedisKV) Close() error {
	return s.rdb.Close()
}

func (s *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.rdb.Get(ctx, redisNamespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "redis: get %s", key)
	}
	return v, nil
}

func (s *RedisKV) Put(ctx context.Context, key string, value []byte) error {
	return eris.Wrapf(s.rdb.Set(ctx, redisNamespace+key, value, 0).Err(), "redis: put %s", key)
}

func (s *RedisKV) Delete(ctx context.Context, key string) error {
	return eris.Wrapf(s.rdb.Del(ctx, redisNamespace+key).Err(), "redis: delete %s", key)
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func (s *RedisKV) List(ctx context.Context, prefix string) ([]Entry, error) {
	match := redisNamespace + globEscaper.Replace(prefix) + "*"

	var keys []string
	iter := s.rdb.Scan(ctx, 0, match, 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, eris.Wrapf(err, "redis: scan %s", prefix)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sort.Strings(keys)

	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, eris.Wrapf(err, "redis: mget %s", prefix)
	}
	out := make([]Entry, 0, len(keys))
	for i, k := range keys {
		str, ok := vals[i].(string)
		if !ok {
			continue // deleted between SCAN and MGET
		}
		out = append(out, Entry{Key: strings.TrimPrefix(k, redisNamespace), Value: []byte(str)})
	}
	return out, nil
}
