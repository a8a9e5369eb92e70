package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/simp-lee/dashboard/internal/domain"
	"github.com/simp-lee/dashboard/internal/listing"
)

// DefaultKeyPrefix namespaces state keys in Redis.
const DefaultKeyPrefix = "dashboard:session:"

// maxTxRetries bounds optimistic transaction retries under contention.
const maxTxRetries = 50

// ErrConflict is returned when an update keeps losing the optimistic race.
var ErrConflict = errors.New("session: too many concurrent updates")

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr      string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisStore keeps states in Redis as JSON with a sliding TTL. Concurrent
// updates of one key are serialised with WATCH/MULTI.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: opts.Addr,
		DB:   opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("session: ping redis: %w", err)
	}

	return NewRedisStoreWithClient(client, opts.KeyPrefix, opts.TTL), nil
}

// NewRedisStoreWithClient wraps an existing client. Empty prefix and
// non-positive ttl use the defaults.
func NewRedisStoreWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Load returns the state for (sessionID, kind), or a fresh one.
func (r *RedisStore) Load(ctx context.Context, sessionID string, kind domain.Kind) (listing.State, error) {
	return r.get(ctx, r.client, r.key(sessionID, kind), kind)
}

// Update applies fn inside an optimistic transaction, retrying when another
// writer changed the key in between.
func (r *RedisStore) Update(ctx context.Context, sessionID string, kind domain.Kind, fn func(listing.State) (listing.State, error)) (listing.State, error) {
	key := r.key(sessionID, kind)

	var result listing.State
	txf := func(tx *redis.Tx) error {
		cur, err := r.get(ctx, tx, key, kind)
		if err != nil {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			result = cur
			return err
		}
		data, err := encodeState(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = next
		return nil
	}

	for range maxTxRetries {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return result, err
	}
	return listing.State{}, ErrConflict
}

// Ping checks Redis is reachable.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) key(sessionID string, kind domain.Kind) string {
	return r.prefix + stateKey(sessionID, kind)
}

// getter is the read side shared by *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisStore) get(ctx context.Context, c getter, key string, kind domain.Kind) (listing.State, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return listing.New(kind), nil
	}
	if err != nil {
		return listing.State{}, fmt.Errorf("session: get %s: %w", key, err)
	}
	return decodeState(data)
}
