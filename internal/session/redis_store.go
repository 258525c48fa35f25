package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces session keys in a shared Redis instance.
const redisKeyPrefix = "ccapd:session:"

// RedisStore persists envelopes in Redis with a TTL, for deployments that
// run more than one gateway replica behind a load balancer. Envelope bytes
// go through the same cipher as the file store.
type RedisStore struct {
	client *redis.Client
	cipher *Cipher
	ttl    time.Duration
}

// NewRedisStore parses the DSN, verifies connectivity and returns a store.
func NewRedisStore(ctx context.Context, dsn string, cipher *Cipher, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing redis dsn: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &RedisStore{client: client, cipher: cipher, ttl: ttl}, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Load(ctx context.Context, key string) (*Envelope, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		return nil, ErrNotFound
	}

	plain, err := s.cipher.Open(raw)
	if err != nil {
		return nil, ErrNotFound
	}

	var env Envelope
	if err := json.Unmarshal(plain, &env); err != nil {
		return nil, ErrNotFound
	}
	if env.Version != EnvelopeVersion || env.Identity == nil || env.Token == "" {
		return nil, ErrNotFound
	}
	return &env, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, env *Envelope) error {
	if err := env.validate(); err != nil {
		return err
	}

	env.Version = EnvelopeVersion
	plain, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding session envelope: %w", err)
	}

	sealed, err := s.cipher.Seal(plain)
	if err != nil {
		return fmt.Errorf("sealing session envelope: %w", err)
	}

	if err := s.client.Set(ctx, redisKeyPrefix+key, sealed, s.ttl).Err(); err != nil {
		return fmt.Errorf("writing session envelope: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("clearing session envelope: %w", err)
	}
	return nil
}
