package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/transcriber/internal/domain"
	"github.com/airenas/transcriber/internal/secure"
	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// RedisDataManager stores jobs and results encrypted in Redis
type RedisDataManager struct {
	client  *redis.Client
	ttl     time.Duration
	crypter *secure.Crypter
}

// NewRedisDataManager connects to redis, the connection is checked with retries
func NewRedisDataManager(ctx context.Context, connStr string, encryptionKey string) (*RedisDataManager, error) {
	opt, err := redis.ParseURL(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	goapp.Log.Info().Str("redis", opt.Addr).Int("db", opt.DB).Send()

	crypter, err := secure.NewCrypter(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("create crypter: %w", err)
	}
	rdb := redis.NewClient(opt)
	ping := func() error {
		err := rdb.Ping(ctx).Err()
		if err != nil {
			goapp.Log.Warn().Err(err).Msg("redis ping")
		}
		return err
	}
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	if err := backoff.Retry(ping, backoff.WithContext(b, ctx)); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &RedisDataManager{client: rdb, ttl: time.Hour * 6, crypter: crypter}, nil
}

func keyJob(id string) string {
	return fmt.Sprintf("job:%s", id)
}

func keyResult(id string) string {
	return fmt.Sprintf("result:%s", id)
}

// SaveJob stores job state
func (r *RedisDataManager) SaveJob(ctx context.Context, job *domain.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return r.set(ctx, keyJob(job.ID), data)
}

// GetJob returns ErrNotFound for unknown or expired ids
func (r *RedisDataManager) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	data, err := r.get(ctx, keyJob(id))
	if err != nil {
		return nil, err
	}
	var res domain.Job
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SaveResult stores the encoded transcript
func (r *RedisDataManager) SaveResult(ctx context.Context, id string, data []byte) error {
	goapp.Log.Trace().Str("id", id).Msg("Save result")
	return r.set(ctx, keyResult(id), data)
}

// GetResult returns the encoded transcript
func (r *RedisDataManager) GetResult(ctx context.Context, id string) ([]byte, error) {
	return r.get(ctx, keyResult(id))
}

func (r *RedisDataManager) set(ctx context.Context, key string, data []byte) error {
	encrypted, err := r.crypter.Encrypt(data, []byte(key))
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}
	return r.client.Set(ctx, key, encrypted, r.ttl).Err()
}

func (r *RedisDataManager) get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	res, err := r.crypter.Decrypt(b, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return res, nil
}

// Close closes the redis client
func (r *RedisDataManager) Close() error {
	return r.client.Close()
}
