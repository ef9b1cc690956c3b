package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lms/logger"

	goredis "github.com/redis/go-redis/v9"
)

const tagPrefix = "lms:tag:"

// RedisStore keeps values as JSON strings and tag membership in Redis sets.
type RedisStore struct {
	rdb *goredis.Client
	log *logger.Logger
}

func NewRedisStore(addr, password string, db int, log *logger.Logger) (*RedisStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb, log: log.With("service", "RedisCache")}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value any, ttl time.Duration, tags ...string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, key, raw, ttl)
		for _, t := range tags {
			p.SAdd(ctx, tagPrefix+t, key)
			if ttl > 0 {
				p.Expire(ctx, tagPrefix+t, 2*ttl)
			}
		}
		return nil
	})
	return err
}

func (s *RedisStore) InvalidateTags(ctx context.Context, tags ...string) error {
	for _, t := range tags {
		keys, err := s.rdb.SMembers(ctx, tagPrefix+t).Result()
		if err != nil {
			return err
		}
		keys = append(keys, tagPrefix+t)
		if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
