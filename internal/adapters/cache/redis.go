// Package cache кэширует отчёты и ограничивает частоту запросов через redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/larriantoniy/dateregbot/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	reportPrefix   = "dateregbot:report:"
	cooldownPrefix = "dateregbot:cooldown:"
)

var ErrMiss = errors.New("cache: miss")

type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// Dial подключается к redis и проверяет соединение
func Dial(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedisCache(rdb), nil
}

// reportKey id пользователей и каналов могут совпадать, поэтому в ключе есть тип
func reportKey(ent domain.Entity) string {
	return reportPrefix + string(ent.Kind) + ":" + strconv.FormatInt(ent.ID, 10)
}

func (c *RedisCache) GetReport(ctx context.Context, ent domain.Entity) (*domain.Report, error) {
	data, err := c.rdb.Get(ctx, reportKey(ent)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var rep domain.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	rep.Cached = true
	return &rep, nil
}

func (c *RedisCache) SetReport(ctx context.Context, report *domain.Report, ttl time.Duration) error {
	if report == nil || ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := c.rdb.Set(ctx, reportKey(report.Entity), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Acquire SETNX с TTL: true - можно обрабатывать запрос пользователя
func (c *RedisCache) Acquire(ctx context.Context, userID int64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return true, nil
	}
	ok, err := c.rdb.SetNX(ctx, cooldownPrefix+strconv.FormatInt(userID, 10), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// Noop используется, когда REDIS_ADDR не задан
type Noop struct{}

func (Noop) GetReport(context.Context, domain.Entity) (*domain.Report, error) { return nil, ErrMiss }

func (Noop) SetReport(context.Context, *domain.Report, time.Duration) error { return nil }

func (Noop) Acquire(context.Context, int64, time.Duration) (bool, error) { return true, nil }

func (Noop) Close() error { return nil }
