// Package cache decorates the product repository with a redis
// cache-aside layer for the read-heavy public endpoints. Lookups that
// feed the order coordinator (Get, Snapshot) bypass the cache: pricing
// snapshots and advisory stock checks read the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/dvelasquez124/shopping-cart-app/internal/catalog/application"
	"github.com/dvelasquez124/shopping-cart-app/internal/catalog/domain"
)

const listKey = "catalog:list"

type Repository struct {
	log   *slog.Logger
	next  application.ProductRepository
	rdb   *redis.Client
	ttl   time.Duration
	group singleflight.Group
}

func NewRepository(log *slog.Logger, next application.ProductRepository, rdb *redis.Client, ttl time.Duration) *Repository {
	return &Repository{log: log, next: next, rdb: rdb, ttl: ttl}
}

func (r *Repository) List(ctx context.Context) ([]domain.Product, error) {
	return r.cached(ctx, listKey, func() ([]domain.Product, error) {
		return r.next.List(ctx)
	})
}

func (r *Repository) Search(ctx context.Context, term string) ([]domain.Product, error) {
	return r.cached(ctx, "catalog:search:"+term, func() ([]domain.Product, error) {
		return r.next.Search(ctx, term)
	})
}

func (r *Repository) PriceRange(ctx context.Context, minCents, maxCents int64) ([]domain.Product, error) {
	key := fmt.Sprintf("catalog:range:%d:%d", minCents, maxCents)
	return r.cached(ctx, key, func() ([]domain.Product, error) {
		return r.next.PriceRange(ctx, minCents, maxCents)
	})
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Product, error) {
	return r.next.Get(ctx, id)
}

func (r *Repository) Snapshot(ctx context.Context, ids []string) ([]domain.Product, error) {
	return r.next.Snapshot(ctx, ids)
}

func (r *Repository) Create(ctx context.Context, p domain.Product) error {
	if err := r.next.Create(ctx, p); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *Repository) Update(ctx context.Context, id string, upd domain.ProductUpdate) (domain.Product, error) {
	p, err := r.next.Update(ctx, id, upd)
	if err != nil {
		return domain.Product{}, err
	}
	r.invalidate(ctx)
	return p, nil
}

func (r *Repository) Delete(ctx context.Context, id string) (domain.Product, error) {
	p, err := r.next.Delete(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	r.invalidate(ctx)
	return p, nil
}

// cached is cache-aside with singleflight, so a cold or just-invalidated
// key triggers exactly one load no matter how many readers race on it.
// Search and range keys are not enumerable, so they simply age out on the
// short TTL instead of being invalidated.
func (r *Repository) cached(ctx context.Context, key string, load func() ([]domain.Product, error)) ([]domain.Product, error) {
	if data, err := r.rdb.Get(ctx, key).Bytes(); err == nil {
		var out []domain.Product
		if err := json.Unmarshal(data, &out); err == nil {
			return out, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		r.log.Warn("catalog cache read failed", "key", key, "err", err)
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		out, err := load()
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(out); err == nil {
			if err := r.rdb.Set(ctx, key, data, r.ttl).Err(); err != nil {
				r.log.Warn("catalog cache write failed", "key", key, "err", err)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}

func (r *Repository) invalidate(ctx context.Context) {
	if err := r.rdb.Del(ctx, listKey).Err(); err != nil {
		r.log.Warn("catalog cache invalidate failed", "err", err)
	}
}
