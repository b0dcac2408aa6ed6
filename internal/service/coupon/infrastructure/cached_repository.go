package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"academy/internal/pkg/logger"
	"academy/internal/service/coupon/domain"
)

const (
	couponCacheKeyPrefix = "coupon:code:"
	couponCacheTTL       = 30 * time.Second
)

// CachedCouponRepository 在 GORM 仓储之上叠加 Redis 缓存。
// 前端每次 "Apply" 都会触发校验，热门券码的查询压力集中，
// 用 singleflight 合并同一券码的并发回源，缓存短 TTL 容忍管理端变更延迟。
// 只缓存 FindByCode 这条读路径，写操作直接穿透并失效缓存。
type CachedCouponRepository struct {
	inner domain.CouponRepository
	rdb   goredis.UniversalClient
	group singleflight.Group
}

// NewCachedCouponRepository 创建带缓存的仓储装饰器
func NewCachedCouponRepository(inner domain.CouponRepository, rdb goredis.UniversalClient) *CachedCouponRepository {
	return &CachedCouponRepository{inner: inner, rdb: rdb}
}

// FindByCode 先查缓存，未命中时通过 singleflight 回源数据库
func (r *CachedCouponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	key := couponCacheKeyPrefix + code

	if data, err := r.rdb.Get(ctx, key).Bytes(); err == nil {
		var coupon domain.Coupon
		if err := json.Unmarshal(data, &coupon); err == nil {
			return &coupon, nil
		}
		// 缓存内容损坏时当作未命中处理
		r.rdb.Del(ctx, key)
	}

	v, err, _ := r.group.Do(code, func() (interface{}, error) {
		coupon, err := r.inner.FindByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(coupon); err == nil {
			if err := r.rdb.Set(ctx, key, data, couponCacheTTL).Err(); err != nil {
				logger.Ctx(ctx).Warn().Err(err).Str("code", code).Msg("Failed to cache coupon")
			}
		}
		return coupon, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Coupon), nil
}

func (r *CachedCouponRepository) FindByID(ctx context.Context, id int64) (*domain.Coupon, error) {
	return r.inner.FindByID(ctx, id)
}

func (r *CachedCouponRepository) List(ctx context.Context, offset, limit int) ([]*domain.Coupon, error) {
	return r.inner.List(ctx, offset, limit)
}

func (r *CachedCouponRepository) Create(ctx context.Context, coupon *domain.Coupon) error {
	return r.inner.Create(ctx, coupon)
}

// Update 写穿透后失效缓存
func (r *CachedCouponRepository) Update(ctx context.Context, coupon *domain.Coupon) error {
	if err := r.inner.Update(ctx, coupon); err != nil {
		return err
	}
	r.rdb.Del(ctx, couponCacheKeyPrefix+coupon.Code)
	return nil
}

// Delete 写穿透后失效缓存
func (r *CachedCouponRepository) Delete(ctx context.Context, id int64) error {
	coupon, err := r.inner.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.inner.Delete(ctx, id); err != nil {
		return err
	}
	r.rdb.Del(ctx, couponCacheKeyPrefix+coupon.Code)
	return nil
}

func (r *CachedCouponRepository) CountRedemptions(ctx context.Context, couponID, userID int64) (int64, error) {
	return r.inner.CountRedemptions(ctx, couponID, userID)
}
