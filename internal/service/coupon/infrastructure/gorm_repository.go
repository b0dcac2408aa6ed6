package infrastructure

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"academy/internal/service/coupon/domain"
)

// GormCouponRepository 是 CouponRepository 的 GORM 实现
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository 创建一个新的 GORM 仓储实例
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// FindByCode 按归一化后的券码查找优惠券
func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var model CouponModel
	err := r.db.WithContext(ctx).Preload("Courses").Where("code = ?", code).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, err
	}
	return ToDomainCoupon(&model), nil
}

// FindByID 按主键查找优惠券
func (r *GormCouponRepository) FindByID(ctx context.Context, id int64) (*domain.Coupon, error) {
	var model CouponModel
	err := r.db.WithContext(ctx).Preload("Courses").First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, err
	}
	return ToDomainCoupon(&model), nil
}

// List 分页列出优惠券定义
func (r *GormCouponRepository) List(ctx context.Context, offset, limit int) ([]*domain.Coupon, error) {
	var models []CouponModel
	err := r.db.WithContext(ctx).Preload("Courses").
		Order("id desc").Offset(offset).Limit(limit).Find(&models).Error
	if err != nil {
		return nil, err
	}
	coupons := make([]*domain.Coupon, 0, len(models))
	for i := range models {
		coupons = append(coupons, ToDomainCoupon(&models[i]))
	}
	return coupons, nil
}

// Create 插入一张新券，券码冲突映射为领域错误
func (r *GormCouponRepository) Create(ctx context.Context, coupon *domain.Coupon) error {
	model := FromDomainCoupon(coupon)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return domain.ErrCodeAlreadyExists
		}
		return err
	}
	coupon.ID = int64(model.ID)
	return nil
}

// Update 全量更新券定义，课程限定在同一事务里整体替换
func (r *GormCouponRepository) Update(ctx context.Context, coupon *domain.Coupon) error {
	model := FromDomainCoupon(coupon)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("coupon_id = ?", model.ID).Delete(&CouponCourseModel{}).Error; err != nil {
			return err
		}
		return tx.Save(model).Error
	})
}

// Delete 删除券定义及其课程限定，历史核销记录保留
func (r *GormCouponRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("coupon_id = ?", id).Delete(&CouponCourseModel{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&CouponModel{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrCouponNotFound
		}
		return nil
	})
}

// CountRedemptions 统计某用户对某券的已提交核销次数
func (r *GormCouponRepository) CountRedemptions(ctx context.Context, couponID, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&RedemptionModel{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&count).Error
	return count, err
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "Duplicate entry")
}
