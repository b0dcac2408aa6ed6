package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"academy/internal/service/order/domain"
)

// GormOrderRepository 是 OrderRepository 的 GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository 创建一个新的 GORM 订单仓储实例
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Create 插入一笔新的 PENDING 订单
func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return r.db.WithContext(ctx).Create(FromDomainOrder(order)).Error
}

// FindByID 根据 ID 查找订单
func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return ToDomainOrder(&model), nil
}

// UpdateGatewayRef 回填支付网关订单号
func (r *GormOrderRepository) UpdateGatewayRef(ctx context.Context, id, gatewayRef string) error {
	res := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ?", id).
		Update("gateway_order_ref", gatewayRef)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// HasEnrollment 判断用户是否已持有某课程的有效报名
func (r *GormOrderRepository) HasEnrollment(ctx context.Context, userID, courseID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&EnrollmentModel{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	return count > 0, err
}

// MarkFailed 条件更新：仅当订单仍为 PENDING 时置为 FAILED。
// 已到终态时静默跳过，与并发结算安全共存。
func (r *GormOrderRepository) MarkFailed(ctx context.Context, id, reason string) error {
	return r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ? AND status = ?", id, string(domain.StatePending)).
		Updates(map[string]interface{}{
			"status":         string(domain.StateFailed),
			"failure_reason": reason,
		}).Error
}
