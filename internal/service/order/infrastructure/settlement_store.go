package infrastructure

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"academy/internal/service/order/domain"
)

// GormSettlementStore 是 SettlementStore 的 GORM/MySQL 实现。
// 核心约束：券余量的扣减必须是一条条件 UPDATE，
// 由数据库来裁决最后一个名额归属，应用层绝不读出再写回。
type GormSettlementStore struct {
	db *gorm.DB
}

// NewGormSettlementStore 创建结算存储实例
func NewGormSettlementStore(db *gorm.DB) *GormSettlementStore {
	return &GormSettlementStore{db: db}
}

// FindOrderByGatewayRef 按网关订单号查找订单
func (s *GormSettlementStore) FindOrderByGatewayRef(ctx context.Context, gatewayRef string) (*domain.Order, error) {
	var model OrderModel
	err := s.db.WithContext(ctx).Where("gateway_order_ref = ?", gatewayRef).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return ToDomainOrder(&model), nil
}

// CommitPaid 在单个事务中提交结算。
// 任一环节失败整个事务回滚：不存在订单 PAID 而核销缺失的中间态。
func (s *GormSettlementStore) CommitPaid(ctx context.Context, order *domain.Order) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 锁定订单行，确认仍为 PENDING（幂等与并发回调的最终防线）
		var om OrderModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", order.ID).First(&om).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrOrderNotFound
			}
			return err
		}
		if om.Status != string(domain.StatePending) {
			return domain.ErrOrderNotPending
		}

		if order.AppliedCouponID != nil {
			couponID := *order.AppliedCouponID

			// 2. 条件递增全局核销量。影响 0 行说明余量在校验之后被并发结算耗尽
			res := tx.Exec(
				`UPDATE coupon SET used_count = used_count + 1
				 WHERE id = ? AND (usage_limit IS NULL OR used_count < usage_limit)`,
				couponID,
			)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return domain.ErrCouponLimitRaceLost
			}

			// 3. 锁定该用户的核销计数行，串行化同一用户的并发核销
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&CouponUserUsageModel{CouponID: couponID, UserID: order.UserID}).Error; err != nil {
				return err
			}
			var usage CouponUserUsageModel
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("coupon_id = ? AND user_id = ?", couponID, order.UserID).
				First(&usage).Error; err != nil {
				return err
			}

			var perUserLimit int64
			if err := tx.Raw(`SELECT per_user_limit FROM coupon WHERE id = ?`, couponID).
				Scan(&perUserLimit).Error; err != nil {
				return err
			}
			if usage.UsedCount >= perUserLimit {
				return domain.ErrPerUserLimitExceeded
			}
			if err := tx.Model(&CouponUserUsageModel{}).
				Where("id = ?", usage.ID).
				Update("used_count", gorm.Expr("used_count + 1")).Error; err != nil {
				return err
			}

			// 4. 写入核销记录，order_id 唯一约束兜底重复提交
			redemption := &RedemptionModel{
				CouponID:         couponID,
				UserID:           order.UserID,
				OrderID:          order.ID,
				AmountDiscounted: order.DiscountAmount,
				RedeemedAt:       time.Now(),
			}
			if err := tx.Create(redemption).Error; err != nil {
				return err
			}
		}

		// 5. 创建报名，(user_id, course_id) 唯一
		enrollment := &EnrollmentModel{
			UserID:     order.UserID,
			CourseID:   order.CourseID,
			OrderID:    order.ID,
			EnrolledAt: time.Now(),
		}
		if err := tx.Create(enrollment).Error; err != nil {
			if isDuplicateKey(err) {
				return domain.ErrAlreadyEnrolled
			}
			return err
		}

		// 6. 订单 PENDING → PAID
		res := tx.Model(&OrderModel{}).
			Where("id = ? AND status = ?", order.ID, string(domain.StatePending)).
			Update("status", string(domain.StatePaid))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrOrderNotPending
		}

		order.Status = domain.StatePaid
		return nil
	})
}

// MarkFailed 将 PENDING 订单置为 FAILED 并记录原因码。
// 影响 0 行说明并发回调已抢先提交了终态，返回 ErrOrderNotPending
// 让调用方重放已存储的结果，而不是谎报一个 FAILED。
func (s *GormSettlementStore) MarkFailed(ctx context.Context, orderID, reason string) error {
	res := s.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ? AND status = ?", orderID, string(domain.StatePending)).
		Updates(map[string]interface{}{
			"status":         string(domain.StateFailed),
			"failure_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrOrderNotPending
	}
	return nil
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "Duplicate entry")
}
