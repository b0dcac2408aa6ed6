package application

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"academy/internal/pkg/logger"
	"academy/internal/pkg/metrics"
	"academy/internal/service/coupon/domain"
	"academy/internal/service/coupon/port"
)

// CouponService 定义了优惠券服务的所有业务用例。
type CouponService struct {
	couponRepo domain.CouponRepository
	catalog    port.CourseCatalog
	ruleEngine domain.RuleEngine
	tracer     trace.Tracer

	now func() time.Time
}

// NewCouponService 创建一个新的优惠券服务实例。
func NewCouponService(repo domain.CouponRepository, catalog port.CourseCatalog, ruleEngine domain.RuleEngine, tracer trace.Tracer) *CouponService {
	return &CouponService{
		couponRepo: repo,
		catalog:    catalog,
		ruleEngine: ruleEngine,
		tracer:     tracer,
		now:        time.Now,
	}
}

// Validate 校验一张券对 (用户, 课程) 的可用性并返回结构化裁决。
// 只读、幂等，前端会在每次 "Apply" 时反复调用。
// 校验按固定顺序短路：券存在 → 启用 → 时间窗 → 课程限定 →
// 最低消费 → 全局余量 → 单用户余量 → 可选规则。
func (s *CouponService) Validate(ctx context.Context, req *ValidateCouponRequest) (*ValidateCouponResponse, error) {
	ctx, span := s.tracer.Start(ctx, "service.ValidateCoupon")
	defer span.End()

	code := domain.NormalizeCode(req.Code)
	span.SetAttributes(
		attribute.String("coupon.code", code),
		attribute.Int64("user.id", req.UserID),
		attribute.Int64("course.id", req.CourseID),
	)

	coupon, err := s.couponRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrCouponNotFound) {
			return s.reject(ctx, span, domain.ErrCouponNotFound)
		}
		span.RecordError(err)
		return nil, err
	}

	// 课程原价用于最低消费与折扣计算，未指定课程时跳过相关校验
	var price float64
	if req.CourseID > 0 {
		course, err := s.catalog.GetCourse(ctx, req.CourseID)
		if err != nil {
			span.RecordError(err)
			return nil, errors.Wrap(err, "failed to fetch course for validation")
		}
		price = course.Price
	}

	if err := coupon.CheckEligibility(s.now(), req.CourseID, price); err != nil {
		return s.reject(ctx, span, err)
	}

	used, err := s.couponRepo.CountRedemptions(ctx, coupon.ID, req.UserID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if used >= coupon.PerUserLimit {
		return s.reject(ctx, span, domain.ErrPerUserLimitReached)
	}

	if coupon.EligibilityRule != "" {
		ok, err := s.ruleEngine.Evaluate(ctx, coupon.EligibilityRule, req.UserID, req.CourseID, price)
		if err != nil {
			span.RecordError(err)
			return nil, errors.Wrap(err, "failed to evaluate eligibility rule")
		}
		if !ok {
			return s.reject(ctx, span, domain.ErrRuleRejected)
		}
	}

	resp := &ValidateCouponResponse{
		Valid:        true,
		CouponID:     coupon.ID,
		Code:         coupon.Code,
		DiscountType: string(coupon.DiscountType),
	}
	if req.CourseID > 0 {
		result := domain.ComputeDiscount(price, coupon)
		resp.OriginalPrice = price
		resp.DiscountAmount = result.DiscountAmount
		resp.FinalPrice = result.FinalPrice
	}

	metrics.CouponValidationTotal.WithLabelValues("valid").Inc()
	span.AddEvent("Coupon validated successfully")
	return resp, nil
}

// reject 把领域拒绝原因包装成结构化裁决返回，不作为 error 上抛。
func (s *CouponService) reject(ctx context.Context, span trace.Span, cause error) (*ValidateCouponResponse, error) {
	reason := domain.ReasonOf(cause)
	if reason == "" {
		return nil, cause
	}
	metrics.CouponValidationTotal.WithLabelValues(reason).Inc()
	span.SetAttributes(attribute.String("coupon.reject_reason", reason))
	logger.Ctx(ctx).Info().Str("reason", reason).Msg("Coupon validation rejected")
	return &ValidateCouponResponse{
		Valid:   false,
		Reason:  reason,
		Message: cause.Error(),
	}, nil
}

// CreateCoupon 管理端新建一张券。
func (s *CouponService) CreateCoupon(ctx context.Context, dto *CouponDTO) (*CouponDTO, error) {
	ctx, span := s.tracer.Start(ctx, "service.CreateCoupon")
	defer span.End()

	coupon, err := fromDTO(dto)
	if err != nil {
		return nil, err
	}
	if err := s.couponRepo.Create(ctx, coupon); err != nil {
		span.RecordError(err)
		return nil, err
	}
	logger.Ctx(ctx).Info().Str("code", coupon.Code).Msg("Coupon created")
	return toDTO(coupon), nil
}

// UpdateCoupon 管理端更新券定义。UsedCount 不受管理端控制，更新时原样保留。
func (s *CouponService) UpdateCoupon(ctx context.Context, dto *CouponDTO) (*CouponDTO, error) {
	ctx, span := s.tracer.Start(ctx, "service.UpdateCoupon")
	defer span.End()

	existing, err := s.couponRepo.FindByID(ctx, dto.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	coupon, err := fromDTO(dto)
	if err != nil {
		return nil, err
	}
	coupon.UsedCount = existing.UsedCount
	if err := s.couponRepo.Update(ctx, coupon); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return toDTO(coupon), nil
}

// DeleteCoupon 管理端删除一张券，历史核销记录保留。
func (s *CouponService) DeleteCoupon(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "service.DeleteCoupon")
	defer span.End()
	return s.couponRepo.Delete(ctx, id)
}

// GetCoupon 按 ID 查询券定义。
func (s *CouponService) GetCoupon(ctx context.Context, id int64) (*CouponDTO, error) {
	coupon, err := s.couponRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDTO(coupon), nil
}

// ListCoupons 分页列出券定义。
func (s *CouponService) ListCoupons(ctx context.Context, offset, limit int) ([]*CouponDTO, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	coupons, err := s.couponRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	dtos := make([]*CouponDTO, 0, len(coupons))
	for _, c := range coupons {
		dtos = append(dtos, toDTO(c))
	}
	return dtos, nil
}

func fromDTO(dto *CouponDTO) (*domain.Coupon, error) {
	dt := domain.DiscountType(dto.DiscountType)
	switch dt {
	case domain.DiscountPercentage:
		if dto.DiscountValue <= 0 || dto.DiscountValue > 100 {
			return nil, errors.New("percentage discount value must be in (0, 100]")
		}
	case domain.DiscountFixed:
		if dto.DiscountValue <= 0 {
			return nil, errors.New("fixed discount value must be positive")
		}
	default:
		return nil, errors.Errorf("unknown discount type: %s", dto.DiscountType)
	}

	perUser := dto.PerUserLimit
	if perUser <= 0 {
		perUser = 1
	}
	return &domain.Coupon{
		ID:              dto.ID,
		Code:            domain.NormalizeCode(dto.Code),
		Description:     dto.Description,
		DiscountType:    dt,
		DiscountValue:   dto.DiscountValue,
		MaxDiscount:     dto.MaxDiscount,
		MinPurchase:     dto.MinPurchase,
		UsageLimit:      dto.UsageLimit,
		PerUserLimit:    perUser,
		UsedCount:       dto.UsedCount,
		ValidFrom:       dto.ValidFrom,
		ValidUntil:      dto.ValidUntil,
		IsActive:        dto.IsActive,
		CourseIDs:       dto.CourseIDs,
		EligibilityRule: dto.EligibilityRule,
	}, nil
}

func toDTO(c *domain.Coupon) *CouponDTO {
	return &CouponDTO{
		ID:              c.ID,
		Code:            c.Code,
		Description:     c.Description,
		DiscountType:    string(c.DiscountType),
		DiscountValue:   c.DiscountValue,
		MaxDiscount:     c.MaxDiscount,
		MinPurchase:     c.MinPurchase,
		UsageLimit:      c.UsageLimit,
		PerUserLimit:    c.PerUserLimit,
		UsedCount:       c.UsedCount,
		ValidFrom:       c.ValidFrom,
		ValidUntil:      c.ValidUntil,
		IsActive:        c.IsActive,
		CourseIDs:       c.CourseIDs,
		EligibilityRule: c.EligibilityRule,
	}
}
