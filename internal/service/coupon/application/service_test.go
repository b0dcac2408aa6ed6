package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.opentelemetry.io/otel"

	"academy/internal/service/coupon/domain"
	"academy/internal/service/coupon/port"
)

type mockCouponRepo struct{ mock.Mock }

func (m *mockCouponRepo) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	args := m.Called(ctx, code)
	if c := args.Get(0); c != nil {
		return c.(*domain.Coupon), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCouponRepo) FindByID(ctx context.Context, id int64) (*domain.Coupon, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		return c.(*domain.Coupon), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCouponRepo) List(ctx context.Context, offset, limit int) ([]*domain.Coupon, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]*domain.Coupon), args.Error(1)
}

func (m *mockCouponRepo) Create(ctx context.Context, coupon *domain.Coupon) error {
	return m.Called(ctx, coupon).Error(0)
}

func (m *mockCouponRepo) Update(ctx context.Context, coupon *domain.Coupon) error {
	return m.Called(ctx, coupon).Error(0)
}

func (m *mockCouponRepo) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCouponRepo) CountRedemptions(ctx context.Context, couponID, userID int64) (int64, error) {
	args := m.Called(ctx, couponID, userID)
	return args.Get(0).(int64), args.Error(1)
}

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) GetCourse(ctx context.Context, courseID int64) (*port.CourseInfo, error) {
	args := m.Called(ctx, courseID)
	if c := args.Get(0); c != nil {
		return c.(*port.CourseInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockRuleEngine struct{ mock.Mock }

func (m *mockRuleEngine) Evaluate(ctx context.Context, rule string, userID, courseID int64, price float64) (bool, error) {
	args := m.Called(ctx, rule, userID, courseID, price)
	return args.Bool(0), args.Error(1)
}

func newTestService(repo *mockCouponRepo, catalog *mockCatalog, engine *mockRuleEngine) *CouponService {
	return NewCouponService(repo, catalog, engine, otel.Tracer("test"))
}

func testCoupon() *domain.Coupon {
	return &domain.Coupon{
		ID:            7,
		Code:          "WELCOME20",
		DiscountType:  domain.DiscountPercentage,
		DiscountValue: 20,
		PerUserLimit:  1,
		IsActive:      true,
	}
}

func TestValidate_Success(t *testing.T) {
	repo := new(mockCouponRepo)
	catalog := new(mockCatalog)
	engine := new(mockRuleEngine)
	svc := newTestService(repo, catalog, engine)

	repo.On("FindByCode", mock.Anything, "WELCOME20").Return(testCoupon(), nil)
	catalog.On("GetCourse", mock.Anything, int64(3)).
		Return(&port.CourseInfo{ID: 3, Price: 1000, Published: true}, nil)
	repo.On("CountRedemptions", mock.Anything, int64(7), int64(42)).Return(int64(0), nil)

	resp, err := svc.Validate(context.Background(), &ValidateCouponRequest{
		Code:     "  welcome20 ", // 归一化应由服务完成
		CourseID: 3,
		UserID:   42,
	})

	assert.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Equal(t, int64(7), resp.CouponID)
	assert.Equal(t, 1000.0, resp.OriginalPrice)
	assert.Equal(t, 200.0, resp.DiscountAmount)
	assert.Equal(t, 800.0, resp.FinalPrice)
	repo.AssertExpectations(t)
}

func TestValidate_NoCourseSkipsPurchaseChecks(t *testing.T) {
	repo := new(mockCouponRepo)
	catalog := new(mockCatalog)
	svc := newTestService(repo, catalog, new(mockRuleEngine))

	c := testCoupon()
	minPurchase := 500.0
	c.MinPurchase = &minPurchase
	repo.On("FindByCode", mock.Anything, "WELCOME20").Return(c, nil)
	repo.On("CountRedemptions", mock.Anything, int64(7), int64(42)).Return(int64(0), nil)

	resp, err := svc.Validate(context.Background(), &ValidateCouponRequest{
		Code:   "WELCOME20",
		UserID: 42, // 未指定课程
	})

	assert.NoError(t, err)
	// 没有课程就没有可比较的原价，最低消费不应把券拦下
	assert.True(t, resp.Valid)
	assert.Equal(t, int64(7), resp.CouponID)
	assert.Zero(t, resp.OriginalPrice)
	assert.Zero(t, resp.DiscountAmount)
	assert.Zero(t, resp.FinalPrice)
	catalog.AssertNotCalled(t, "GetCourse", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestValidate_NotFound(t *testing.T) {
	repo := new(mockCouponRepo)
	svc := newTestService(repo, new(mockCatalog), new(mockRuleEngine))

	repo.On("FindByCode", mock.Anything, "NOPE").Return(nil, domain.ErrCouponNotFound)

	resp, err := svc.Validate(context.Background(), &ValidateCouponRequest{Code: "nope", UserID: 1})

	assert.NoError(t, err)
	assert.False(t, resp.Valid)
	assert.Equal(t, "CouponNotFound", resp.Reason)
}

func TestValidate_PerUserLimitReached(t *testing.T) {
	repo := new(mockCouponRepo)
	catalog := new(mockCatalog)
	svc := newTestService(repo, catalog, new(mockRuleEngine))

	repo.On("FindByCode", mock.Anything, "WELCOME20").Return(testCoupon(), nil)
	catalog.On("GetCourse", mock.Anything, int64(3)).
		Return(&port.CourseInfo{ID: 3, Price: 1000}, nil)
	repo.On("CountRedemptions", mock.Anything, int64(7), int64(42)).Return(int64(1), nil)

	resp, err := svc.Validate(context.Background(), &ValidateCouponRequest{
		Code: "WELCOME20", CourseID: 3, UserID: 42,
	})

	assert.NoError(t, err)
	assert.False(t, resp.Valid)
	assert.Equal(t, "PerUserLimitReached", resp.Reason)
}

func TestValidate_NotYetValid(t *testing.T) {
	repo := new(mockCouponRepo)
	catalog := new(mockCatalog)
	svc := newTestService(repo, catalog, new(mockRuleEngine))

	c := testCoupon()
	tomorrow := time.Now().Add(24 * time.Hour)
	c.ValidFrom = &tomorrow
	repo.On("FindByCode", mock.Anything, "WELCOME20").Return(c, nil)
	catalog.On("GetCourse", mock.Anything, int64(3)).
		Return(&port.CourseInfo{ID: 3, Price: 1000}, nil)

	resp, err := svc.Validate(context.Background(), &ValidateCouponRequest{
		Code: "WELCOME20", CourseID: 3, UserID: 42,
	})

	assert.NoError(t, err)
	assert.False(t, resp.Valid)
	assert.Equal(t, "CouponNotYetValid", resp.Reason)
	// 被时间窗拦下后不应继续查单用户次数
	repo.AssertNotCalled(t, "CountRedemptions", mock.Anything, mock.Anything, mock.Anything)
}

func TestValidate_RuleRejected(t *testing.T) {
	repo := new(mockCouponRepo)
	catalog := new(mockCatalog)
	engine := new(mockRuleEngine)
	svc := newTestService(repo, catalog, engine)

	c := testCoupon()
	c.EligibilityRule = `price >= 2000.0`
	repo.On("FindByCode", mock.Anything, "WELCOME20").Return(c, nil)
	catalog.On("GetCourse", mock.Anything, int64(3)).
		Return(&port.CourseInfo{ID: 3, Price: 1000}, nil)
	repo.On("CountRedemptions", mock.Anything, int64(7), int64(42)).Return(int64(0), nil)
	engine.On("Evaluate", mock.Anything, c.EligibilityRule, int64(42), int64(3), 1000.0).
		Return(false, nil)

	resp, err := svc.Validate(context.Background(), &ValidateCouponRequest{
		Code: "WELCOME20", CourseID: 3, UserID: 42,
	})

	assert.NoError(t, err)
	assert.False(t, resp.Valid)
	assert.Equal(t, "CouponNotEligible", resp.Reason)
}

func TestValidate_Idempotent(t *testing.T) {
	repo := new(mockCouponRepo)
	catalog := new(mockCatalog)
	svc := newTestService(repo, catalog, new(mockRuleEngine))

	repo.On("FindByCode", mock.Anything, "WELCOME20").Return(testCoupon(), nil)
	catalog.On("GetCourse", mock.Anything, int64(3)).
		Return(&port.CourseInfo{ID: 3, Price: 1000}, nil)
	repo.On("CountRedemptions", mock.Anything, int64(7), int64(42)).Return(int64(0), nil)

	req := &ValidateCouponRequest{Code: "WELCOME20", CourseID: 3, UserID: 42}
	first, err := svc.Validate(context.Background(), req)
	assert.NoError(t, err)
	second, err := svc.Validate(context.Background(), req)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCreateCoupon_RejectsInvalidPercentage(t *testing.T) {
	svc := newTestService(new(mockCouponRepo), new(mockCatalog), new(mockRuleEngine))

	_, err := svc.CreateCoupon(context.Background(), &CouponDTO{
		Code:          "BAD",
		DiscountType:  "PERCENTAGE",
		DiscountValue: 120,
	})
	assert.Error(t, err)
}

func TestCreateCoupon_DefaultsPerUserLimit(t *testing.T) {
	repo := new(mockCouponRepo)
	svc := newTestService(repo, new(mockCatalog), new(mockRuleEngine))

	repo.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Coupon) bool {
		return c.PerUserLimit == 1 && c.Code == "SAVE10"
	})).Return(nil)

	dto, err := svc.CreateCoupon(context.Background(), &CouponDTO{
		Code:          "save10",
		DiscountType:  "FIXED",
		DiscountValue: 10,
		IsActive:      true,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), dto.PerUserLimit)
	repo.AssertExpectations(t)
}
