package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.opentelemetry.io/otel"

	"academy/internal/service/order/domain"
	"academy/internal/service/order/domain/port"
)

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepo) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepo) UpdateGatewayRef(ctx context.Context, id, gatewayRef string) error {
	args := m.Called(ctx, id, gatewayRef)
	return args.Error(0)
}

func (m *mockOrderRepo) HasEnrollment(ctx context.Context, userID, courseID int64) (bool, error) {
	args := m.Called(ctx, userID, courseID)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrderRepo) MarkFailed(ctx context.Context, id, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

type mockCouponService struct {
	mock.Mock
}

func (m *mockCouponService) Validate(ctx context.Context, code string, courseID, userID int64) (*port.CouponVerdict, error) {
	args := m.Called(ctx, code, courseID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.CouponVerdict), args.Error(1)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) GetCourse(ctx context.Context, courseID int64) (*port.CourseInfo, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.CourseInfo), args.Error(1)
}

type mockPaymentGateway struct {
	mock.Mock
}

func (m *mockPaymentGateway) CreateGatewayOrder(ctx context.Context, amount float64, receipt string) (string, error) {
	args := m.Called(ctx, amount, receipt)
	return args.String(0), args.Error(1)
}

func (m *mockPaymentGateway) VerifySignature(orderRef, paymentRef, signature string) bool {
	args := m.Called(orderRef, paymentRef, signature)
	return args.Bool(0)
}

type mockScheduler struct {
	mock.Mock
}

func (m *mockScheduler) SchedulePaymentTimeout(ctx context.Context, orderID string, userID int64, creationTime time.Time) error {
	args := m.Called(ctx, orderID, userID, creationTime)
	return args.Error(0)
}

type checkoutFixture struct {
	repo      *mockOrderRepo
	coupons   *mockCouponService
	catalog   *mockCatalog
	gateway   *mockPaymentGateway
	scheduler *mockScheduler
	svc       *OrderApplicationService
}

func newCheckoutFixture() *checkoutFixture {
	f := &checkoutFixture{
		repo:      new(mockOrderRepo),
		coupons:   new(mockCouponService),
		catalog:   new(mockCatalog),
		gateway:   new(mockPaymentGateway),
		scheduler: new(mockScheduler),
	}
	f.svc = NewOrderApplicationService(
		f.repo, 5*time.Second, otel.Tracer("test"),
		f.coupons, f.catalog, f.gateway, f.scheduler,
	)
	return f
}

func TestCreateOrder_SuccessWithCoupon(t *testing.T) {
	f := newCheckoutFixture()

	f.repo.On("HasEnrollment", mock.Anything, int64(1), int64(2)).Return(false, nil)
	f.catalog.On("GetCourse", mock.Anything, int64(2)).
		Return(&port.CourseInfo{ID: 2, Title: "Go in Practice", Price: 1000, Published: true}, nil)
	f.coupons.On("Validate", mock.Anything, "WELCOME20", int64(2), int64(1)).
		Return(&port.CouponVerdict{
			Valid: true, CouponID: 7, Code: "WELCOME20",
			OriginalPrice: 1000, DiscountAmount: 200, FinalPrice: 800,
		}, nil)
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil)
	f.gateway.On("CreateGatewayOrder", mock.Anything, float64(800), mock.AnythingOfType("string")).
		Return("gw_ref_123", nil)
	f.repo.On("UpdateGatewayRef", mock.Anything, mock.AnythingOfType("string"), "gw_ref_123").Return(nil)
	f.scheduler.On("SchedulePaymentTimeout", mock.Anything, mock.AnythingOfType("string"), int64(1), mock.AnythingOfType("time.Time")).
		Return(nil)

	resp, err := f.svc.CreateOrder(context.Background(), &CreateOrderRequest{
		UserID: 1, CourseID: 2, CouponCode: "WELCOME20",
	})

	assert.NoError(t, err)
	assert.NotEmpty(t, resp.OrderID)
	assert.Equal(t, "gw_ref_123", resp.GatewayOrderRef)
	// 价格以服务端复核结果为准
	assert.Equal(t, float64(1000), resp.OriginalPrice)
	assert.Equal(t, float64(200), resp.DiscountAmount)
	assert.Equal(t, float64(800), resp.FinalPrice)
	assert.Equal(t, domain.StatePending, resp.Status)
	f.repo.AssertExpectations(t)
	f.gateway.AssertExpectations(t)
	f.scheduler.AssertExpectations(t)
}

func TestCreateOrder_WithoutCoupon(t *testing.T) {
	f := newCheckoutFixture()

	f.repo.On("HasEnrollment", mock.Anything, int64(1), int64(2)).Return(false, nil)
	f.catalog.On("GetCourse", mock.Anything, int64(2)).
		Return(&port.CourseInfo{ID: 2, Price: 500, Published: true}, nil)
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil)
	f.gateway.On("CreateGatewayOrder", mock.Anything, float64(500), mock.AnythingOfType("string")).
		Return("gw_ref_9", nil)
	f.repo.On("UpdateGatewayRef", mock.Anything, mock.AnythingOfType("string"), "gw_ref_9").Return(nil)
	f.scheduler.On("SchedulePaymentTimeout", mock.Anything, mock.AnythingOfType("string"), int64(1), mock.AnythingOfType("time.Time")).
		Return(nil)

	resp, err := f.svc.CreateOrder(context.Background(), &CreateOrderRequest{UserID: 1, CourseID: 2})

	assert.NoError(t, err)
	assert.Equal(t, float64(0), resp.DiscountAmount)
	assert.Equal(t, float64(500), resp.FinalPrice)
	// 未带券时不应调用优惠券服务
	f.coupons.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrder_AlreadyEnrolled(t *testing.T) {
	f := newCheckoutFixture()

	f.repo.On("HasEnrollment", mock.Anything, int64(1), int64(2)).Return(true, nil)

	_, err := f.svc.CreateOrder(context.Background(), &CreateOrderRequest{UserID: 1, CourseID: 2})

	assert.ErrorIs(t, err, domain.ErrAlreadyEnrolled)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.gateway.AssertNotCalled(t, "CreateGatewayOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrder_CouponRejected(t *testing.T) {
	f := newCheckoutFixture()

	f.repo.On("HasEnrollment", mock.Anything, int64(1), int64(2)).Return(false, nil)
	f.catalog.On("GetCourse", mock.Anything, int64(2)).
		Return(&port.CourseInfo{ID: 2, Price: 1000, Published: true}, nil)
	f.coupons.On("Validate", mock.Anything, "EXPIRED", int64(2), int64(1)).
		Return(&port.CouponVerdict{Valid: false, Reason: "CouponExpired", Message: "coupon has expired"}, nil)

	_, err := f.svc.CreateOrder(context.Background(), &CreateOrderRequest{
		UserID: 1, CourseID: 2, CouponCode: "EXPIRED",
	})

	assert.ErrorIs(t, err, domain.ErrCouponRejected)
	assert.Contains(t, err.Error(), "CouponExpired")
	// 被拒绝的券不产生订单
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateOrder_UnpublishedCourse(t *testing.T) {
	f := newCheckoutFixture()

	f.repo.On("HasEnrollment", mock.Anything, int64(1), int64(2)).Return(false, nil)
	f.catalog.On("GetCourse", mock.Anything, int64(2)).
		Return(&port.CourseInfo{ID: 2, Price: 1000, Published: false}, nil)

	_, err := f.svc.CreateOrder(context.Background(), &CreateOrderRequest{UserID: 1, CourseID: 2})

	assert.Error(t, err)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateOrder_GatewayFailureCompensates(t *testing.T) {
	f := newCheckoutFixture()

	f.repo.On("HasEnrollment", mock.Anything, int64(1), int64(2)).Return(false, nil)
	f.catalog.On("GetCourse", mock.Anything, int64(2)).
		Return(&port.CourseInfo{ID: 2, Price: 1000, Published: true}, nil)
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil)
	f.gateway.On("CreateGatewayOrder", mock.Anything, float64(1000), mock.AnythingOfType("string")).
		Return("", assert.AnError)
	f.repo.On("MarkFailed", mock.Anything, mock.AnythingOfType("string"), "CheckoutAborted").Return(nil)

	_, err := f.svc.CreateOrder(context.Background(), &CreateOrderRequest{UserID: 1, CourseID: 2})

	assert.Error(t, err)
	// 网关建单失败后补偿链将已落库的订单标记为 FAILED
	f.repo.AssertCalled(t, "MarkFailed", mock.Anything, mock.AnythingOfType("string"), "CheckoutAborted")
}

func TestCreateOrder_SchedulerFailureIsNonFatal(t *testing.T) {
	f := newCheckoutFixture()

	f.repo.On("HasEnrollment", mock.Anything, int64(1), int64(2)).Return(false, nil)
	f.catalog.On("GetCourse", mock.Anything, int64(2)).
		Return(&port.CourseInfo{ID: 2, Price: 1000, Published: true}, nil)
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil)
	f.gateway.On("CreateGatewayOrder", mock.Anything, float64(1000), mock.AnythingOfType("string")).
		Return("gw_ref_1", nil)
	f.repo.On("UpdateGatewayRef", mock.Anything, mock.AnythingOfType("string"), "gw_ref_1").Return(nil)
	f.scheduler.On("SchedulePaymentTimeout", mock.Anything, mock.AnythingOfType("string"), int64(1), mock.AnythingOfType("time.Time")).
		Return(assert.AnError)

	resp, err := f.svc.CreateOrder(context.Background(), &CreateOrderRequest{UserID: 1, CourseID: 2})

	// 延迟任务投递失败只记日志，下单仍然成功
	assert.NoError(t, err)
	assert.Equal(t, domain.StatePending, resp.Status)
}

func TestProcessTimeoutCheck_MarksPendingOrderFailed(t *testing.T) {
	f := newCheckoutFixture()

	order := &domain.Order{ID: "o1", Status: domain.StatePending}
	f.repo.On("FindByID", mock.Anything, "o1").Return(order, nil)
	f.repo.On("MarkFailed", mock.Anything, "o1", "PaymentTimeout").Return(nil)

	err := f.svc.ProcessTimeoutCheck(context.Background(), &domain.OrderTimeoutCheckEvent{OrderID: "o1", UserID: 1})

	assert.NoError(t, err)
	f.repo.AssertExpectations(t)
}

func TestProcessTimeoutCheck_SkipsTerminalOrder(t *testing.T) {
	f := newCheckoutFixture()

	order := &domain.Order{ID: "o1", Status: domain.StatePaid}
	f.repo.On("FindByID", mock.Anything, "o1").Return(order, nil)

	err := f.svc.ProcessTimeoutCheck(context.Background(), &domain.OrderTimeoutCheckEvent{OrderID: "o1", UserID: 1})

	assert.NoError(t, err)
	f.repo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessTimeoutCheck_MissingOrderDiscarded(t *testing.T) {
	f := newCheckoutFixture()

	f.repo.On("FindByID", mock.Anything, "gone").Return(nil, domain.ErrOrderNotFound)

	err := f.svc.ProcessTimeoutCheck(context.Background(), &domain.OrderTimeoutCheckEvent{OrderID: "gone", UserID: 1})

	assert.NoError(t, err)
}
