package application

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"

	"academy/internal/service/order/domain"
)

// fakeCoupon 模拟 coupon 表中参与结算的字段。
type fakeCoupon struct {
	usageLimit   *int64
	perUserLimit int64
	usedCount    int64
}

type fakeRedemption struct {
	couponID int64
	userID   int64
	orderID  string
}

// fakeSettlementStore 在内存中复刻 SettlementStore 的事务语义：
// 互斥锁内先做全部校验再做全部变更，模拟数据库条件更新的原子性。
type fakeSettlementStore struct {
	mu sync.Mutex

	orders      map[string]*domain.Order // by order ID
	byRef       map[string]string        // gateway ref -> order ID
	coupons     map[int64]*fakeCoupon
	userUsage   map[string]int64 // "couponID:userID"
	redemptions []fakeRedemption
	enrollments map[string]bool // "userID:courseID"

	// transientFailures > 0 时 CommitPaid 先返回若干次瞬时错误
	transientFailures int

	// beforeMarkFailed 在置失败取锁前触发，用于模拟并发回调抢先提交终态
	beforeMarkFailed func()
}

func newFakeStore() *fakeSettlementStore {
	return &fakeSettlementStore{
		orders:      make(map[string]*domain.Order),
		byRef:       make(map[string]string),
		coupons:     make(map[int64]*fakeCoupon),
		userUsage:   make(map[string]int64),
		enrollments: make(map[string]bool),
	}
}

func (f *fakeSettlementStore) addOrder(o *domain.Order) {
	f.orders[o.ID] = o
	if o.GatewayOrderRef != "" {
		f.byRef[o.GatewayOrderRef] = o.ID
	}
}

func (f *fakeSettlementStore) FindOrderByGatewayRef(ctx context.Context, ref string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byRef[ref]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *f.orders[id]
	return &cp, nil
}

func (f *fakeSettlementStore) CommitPaid(ctx context.Context, order *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.transientFailures > 0 {
		f.transientFailures--
		return errors.New("db connection reset")
	}

	stored, ok := f.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if stored.Status != domain.StatePending {
		return domain.ErrOrderNotPending
	}

	enrollKey := fmt.Sprintf("%d:%d", stored.UserID, stored.CourseID)

	// 全部校验先行，任何失败都不产生变更
	if f.enrollments[enrollKey] {
		return domain.ErrAlreadyEnrolled
	}
	var coupon *fakeCoupon
	var usageKey string
	if order.AppliedCouponID != nil {
		coupon = f.coupons[*order.AppliedCouponID]
		if coupon.usageLimit != nil && coupon.usedCount >= *coupon.usageLimit {
			return domain.ErrCouponLimitRaceLost
		}
		usageKey = fmt.Sprintf("%d:%d", *order.AppliedCouponID, stored.UserID)
		if f.userUsage[usageKey] >= coupon.perUserLimit {
			return domain.ErrPerUserLimitExceeded
		}
	}

	if coupon != nil {
		coupon.usedCount++
		f.userUsage[usageKey]++
		f.redemptions = append(f.redemptions, fakeRedemption{
			couponID: *order.AppliedCouponID,
			userID:   stored.UserID,
			orderID:  stored.ID,
		})
	}
	f.enrollments[enrollKey] = true
	stored.Status = domain.StatePaid
	order.Status = domain.StatePaid
	return nil
}

func (f *fakeSettlementStore) MarkFailed(ctx context.Context, orderID, reason string) error {
	if f.beforeMarkFailed != nil {
		f.beforeMarkFailed()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if stored.Status != domain.StatePending {
		return domain.ErrOrderNotPending
	}
	stored.Status = domain.StateFailed
	stored.FailureReason = reason
	return nil
}

// fakeGateway 可控的签名校验结果。
type fakeGateway struct {
	verifyOK bool
}

func (g *fakeGateway) CreateGatewayOrder(ctx context.Context, amount float64, receipt string) (string, error) {
	return "order_fake", nil
}

func (g *fakeGateway) VerifySignature(orderRef, paymentRef, signature string) bool {
	return g.verifyOK
}

// fakeNotifier 记录事件，可注入错误验证 fire-and-forget 语义。
type fakeNotifier struct {
	mu     sync.Mutex
	events []*domain.NotificationEvent
	err    error
}

func (n *fakeNotifier) Emit(ctx context.Context, event *domain.NotificationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func i64ptr(v int64) *int64 { return &v }

func pendingOrder(id, ref string, userID, courseID int64, couponID *int64) *domain.Order {
	o := &domain.Order{
		ID:              id,
		UserID:          userID,
		CourseID:        courseID,
		OriginalPrice:   1000,
		DiscountAmount:  200,
		FinalPrice:      800,
		GatewayOrderRef: ref,
		Status:          domain.StatePending,
		AppliedCouponID: couponID,
	}
	return o
}

func newSettlement(store *fakeSettlementStore, gateway *fakeGateway, notifier *fakeNotifier) *SettlementService {
	return NewSettlementService(store, gateway, notifier, otel.Tracer("test"))
}

func TestSettle_Success(t *testing.T) {
	store := newFakeStore()
	store.coupons[7] = &fakeCoupon{usageLimit: i64ptr(10), perUserLimit: 1}
	store.addOrder(pendingOrder("o1", "ref1", 1, 2, i64ptr(7)))
	notifier := &fakeNotifier{}
	svc := newSettlement(store, &fakeGateway{verifyOK: true}, notifier)

	resp, err := svc.Settle(context.Background(), &SettleRequest{
		GatewayOrderRef:   "ref1",
		GatewayPaymentRef: "pay1",
		GatewaySignature:  "sig",
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.StatePaid, resp.Status)
	assert.Equal(t, domain.StatePaid, store.orders["o1"].Status)
	assert.Len(t, store.redemptions, 1)
	assert.Equal(t, int64(1), store.coupons[7].usedCount)
	assert.True(t, store.enrollments["1:2"])
	assert.Len(t, notifier.events, 1)
	assert.Equal(t, domain.EventPaymentConfirmed, notifier.events[0].Type)
}

func TestSettle_NoCoupon(t *testing.T) {
	store := newFakeStore()
	store.addOrder(pendingOrder("o1", "ref1", 1, 2, nil))
	svc := newSettlement(store, &fakeGateway{verifyOK: true}, &fakeNotifier{})

	resp, err := svc.Settle(context.Background(), &SettleRequest{
		GatewayOrderRef: "ref1", GatewayPaymentRef: "pay1", GatewaySignature: "sig",
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.StatePaid, resp.Status)
	assert.Empty(t, store.redemptions)
	assert.True(t, store.enrollments["1:2"])
}

func TestSettle_IdempotentReplay(t *testing.T) {
	store := newFakeStore()
	store.coupons[7] = &fakeCoupon{usageLimit: i64ptr(10), perUserLimit: 1}
	store.addOrder(pendingOrder("o1", "ref1", 1, 2, i64ptr(7)))
	notifier := &fakeNotifier{}
	svc := newSettlement(store, &fakeGateway{verifyOK: true}, notifier)

	req := &SettleRequest{GatewayOrderRef: "ref1", GatewayPaymentRef: "pay1", GatewaySignature: "sig"}
	first, err := svc.Settle(context.Background(), req)
	assert.NoError(t, err)
	second, err := svc.Settle(context.Background(), req)
	assert.NoError(t, err)

	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, first.Status, second.Status)
	// 重放不会产生第二条核销、第二次计数或第二条通知
	assert.Len(t, store.redemptions, 1)
	assert.Equal(t, int64(1), store.coupons[7].usedCount)
	assert.Len(t, notifier.events, 1)
}

func TestSettle_SignatureFailure(t *testing.T) {
	store := newFakeStore()
	store.coupons[7] = &fakeCoupon{usageLimit: i64ptr(10), perUserLimit: 1}
	store.addOrder(pendingOrder("o1", "ref1", 1, 2, i64ptr(7)))
	svc := newSettlement(store, &fakeGateway{verifyOK: false}, &fakeNotifier{})

	resp, err := svc.Settle(context.Background(), &SettleRequest{
		GatewayOrderRef: "ref1", GatewayPaymentRef: "pay1", GatewaySignature: "bad",
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.StateFailed, resp.Status)
	assert.Equal(t, "PaymentVerificationFailed", resp.Reason)
	// 验签失败绝不提交任何核销或报名
	assert.Empty(t, store.redemptions)
	assert.Empty(t, store.enrollments)
	assert.Equal(t, int64(0), store.coupons[7].usedCount)
}

func TestSettle_ConcurrentRaceOnLastUse(t *testing.T) {
	store := newFakeStore()
	store.coupons[7] = &fakeCoupon{usageLimit: i64ptr(1), perUserLimit: 1}
	store.addOrder(pendingOrder("o1", "ref1", 1, 10, i64ptr(7)))
	store.addOrder(pendingOrder("o2", "ref2", 2, 20, i64ptr(7)))
	svc := newSettlement(store, &fakeGateway{verifyOK: true}, &fakeNotifier{})

	var wg sync.WaitGroup
	results := make([]*SettleResponse, 2)
	for i, ref := range []string{"ref1", "ref2"} {
		wg.Add(1)
		go func(i int, ref string) {
			defer wg.Done()
			resp, err := svc.Settle(context.Background(), &SettleRequest{
				GatewayOrderRef: ref, GatewayPaymentRef: "pay", GatewaySignature: "sig",
			})
			assert.NoError(t, err)
			results[i] = resp
		}(i, ref)
	}
	wg.Wait()

	var paid, raceLost int
	for _, r := range results {
		switch r.Status {
		case domain.StatePaid:
			paid++
		case domain.StateFailed:
			assert.Equal(t, "CouponLimitRaceLost", r.Reason)
			raceLost++
		}
	}
	// 恰好一单成功拿到最后一个名额，另一单明确失败
	assert.Equal(t, 1, paid)
	assert.Equal(t, 1, raceLost)
	assert.Equal(t, int64(1), store.coupons[7].usedCount)
	assert.Len(t, store.redemptions, 1)
}

func TestSettle_FailureRacesWithConcurrentPaidCallback(t *testing.T) {
	store := newFakeStore()
	store.addOrder(pendingOrder("o1", "ref1", 1, 2, nil))
	// 本次回调验签失败，但另一个合法回调在置失败之前已把订单结算为 PAID
	store.beforeMarkFailed = func() {
		store.mu.Lock()
		store.orders["o1"].Status = domain.StatePaid
		store.mu.Unlock()
	}
	notifier := &fakeNotifier{}
	svc := newSettlement(store, &fakeGateway{verifyOK: false}, notifier)

	resp, err := svc.Settle(context.Background(), &SettleRequest{
		GatewayOrderRef: "ref1", GatewayPaymentRef: "pay1", GatewaySignature: "bad",
	})

	assert.NoError(t, err)
	// 返回数据库里的真实终态，而不是一个虚假的 FAILED
	assert.Equal(t, domain.StatePaid, resp.Status)
	assert.Empty(t, resp.Reason)
	assert.Equal(t, domain.StatePaid, store.orders["o1"].Status)
	// 订单实际是 PAID，不应发出支付失败通知
	assert.Empty(t, notifier.events)
}

func TestSettle_PerUserLimit(t *testing.T) {
	store := newFakeStore()
	store.coupons[7] = &fakeCoupon{usageLimit: i64ptr(100), perUserLimit: 1}
	store.userUsage["7:1"] = 1 // 该用户已核销过一次
	store.addOrder(pendingOrder("o1", "ref1", 1, 2, i64ptr(7)))
	svc := newSettlement(store, &fakeGateway{verifyOK: true}, &fakeNotifier{})

	resp, err := svc.Settle(context.Background(), &SettleRequest{
		GatewayOrderRef: "ref1", GatewayPaymentRef: "pay1", GatewaySignature: "sig",
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.StateFailed, resp.Status)
	assert.Equal(t, "PerUserLimitExceeded", resp.Reason)
	assert.Equal(t, int64(1), store.userUsage["7:1"])
}

func TestSettle_TransientErrorRetried(t *testing.T) {
	store := newFakeStore()
	store.addOrder(pendingOrder("o1", "ref1", 1, 2, nil))
	store.transientFailures = 2
	svc := newSettlement(store, &fakeGateway{verifyOK: true}, &fakeNotifier{})

	resp, err := svc.Settle(context.Background(), &SettleRequest{
		GatewayOrderRef: "ref1", GatewayPaymentRef: "pay1", GatewaySignature: "sig",
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.StatePaid, resp.Status)
}

func TestSettle_RetriesExhaustedLeavesOrderPending(t *testing.T) {
	store := newFakeStore()
	store.addOrder(pendingOrder("o1", "ref1", 1, 2, nil))
	store.transientFailures = 100
	svc := newSettlement(store, &fakeGateway{verifyOK: true}, &fakeNotifier{})

	_, err := svc.Settle(context.Background(), &SettleRequest{
		GatewayOrderRef: "ref1", GatewayPaymentRef: "pay1", GatewaySignature: "sig",
	})

	assert.Error(t, err)
	// 瞬时错误耗尽重试后订单保持 PENDING，交给人工对账
	assert.Equal(t, domain.StatePending, store.orders["o1"].Status)
}

func TestSettle_OrderNotFound(t *testing.T) {
	svc := newSettlement(newFakeStore(), &fakeGateway{verifyOK: true}, &fakeNotifier{})

	_, err := svc.Settle(context.Background(), &SettleRequest{
		GatewayOrderRef: "missing", GatewayPaymentRef: "p", GatewaySignature: "s",
	})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestSettle_NotifierFailureDoesNotAffectSettlement(t *testing.T) {
	store := newFakeStore()
	store.addOrder(pendingOrder("o1", "ref1", 1, 2, nil))
	notifier := &fakeNotifier{err: errors.New("kafka unavailable")}
	svc := newSettlement(store, &fakeGateway{verifyOK: true}, notifier)

	resp, err := svc.Settle(context.Background(), &SettleRequest{
		GatewayOrderRef: "ref1", GatewayPaymentRef: "pay1", GatewaySignature: "sig",
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.StatePaid, resp.Status)
	assert.Equal(t, domain.StatePaid, store.orders["o1"].Status)
}
