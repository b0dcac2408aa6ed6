// internal/service/order/domain/repository.go
package domain

import "context"

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，但由基础设施层实现。
type OrderRepository interface {
	// Create 插入一笔新的 PENDING 订单。
	Create(ctx context.Context, order *Order) error

	// FindByID 根据 ID 查找一个订单聚合。
	FindByID(ctx context.Context, id string) (*Order, error)

	// UpdateGatewayRef 回填支付网关的订单号。
	UpdateGatewayRef(ctx context.Context, id, gatewayRef string) error

	// HasEnrollment 判断用户是否已持有某课程的有效报名。
	HasEnrollment(ctx context.Context, userID, courseID int64) (bool, error)

	// MarkFailed 条件更新：仅当订单仍为 PENDING 时置为 FAILED。
	// 已到终态时不报错也不覆盖（幂等）。
	MarkFailed(ctx context.Context, id, reason string) error
}

// SettlementStore 是结算引擎的事务端口。
// 实现必须保证 CommitPaid 的所有写操作在一个数据库事务内完成，
// 且券余量的扣减是条件更新（UPDATE ... WHERE used_count < usage_limit），
// 绝不能读出再写回。
type SettlementStore interface {
	// FindOrderByGatewayRef 按网关订单号查找订单，缺失返回 ErrOrderNotFound。
	FindOrderByGatewayRef(ctx context.Context, gatewayRef string) (*Order, error)

	// CommitPaid 在单个事务中提交结算：
	// 条件递增券的 used_count、锁定并递增用户核销计数、插入 Redemption、
	// 插入 Enrollment、订单 PENDING→PAID。
	// 余量被并发耗尽返回 ErrCouponLimitRaceLost；
	// 用户核销次数超限返回 ErrPerUserLimitExceeded；
	// 用户已报名返回 ErrAlreadyEnrolled。任何错误都回滚全部写操作。
	CommitPaid(ctx context.Context, order *Order) error

	// MarkFailed 将 PENDING 订单置为 FAILED 并记录原因码。
	// 订单已不是 PENDING 时不做任何覆盖，返回 ErrOrderNotPending。
	MarkFailed(ctx context.Context, orderID, reason string) error
}
