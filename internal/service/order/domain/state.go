// internal/service/order/domain/state.go
package domain

// State 定义了订单的生命周期状态。
// 订单由结算引擎一次性地从 PENDING 推进到 PAID 或 FAILED，之后不可变。
type State string

const (
	StatePending State = "PENDING" // 已创建，等待网关支付回调
	StatePaid    State = "PAID"    // 结算成功，报名与核销已提交
	StateFailed  State = "FAILED"  // 结算失败（签名、限量竞争等），终态
)

// Terminal 判断状态是否为终态。
func (s State) Terminal() bool {
	return s == StatePaid || s == StateFailed
}
