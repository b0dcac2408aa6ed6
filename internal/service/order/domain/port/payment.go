package port

import "context"

// PaymentGateway 是外部支付网关的出站端口。
// 网关被视为不透明的协作方：只负责创建订单句柄和校验回调签名。
type PaymentGateway interface {
	// CreateGatewayOrder 为指定金额申请一个网关订单号。
	// amount 为主货币单位（元），适配器内部换算为网关要求的最小单位。
	CreateGatewayOrder(ctx context.Context, amount float64, receipt string) (gatewayOrderRef string, err error)

	// VerifySignature 用共享密钥校验支付回调的签名。
	VerifySignature(gatewayOrderRef, gatewayPaymentRef, signature string) bool
}
