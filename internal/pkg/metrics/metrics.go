package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 结算与核销相关的业务指标，通过 bootstrap 暴露的 /metrics 端点采集。
var (
	// CheckoutTotal 按结果统计下单请求（created / rejected）
	CheckoutTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "academy",
		Subsystem: "order",
		Name:      "checkout_total",
		Help:      "Total checkout attempts by outcome.",
	}, []string{"outcome"})

	// SettlementTotal 按结果统计支付结算（paid / failed / replayed / race_lost）
	SettlementTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "academy",
		Subsystem: "order",
		Name:      "settlement_total",
		Help:      "Total payment settlements by outcome.",
	}, []string{"outcome"})

	// SettlementDuration 结算事务耗时
	SettlementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "academy",
		Subsystem: "order",
		Name:      "settlement_duration_seconds",
		Help:      "Time spent inside the settlement transaction.",
		Buckets:   prometheus.DefBuckets,
	})

	// CouponValidationTotal 按裁决统计优惠券校验（valid / 各类拒绝原因）
	CouponValidationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "academy",
		Subsystem: "coupon",
		Name:      "validation_total",
		Help:      "Total coupon validations by verdict.",
	}, []string{"verdict"})
)
