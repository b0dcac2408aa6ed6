package constants

// 服务名，注册到 Nacos 并用于服务发现。
const (
	CouponServiceName       = "coupon-service"
	OrderServiceName        = "order-service"
	CatalogServiceName      = "catalog-service"
	NotificationServiceName = "notification-service"
	PushGatewayServiceName  = "push-gateway"
)

// Kafka 主题。
const (
	// NotificationTopic 承载结算完成后的通知事件（支付成功 / 失败 / 报名成功）
	NotificationTopic = "academy_notifications"
	// NotificationDLT 通知消费失败后的死信主题
	NotificationDLT = "academy_notifications.DLT"

	// OrderTimeoutCheckTopic 支付超时检查事件，由延迟调度器在到期后投递
	OrderTimeoutCheckTopic = "order_timeout_check"
	// OrderTimeoutCheckDLT 超时检查消费失败后的死信主题
	OrderTimeoutCheckDLT = "order_timeout_check.DLT"

	// PushTopicPrefix 推送网关按节点订阅的主题前缀，完整主题为 prefix + nodeID
	PushTopicPrefix = "push_node_"
)

// 延迟消息主题，按延迟等级划分，调度器轮询这些主题并按时投递。
const (
	DelayTopic5s  = "delay_topic_5s"
	DelayTopic1m  = "delay_topic_1m"
	DelayTopic10m = "delay_topic_10m"
)

// 延迟消息头。
const (
	HeaderRealTopic      = "x-real-topic"
	HeaderDelayTimestamp = "x-delay-timestamp"
)
