package domain

import "context"

// NotificationRepository 定义通知的持久化接口。
type NotificationRepository interface {
	// Save 插入一条通知记录并回填 ID。
	Save(ctx context.Context, n *Notification) error

	// MarkDelivered 标记通知已实时送达。
	MarkDelivered(ctx context.Context, id int64) error

	// ListByUser 按时间倒序返回用户的通知。
	ListByUser(ctx context.Context, userID int64, limit int) ([]*Notification, error)
}
