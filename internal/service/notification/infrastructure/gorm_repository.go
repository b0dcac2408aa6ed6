package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"academy/internal/service/notification/domain"
)

// GormNotificationRepository 是 NotificationRepository 的 GORM 实现。
type GormNotificationRepository struct {
	db *gorm.DB
}

func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) Save(ctx context.Context, n *domain.Notification) error {
	model := &NotificationModel{
		UserID:    n.UserID,
		OrderID:   n.OrderID,
		CourseID:  n.CourseID,
		Type:      n.Type,
		Message:   n.Message,
		Delivered: n.Delivered,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return errors.Wrap(err, "failed to save notification")
	}
	n.ID = int64(model.ID)
	n.CreatedAt = model.CreatedAt
	return nil
}

func (r *GormNotificationRepository) MarkDelivered(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Model(&NotificationModel{}).
		Where("id = ?", id).
		Update("delivered", true).Error
	return errors.Wrap(err, "failed to mark notification delivered")
}

func (r *GormNotificationRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.Notification, error) {
	var models []NotificationModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notifications")
	}

	notifications := make([]*domain.Notification, 0, len(models))
	for i := range models {
		m := &models[i]
		notifications = append(notifications, &domain.Notification{
			ID:        int64(m.ID),
			UserID:    m.UserID,
			OrderID:   m.OrderID,
			CourseID:  m.CourseID,
			Type:      m.Type,
			Message:   m.Message,
			Delivered: m.Delivered,
			CreatedAt: m.CreatedAt,
		})
	}
	return notifications, nil
}
