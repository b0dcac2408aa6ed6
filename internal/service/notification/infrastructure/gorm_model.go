package infrastructure

import "gorm.io/gorm"

// NotificationModel 对应数据库中的 notification 表。
type NotificationModel struct {
	gorm.Model
	UserID    int64  `gorm:"not null;index"`
	OrderID   string `gorm:"type:varchar(36);not null"`
	CourseID  int64  `gorm:"not null"`
	Type      string `gorm:"type:varchar(32);not null"`
	Message   string `gorm:"type:text"`
	Delivered bool   `gorm:"not null;default:false"`
}

func (NotificationModel) TableName() string {
	return "notification"
}
