package infrastructure

import "gorm.io/gorm"

// CourseModel 对应数据库中的 course 表。
type CourseModel struct {
	gorm.Model
	Title       string  `gorm:"type:varchar(255);not null"`
	Description string  `gorm:"type:text"`
	Price       float64 `gorm:"type:decimal(10,2);not null"`
	Published   bool    `gorm:"not null;default:false;index"`
}

func (CourseModel) TableName() string {
	return "course"
}
