package port

import "context"

// CourseInfo 是校验折扣时需要的课程快照。
type CourseInfo struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Published bool    `json:"published"`
}

// CourseCatalog 是课程目录协作方的端口，用于获取课程原价。
type CourseCatalog interface {
	GetCourse(ctx context.Context, courseID int64) (*CourseInfo, error)
}
