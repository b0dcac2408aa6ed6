package port

import "context"

// CourseInfo 是下单时需要的课程快照。
type CourseInfo struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Published bool    `json:"published"`
}

// CourseCatalog 是课程目录协作方的出站端口。
type CourseCatalog interface {
	GetCourse(ctx context.Context, courseID int64) (*CourseInfo, error)
}
