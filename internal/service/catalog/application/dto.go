package application

// CourseDTO 是课程的对外数据结构。
// order 服务下单时按此结构读取价格与发布状态。
type CourseDTO struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Published   bool    `json:"published"`
}

// SaveCourseRequest 是课程创建/更新的输入数据。
type SaveCourseRequest struct {
	ID          int64   `json:"id,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Published   bool    `json:"published"`
}
