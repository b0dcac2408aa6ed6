package domain

import "context"

// CourseRepository 定义课程的持久化接口。
type CourseRepository interface {
	FindByID(ctx context.Context, id int64) (*Course, error)
	List(ctx context.Context, offset, limit int) ([]*Course, error)
	Create(ctx context.Context, course *Course) error
	Update(ctx context.Context, course *Course) error
	Delete(ctx context.Context, id int64) error
}
