package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"academy/internal/service/catalog/domain"
)

// GormCourseRepository 是 CourseRepository 的 GORM 实现。
type GormCourseRepository struct {
	db *gorm.DB
}

func NewGormCourseRepository(db *gorm.DB) *GormCourseRepository {
	return &GormCourseRepository{db: db}
}

func (r *GormCourseRepository) FindByID(ctx context.Context, id int64) (*domain.Course, error) {
	var model CourseModel
	err := r.db.WithContext(ctx).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCourseNotFound
		}
		return nil, errors.Wrap(err, "failed to find course")
	}
	return toDomainCourse(&model), nil
}

func (r *GormCourseRepository) List(ctx context.Context, offset, limit int) ([]*domain.Course, error) {
	var models []CourseModel
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list courses")
	}
	courses := make([]*domain.Course, 0, len(models))
	for i := range models {
		courses = append(courses, toDomainCourse(&models[i]))
	}
	return courses, nil
}

func (r *GormCourseRepository) Create(ctx context.Context, course *domain.Course) error {
	model := fromDomainCourse(course)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return errors.Wrap(err, "failed to create course")
	}
	course.ID = int64(model.ID)
	return nil
}

func (r *GormCourseRepository) Update(ctx context.Context, course *domain.Course) error {
	result := r.db.WithContext(ctx).Model(&CourseModel{}).
		Where("id = ?", course.ID).
		Updates(map[string]interface{}{
			"title":       course.Title,
			"description": course.Description,
			"price":       course.Price,
			"published":   course.Published,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update course")
	}
	if result.RowsAffected == 0 {
		return domain.ErrCourseNotFound
	}
	return nil
}

func (r *GormCourseRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&CourseModel{}, id)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete course")
	}
	if result.RowsAffected == 0 {
		return domain.ErrCourseNotFound
	}
	return nil
}

func toDomainCourse(m *CourseModel) *domain.Course {
	return &domain.Course{
		ID:          int64(m.ID),
		Title:       m.Title,
		Description: m.Description,
		Price:       m.Price,
		Published:   m.Published,
	}
}

func fromDomainCourse(c *domain.Course) *CourseModel {
	model := &CourseModel{
		Title:       c.Title,
		Description: c.Description,
		Price:       c.Price,
		Published:   c.Published,
	}
	if c.ID > 0 {
		model.ID = uint(c.ID)
	}
	return model
}
