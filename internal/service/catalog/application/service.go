package application

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"academy/internal/pkg/logger"
	"academy/internal/service/catalog/domain"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// CatalogService 封装课程目录的应用用例。
type CatalogService struct {
	repo   domain.CourseRepository
	tracer trace.Tracer
}

func NewCatalogService(repo domain.CourseRepository, tracer trace.Tracer) *CatalogService {
	return &CatalogService{repo: repo, tracer: tracer}
}

// GetCourse 返回课程快照，order 服务下单时调用此接口复核价格。
func (s *CatalogService) GetCourse(ctx context.Context, id int64) (*CourseDTO, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetCourse")
	defer span.End()
	span.SetAttributes(attribute.Int64("course.id", id))

	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDTO(course), nil
}

func (s *CatalogService) ListCourses(ctx context.Context, offset, limit int) ([]*CourseDTO, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	courses, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	dtos := make([]*CourseDTO, 0, len(courses))
	for _, c := range courses {
		dtos = append(dtos, toDTO(c))
	}
	return dtos, nil
}

func (s *CatalogService) CreateCourse(ctx context.Context, req *SaveCourseRequest) (*CourseDTO, error) {
	ctx, span := s.tracer.Start(ctx, "app.CreateCourse")
	defer span.End()

	course := fromRequest(req)
	if err := course.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Info().
		Int64("course_id", course.ID).
		Str("title", course.Title).
		Msg("Course created")
	return toDTO(course), nil
}

func (s *CatalogService) UpdateCourse(ctx context.Context, req *SaveCourseRequest) (*CourseDTO, error) {
	ctx, span := s.tracer.Start(ctx, "app.UpdateCourse")
	defer span.End()
	span.SetAttributes(attribute.Int64("course.id", req.ID))

	course := fromRequest(req)
	if err := course.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, err
	}
	return toDTO(course), nil
}

func (s *CatalogService) DeleteCourse(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "app.DeleteCourse")
	defer span.End()
	span.SetAttributes(attribute.Int64("course.id", id))

	return s.repo.Delete(ctx, id)
}

func toDTO(c *domain.Course) *CourseDTO {
	return &CourseDTO{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Price:       c.Price,
		Published:   c.Published,
	}
}

func fromRequest(req *SaveCourseRequest) *domain.Course {
	return &domain.Course{
		ID:          req.ID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Published:   req.Published,
	}
}
