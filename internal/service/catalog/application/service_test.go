package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.opentelemetry.io/otel"

	"academy/internal/service/catalog/domain"
)

type mockCourseRepo struct {
	mock.Mock
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id int64) (*domain.Course, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Course), args.Error(1)
}

func (m *mockCourseRepo) List(ctx context.Context, offset, limit int) ([]*domain.Course, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Course), args.Error(1)
}

func (m *mockCourseRepo) Create(ctx context.Context, course *domain.Course) error {
	args := m.Called(ctx, course)
	return args.Error(0)
}

func (m *mockCourseRepo) Update(ctx context.Context, course *domain.Course) error {
	args := m.Called(ctx, course)
	return args.Error(0)
}

func (m *mockCourseRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newService(repo *mockCourseRepo) *CatalogService {
	return NewCatalogService(repo, otel.Tracer("test"))
}

func TestGetCourse(t *testing.T) {
	repo := new(mockCourseRepo)
	repo.On("FindByID", mock.Anything, int64(1)).
		Return(&domain.Course{ID: 1, Title: "Go in Practice", Price: 799, Published: true}, nil)

	dto, err := newService(repo).GetCourse(context.Background(), 1)

	assert.NoError(t, err)
	assert.Equal(t, "Go in Practice", dto.Title)
	assert.Equal(t, float64(799), dto.Price)
	assert.True(t, dto.Published)
}

func TestGetCourse_NotFound(t *testing.T) {
	repo := new(mockCourseRepo)
	repo.On("FindByID", mock.Anything, int64(99)).Return(nil, domain.ErrCourseNotFound)

	_, err := newService(repo).GetCourse(context.Background(), 99)

	assert.ErrorIs(t, err, domain.ErrCourseNotFound)
}

func TestCreateCourse_Validation(t *testing.T) {
	repo := new(mockCourseRepo)
	svc := newService(repo)

	_, err := svc.CreateCourse(context.Background(), &SaveCourseRequest{Title: "  ", Price: 10})
	assert.ErrorIs(t, err, domain.ErrInvalidCourse)

	_, err = svc.CreateCourse(context.Background(), &SaveCourseRequest{Title: "x", Price: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidCourse)

	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateCourse_FreeCourseAllowed(t *testing.T) {
	repo := new(mockCourseRepo)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Course")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Course).ID = 5
		}).Return(nil)

	dto, err := newService(repo).CreateCourse(context.Background(), &SaveCourseRequest{
		Title: "Intro", Price: 0, Published: true,
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(5), dto.ID)
	assert.Equal(t, float64(0), dto.Price)
}

func TestListCourses_LimitClamped(t *testing.T) {
	repo := new(mockCourseRepo)
	repo.On("List", mock.Anything, 0, 20).Return([]*domain.Course{}, nil).Once()
	repo.On("List", mock.Anything, 0, 100).Return([]*domain.Course{}, nil).Once()

	svc := newService(repo)
	_, err := svc.ListCourses(context.Background(), 0, 0)
	assert.NoError(t, err)
	_, err = svc.ListCourses(context.Background(), -5, 1000)
	assert.NoError(t, err)

	repo.AssertExpectations(t)
}
