package saga

import (
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// CoursePriceHandler 从课程目录获取课程快照，
// 价格以目录为准，客户端传来的任何金额都不参与计算。
type CoursePriceHandler struct {
	NextHandler
}

func NewCoursePriceHandler() *CoursePriceHandler {
	return &CoursePriceHandler{}
}

func (h *CoursePriceHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.CoursePrice")
	defer span.End()

	course, err := orderCtx.Catalog.GetCourse(ctx, orderCtx.CourseID)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to fetch course")
	}
	if !course.Published {
		return errors.Errorf("course %d is not published", orderCtx.CourseID)
	}

	span.SetAttributes(attribute.Float64("course.price", course.Price))
	orderCtx.Course = course
	return h.executeNext(orderCtx)
}
