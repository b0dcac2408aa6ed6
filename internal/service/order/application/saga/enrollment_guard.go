package saga

import (
	"github.com/pkg/errors"

	"academy/internal/service/order/domain"
)

// EnrollmentGuardHandler 拦截重复购买：
// 用户已持有该课程的有效报名时直接拒绝下单。
type EnrollmentGuardHandler struct {
	NextHandler
}

func NewEnrollmentGuardHandler() *EnrollmentGuardHandler {
	return &EnrollmentGuardHandler{}
}

func (h *EnrollmentGuardHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.EnrollmentGuard")
	defer span.End()

	enrolled, err := orderCtx.Repo.HasEnrollment(ctx, orderCtx.UserID, orderCtx.CourseID)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to check existing enrollment")
	}
	if enrolled {
		span.AddEvent("User already enrolled, checkout rejected")
		return domain.ErrAlreadyEnrolled
	}
	return h.executeNext(orderCtx)
}
