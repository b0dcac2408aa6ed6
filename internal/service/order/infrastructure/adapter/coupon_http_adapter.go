package adapter

import (
	"context"

	"academy/internal/pkg/constants"
	"academy/internal/pkg/httpclient"
	"academy/internal/service/order/domain/port"
)

// CouponHTTPAdapter 通过 HTTP 调用优惠券服务，实现 CouponService 端口。
type CouponHTTPAdapter struct {
	client *httpclient.Client
}

// NewCouponHTTPAdapter 创建优惠券服务适配器
func NewCouponHTTPAdapter(client *httpclient.Client) *CouponHTTPAdapter {
	return &CouponHTTPAdapter{client: client}
}

// Validate 请求服务端复核优惠券。
// 校验拒绝不是传输错误：verdict.Valid=false 也会正常返回。
func (a *CouponHTTPAdapter) Validate(ctx context.Context, code string, courseID, userID int64) (*port.CouponVerdict, error) {
	reqBody := map[string]interface{}{
		"code":      code,
		"course_id": courseID,
		"user_id":   userID,
	}
	var verdict port.CouponVerdict
	if err := a.client.PostJSON(ctx, constants.CouponServiceName, "/validate_coupon", reqBody, &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}
