package adapter

import (
	"context"
	"fmt"

	"academy/internal/pkg/constants"
	"academy/internal/pkg/httpclient"
	"academy/internal/service/order/domain/port"
)

// CatalogHTTPAdapter 通过 HTTP 调用课程目录服务，实现 CourseCatalog 端口。
type CatalogHTTPAdapter struct {
	client *httpclient.Client
}

// NewCatalogHTTPAdapter 创建课程目录适配器
func NewCatalogHTTPAdapter(client *httpclient.Client) *CatalogHTTPAdapter {
	return &CatalogHTTPAdapter{client: client}
}

// GetCourse 获取课程快照，价格以目录服务为准
func (a *CatalogHTTPAdapter) GetCourse(ctx context.Context, courseID int64) (*port.CourseInfo, error) {
	var course port.CourseInfo
	path := fmt.Sprintf("/courses/get?id=%d", courseID)
	if err := a.client.GetJSON(ctx, constants.CatalogServiceName, path, &course); err != nil {
		return nil, err
	}
	return &course, nil
}
