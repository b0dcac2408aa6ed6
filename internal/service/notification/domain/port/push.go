package port

import "context"

// PushRouter 把通知路由到用户当前连接的推送网关节点。
// 用户离线时返回 delivered=false，不算错误：通知已落库，上线后可拉取。
type PushRouter interface {
	RouteToUser(ctx context.Context, userID int64, payload []byte) (delivered bool, err error)
}
