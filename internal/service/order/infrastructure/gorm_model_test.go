package infrastructure

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	couponinfra "academy/internal/service/coupon/infrastructure"
)

// redemption 表由订单服务和优惠券服务共同 AutoMigrate。
// 两边的模型声明必须逐一相同，否则交替重启会反复对这张
// 结算热点表发出 ALTER TABLE 并持有表锁。
func TestRedemptionModelConsistentAcrossServices(t *testing.T) {
	orderSide := reflect.TypeOf(RedemptionModel{})
	couponSide := reflect.TypeOf(couponinfra.RedemptionModel{})

	assert.Equal(t, RedemptionModel{}.TableName(), couponinfra.RedemptionModel{}.TableName())
	assert.Equal(t, orderSide.NumField(), couponSide.NumField())
	for i := 0; i < orderSide.NumField(); i++ {
		of := orderSide.Field(i)
		cf := couponSide.Field(i)
		assert.Equal(t, of.Name, cf.Name)
		assert.Equal(t, of.Type, cf.Type, "字段 %s 的 Go 类型映射到不同的列类型", of.Name)
		assert.Equal(t, of.Tag.Get("gorm"), cf.Tag.Get("gorm"), "字段 %s 的 gorm 标签不一致", of.Name)
	}
}
