// cmd/coupon-service/main.go
package main

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"academy/internal/pkg/bootstrap"
	"academy/internal/pkg/constants"
	"academy/internal/pkg/httpclient"
	pkgredis "academy/internal/pkg/redis"
	"academy/internal/service/coupon/application"
	"academy/internal/service/coupon/infrastructure"
	"academy/internal/service/coupon/infrastructure/adapter"
	"academy/internal/service/coupon/infrastructure/rule"
	"academy/internal/service/coupon/interfaces"
)

const servicePort = 8081

func main() {
	var redisClient *pkgredis.Client

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.CouponServiceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			cfg := bootstrap.GetCurrentConfig()
			tracer := otel.Tracer(constants.CouponServiceName)

			db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{TranslateError: true})
			if err != nil {
				log.Fatalf("failed to connect to mysql: %v", err)
			}
			if err := db.AutoMigrate(
				&infrastructure.CouponModel{},
				&infrastructure.CouponCourseModel{},
				&infrastructure.RedemptionModel{},
			); err != nil {
				log.Fatalf("failed to migrate coupon tables: %v", err)
			}

			redisClient, err = pkgredis.NewClient(cfg.Infra.Redis.Addr)
			if err != nil {
				log.Fatalf("failed to connect to redis: %v", err)
			}

			ruleEngine, err := rule.NewCELRuleEngine()
			if err != nil {
				log.Fatalf("failed to init CEL rule engine: %v", err)
			}

			couponRepo := infrastructure.NewCachedCouponRepository(
				infrastructure.NewGormCouponRepository(db),
				redisClient.GetClient(),
			)
			catalog := adapter.NewCatalogHTTPAdapter(httpclient.NewClient(tracer, appCtx.Nacos))

			couponService := application.NewCouponService(couponRepo, catalog, ruleEngine, tracer)
			interfaces.NewCouponHandler(couponService).RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(ctx context.Context) {
			if redisClient != nil {
				redisClient.Close()
			}
		},
	})
}
