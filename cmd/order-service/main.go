// cmd/order-service/main.go
package main

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"academy/internal/pkg/bootstrap"
	"academy/internal/pkg/constants"
	"academy/internal/pkg/httpclient"
	"academy/internal/pkg/mq"
	"academy/internal/service/order/application"
	"academy/internal/service/order/infrastructure"
	"academy/internal/service/order/infrastructure/adapter"
	"academy/internal/service/order/interfaces"
)

const (
	servicePort = 8082
	// 单次下单流程的超时上限
	processingTimeout = 10 * time.Second
	consumerGroupID   = "order-timeout-group"
	dltGroupID        = "order-timeout-dlt-group"
)

// main 是应用的"组装根" (Composition Root)：
// 创建并组装所有依赖项，注册 HTTP 路由并启动消费者。
func main() {
	var (
		timeoutConsumer *interfaces.OrderTimeOutConsumerAdapter
		dltConsumer     *interfaces.DltConsumerAdapter
		notifier        *adapter.NotificationKafkaAdapter
		scheduler       *adapter.SchedulerKafkaAdapter
		failureHandler  *mq.FailureHandler
	)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.OrderServiceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			cfg := bootstrap.GetCurrentConfig()
			tracer := otel.Tracer(constants.OrderServiceName)
			brokers := cfg.Infra.Kafka.Brokers

			db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{TranslateError: true})
			if err != nil {
				log.Fatalf("failed to connect to mysql: %v", err)
			}
			if err := db.AutoMigrate(
				&infrastructure.OrderModel{},
				&infrastructure.EnrollmentModel{},
				&infrastructure.RedemptionModel{},
				&infrastructure.CouponUserUsageModel{},
			); err != nil {
				log.Fatalf("failed to migrate order tables: %v", err)
			}

			// 出站适配器
			httpClient := httpclient.NewClient(tracer, appCtx.Nacos)
			couponSvc := adapter.NewCouponHTTPAdapter(httpClient)
			catalog := adapter.NewCatalogHTTPAdapter(httpClient)
			gateway := adapter.NewRazorpayGatewayAdapter(adapter.GatewayConfig{
				BaseURL:   cfg.Infra.Gateway.BaseURL,
				KeyID:     cfg.Infra.Gateway.KeyID,
				KeySecret: cfg.Infra.Gateway.KeySecret,
				Currency:  cfg.Infra.Gateway.Currency,
			})
			notifier = adapter.NewNotificationKafkaAdapter(brokers)
			scheduler = adapter.NewSchedulerKafkaAdapter(brokers)

			orderRepo := infrastructure.NewGormOrderRepository(db)
			settlementStore := infrastructure.NewGormSettlementStore(db)

			orderService := application.NewOrderApplicationService(
				orderRepo, processingTimeout, tracer,
				couponSvc, catalog, gateway, scheduler,
			)
			settlementService := application.NewSettlementService(settlementStore, gateway, notifier, tracer)

			interfaces.NewOrderHandler(orderService, settlementService).RegisterRoutes(appCtx.Mux)

			// 支付超时检查消费者，处理失败的消息进入死信主题
			failureHandler = mq.NewFailureHandler(brokers, constants.OrderTimeoutCheckDLT)
			timeoutConsumer = interfaces.NewOrderTimeOutConsumerAdapter(
				mq.NewKafkaReader(brokers, constants.OrderTimeoutCheckTopic, consumerGroupID),
				orderService,
				failureHandler,
			)
			if err := timeoutConsumer.Start(context.Background()); err != nil {
				log.Fatalf("failed to start order timeout consumer: %v", err)
			}

			dltConsumer = interfaces.NewDltConsumerAdapter(
				mq.NewKafkaReader(brokers, constants.OrderTimeoutCheckDLT, dltGroupID),
			)
			if err := dltConsumer.Start(context.Background()); err != nil {
				log.Fatalf("failed to start DLT consumer: %v", err)
			}
		},
		OnShutdown: func(ctx context.Context) {
			if timeoutConsumer != nil {
				timeoutConsumer.Stop(ctx)
			}
			if dltConsumer != nil {
				dltConsumer.Stop(ctx)
			}
			if failureHandler != nil {
				failureHandler.Close()
			}
			if notifier != nil {
				notifier.Close()
			}
			if scheduler != nil {
				scheduler.Close()
			}
		},
	})
}
