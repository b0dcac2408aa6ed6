// cmd/notification-service/main.go
package main

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"academy/internal/pkg/bootstrap"
	"academy/internal/pkg/constants"
	"academy/internal/pkg/mq"
	pkgredis "academy/internal/pkg/redis"
	"academy/internal/pkg/session"
	"academy/internal/service/notification/application"
	"academy/internal/service/notification/infrastructure"
	"academy/internal/service/notification/infrastructure/adapter"
	"academy/internal/service/notification/interfaces"
)

const (
	servicePort     = 8083
	consumerGroupID = "notification-group"
	dltGroupID      = "notification-dlt-group"
)

func main() {
	var (
		consumer       *interfaces.EventConsumerAdapter
		dltConsumer    *interfaces.DltConsumerAdapter
		failureHandler *mq.FailureHandler
		pushRouter     *adapter.KafkaPushRouterAdapter
		redisClient    *pkgredis.Client
	)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.NotificationServiceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			cfg := bootstrap.GetCurrentConfig()
			tracer := otel.Tracer(constants.NotificationServiceName)
			brokers := cfg.Infra.Kafka.Brokers

			db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{TranslateError: true})
			if err != nil {
				log.Fatalf("failed to connect to mysql: %v", err)
			}
			if err := db.AutoMigrate(&infrastructure.NotificationModel{}); err != nil {
				log.Fatalf("failed to migrate notification table: %v", err)
			}

			redisClient, err = pkgredis.NewClient(cfg.Infra.Redis.Addr)
			if err != nil {
				log.Fatalf("failed to connect to redis: %v", err)
			}
			sessionMgr := session.NewManager(redisClient.GetClient())

			repo := infrastructure.NewGormNotificationRepository(db)
			pushRouter = adapter.NewKafkaPushRouterAdapter(brokers, sessionMgr)
			service := application.NewNotificationService(repo, pushRouter, tracer)

			interfaces.NewNotificationHandler(service).RegisterRoutes(appCtx.Mux)

			failureHandler = mq.NewFailureHandler(brokers, constants.NotificationDLT)
			consumer = interfaces.NewEventConsumerAdapter(
				mq.NewKafkaReader(brokers, constants.NotificationTopic, consumerGroupID),
				service,
				failureHandler,
			)
			if err := consumer.Start(context.Background()); err != nil {
				log.Fatalf("failed to start notification consumer: %v", err)
			}

			dltConsumer = interfaces.NewDltConsumerAdapter(
				mq.NewKafkaReader(brokers, constants.NotificationDLT, dltGroupID),
			)
			if err := dltConsumer.Start(context.Background()); err != nil {
				log.Fatalf("failed to start DLT consumer: %v", err)
			}
		},
		OnShutdown: func(ctx context.Context) {
			if consumer != nil {
				consumer.Stop(ctx)
			}
			if dltConsumer != nil {
				dltConsumer.Stop(ctx)
			}
			if failureHandler != nil {
				failureHandler.Close()
			}
			if pushRouter != nil {
				pushRouter.Close()
			}
			if redisClient != nil {
				redisClient.Close()
			}
		},
	})
}
