// cmd/catalog-service/main.go
package main

import (
	"log"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"academy/internal/pkg/bootstrap"
	"academy/internal/pkg/constants"
	"academy/internal/service/catalog/application"
	"academy/internal/service/catalog/infrastructure"
	"academy/internal/service/catalog/interfaces"
)

const servicePort = 8084

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.CatalogServiceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			cfg := bootstrap.GetCurrentConfig()
			tracer := otel.Tracer(constants.CatalogServiceName)

			db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{TranslateError: true})
			if err != nil {
				log.Fatalf("failed to connect to mysql: %v", err)
			}
			if err := db.AutoMigrate(&infrastructure.CourseModel{}); err != nil {
				log.Fatalf("failed to migrate course table: %v", err)
			}

			repo := infrastructure.NewGormCourseRepository(db)
			service := application.NewCatalogService(repo, tracer)
			interfaces.NewCatalogHandler(service).RegisterRoutes(appCtx.Mux)
		},
	})
}
