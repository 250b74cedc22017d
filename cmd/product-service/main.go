// cmd/product-service/main.go
package main

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"

	"stockledger/internal/pkg/bootstrap"
	"stockledger/internal/pkg/constants"
	"stockledger/internal/pkg/database"
	"stockledger/internal/pkg/mq"
	"stockledger/internal/service/product/application"
	"stockledger/internal/service/product/application/alert"
	"stockledger/internal/service/product/infrastructure"
	"stockledger/internal/service/product/infrastructure/adapter"
	"stockledger/internal/service/product/interfaces"
)

const port = 8081

// main 是 product 服务的组装根：创建并组装所有依赖项，然后启动应用。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	db, err := database.Open(database.MysqlConfig{
		Host:     cfg.Infra.Mysql.Host,
		Port:     cfg.Infra.Mysql.Port,
		User:     cfg.Infra.Mysql.User,
		Password: cfg.Infra.Mysql.Password,
		DBName:   cfg.Infra.Mysql.DBName,
	})
	if err != nil {
		log.Fatalf("FATAL: failed to connect to mysql: %v", err)
	}
	if err := db.AutoMigrate(&infrastructure.ProductModel{}); err != nil {
		log.Fatalf("FATAL: failed to migrate products table: %v", err)
	}

	repo := infrastructure.NewGormProductRepository(db)

	kafkaWriter := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.MovementTopic)
	movementPublisher := adapter.NewMovementKafkaAdapter(kafkaWriter)

	alertEngine, err := alert.NewEngine(cfg.App.AlertRules)
	if err != nil {
		log.Fatalf("FATAL: invalid alert rules: %v", err)
	}

	hub := interfaces.NewHub()
	go hub.Run()

	tracer := otel.Tracer(constants.ProductService)
	service := application.NewProductService(repo, movementPublisher, hub, alertEngine, tracer)
	handler := interfaces.NewProductHandler(service, hub)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.ProductService,
		Port:        port,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(ctx context.Context) {
			if err := movementPublisher.Close(); err != nil {
				log.Printf("Error closing kafka writer: %v", err)
			}
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		},
	})
}
