// cmd/transaction-service/main.go
package main

import (
	"context"
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"stockledger/internal/pkg/bootstrap"
	"stockledger/internal/pkg/constants"
	"stockledger/internal/pkg/database"
	"stockledger/internal/pkg/httpclient"
	"stockledger/internal/pkg/idempotency"
	"stockledger/internal/service/transaction/application"
	"stockledger/internal/service/transaction/infrastructure"
	"stockledger/internal/service/transaction/infrastructure/adapter"
	"stockledger/internal/service/transaction/interfaces"
)

const port = 8082

// main 是 transaction 服务的组装根。
// 库存服务地址优先通过 Nacos 解析，未启用时落回配置中的静态地址。
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
	if err := db.AutoMigrate(&infrastructure.TransactionModel{}); err != nil {
		log.Fatalf("FATAL: failed to migrate transactions table: %v", err)
	}

	repo := infrastructure.NewGormTransactionRepository(db)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Infra.Redis.Addr})
	idemStore := idempotency.NewStore(redisClient, cfg.App.IdempotencyTTL.Std())

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.TransactionService,
		Port:        port,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			tracer := otel.Tracer(constants.TransactionService)

			// Nacos 客户端在 StartService 内创建，所以下游适配器在这里组装
			var resolver httpclient.Resolver
			if appCtx.Nacos != nil {
				resolver = appCtx.Nacos
			}
			client := httpclient.NewClient(tracer, resolver, map[string]string{
				constants.ProductService: cfg.Services.ProductServiceURL,
			}, cfg.App.StockCallTimeout.Std())

			stockService := adapter.NewProductHTTPAdapter(client)
			service := application.NewTransactionService(repo, stockService, tracer, cfg.App.OperationTimeout.Std())
			handler := interfaces.NewTransactionHandler(service)

			// 幂等检测只拦路由下的写请求，健康检查与指标不经过它
			inner := http.NewServeMux()
			handler.RegisterRoutes(inner)
			appCtx.Mux.Handle("/transactions", idemStore.Middleware(inner))
			appCtx.Mux.Handle("/transactions/", idemStore.Middleware(inner))
		},
		OnShutdown: func(ctx context.Context) {
			if err := redisClient.Close(); err != nil {
				log.Printf("Error closing redis client: %v", err)
			}
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		},
	})
}
