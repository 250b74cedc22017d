// internal/pkg/constants/constants.go
package constants

// 服务名，同时用作 Nacos 中的注册名。
const (
	ProductService     = "product-service"
	TransactionService = "transaction-service"
)

// product-service 暴露的路径。
const (
	ProductPath      = "/products/"
	ProductStockPath = "/stock"
)
