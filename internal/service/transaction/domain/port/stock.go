// internal/service/transaction/domain/port/stock.go
package port

import (
	"context"
)

// ProductSnapshot 是调用瞬间库存服务眼中的商品视图。
// 只读，且每次操作都重新获取：两次调用之间库存可能被并发修改，
// 任何缓存都会放大先检查后执行的竞态窗口。
type ProductSnapshot struct {
	ID    int64
	Name  string
	Price float64
	Stock int
}

// StockService 是库存服务的出站端口。
//
// 协议约定：ApplyStockDelta 在服务端是原子的受保护增量，结果为负时
// 由服务端自行拒绝并返回 domain.ErrStockRejected。调用方基于快照的
// 库存预检只是建议性的，正确性最终依赖服务端的这条保证。
type StockService interface {
	// GetProduct 获取商品快照。商品不存在返回 domain.ErrProductNotFound，
	// 超时或网络错误返回 domain.ErrStockUnavailable。
	GetProduct(ctx context.Context, productID int64) (*ProductSnapshot, error)

	// ApplyStockDelta 对商品库存施加带符号的增量。
	// 调用方不得自动重试，失败与否交由上层补偿逻辑处理。
	ApplyStockDelta(ctx context.Context, productID int64, delta int) error
}
