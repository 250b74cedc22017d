// internal/service/product/domain/product.go
package domain

import "github.com/pkg/errors"

var (
	// ErrStockConflict 商品不存在，或施加增量后库存会为负。
	// 两种情况对调用方是同一种拒绝（与对外协议保持一致）。
	ErrStockConflict = errors.New("product not found or stock update would result in negative stock")
	// ErrPersistence 本地存储失败
	ErrPersistence = errors.New("persistence failure")
)

// Product 是商品聚合根，库存字段只允许通过 AdjustStock 的
// 原子受保护增量变更。
type Product struct {
	ID          int64
	Name        string
	Description string
	Category    string
	ImageURL    string
	Price       float64
	Stock       int
}

// FilterCriteria 组合可选的商品查询条件，nil 字段表示不过滤。
type FilterCriteria struct {
	Name     *string
	Category *string
	MinPrice *float64
	MaxPrice *float64
	MinStock *int
	MaxStock *int
}
