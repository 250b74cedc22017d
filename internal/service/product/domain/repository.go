// internal/service/product/domain/repository.go
package domain

import "context"

// ProductRepository 是商品存储的出站端口。按整数主键寻址，
// 查不到返回 (nil, nil)。
type ProductRepository interface {
	GetAll(ctx context.Context) ([]*Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	Filter(ctx context.Context, criteria FilterCriteria) ([]*Product, error)
	Create(ctx context.Context, product *Product) (int64, error)
	// Update 返回 false 表示目标行不存在
	Update(ctx context.Context, product *Product) (bool, error)
	// Delete 返回 false 表示目标行不存在
	Delete(ctx context.Context, id int64) (bool, error)

	// AdjustStock 原子地把 delta 加到商品库存上。
	// 这是整个一致性协议唯一依赖的服务端保证：增量在数据库层
	// 受 stock + delta >= 0 谓词保护，结果会为负或商品不存在时
	// 返回 ErrStockConflict，不会部分生效。
	// 成功时返回变更后的商品。
	AdjustStock(ctx context.Context, id int64, delta int) (*Product, error)
}
