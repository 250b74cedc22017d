// internal/service/transaction/domain/repository.go
package domain

import (
	"context"
	"time"
)

// FilterCriteria 组合可选的查询条件，nil 字段表示不过滤。
type FilterCriteria struct {
	StartDate *time.Time
	EndDate   *time.Time
	Type      *TransactionType
	ProductID *int64
}

// TransactionRepository 是台账的出站端口。
// 按整数主键寻址，查不到返回 (nil, nil)。
type TransactionRepository interface {
	Create(ctx context.Context, txn *Transaction) (int64, error)
	GetByID(ctx context.Context, id int64) (*Transaction, error)
	// Update 返回 false 表示目标行不存在
	Update(ctx context.Context, txn *Transaction) (bool, error)
	// Delete 返回 false 表示目标行不存在
	Delete(ctx context.Context, id int64) (bool, error)
	GetAll(ctx context.Context) ([]*Transaction, error)
	Filter(ctx context.Context, criteria FilterCriteria) ([]*Transaction, error)
	GetByProductID(ctx context.Context, productID int64) ([]*Transaction, error)
}
