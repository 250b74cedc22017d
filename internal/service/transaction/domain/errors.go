// internal/service/transaction/domain/errors.go
package domain

import "github.com/pkg/errors"

// 协调器的错误分类。校验类错误在任何副作用发生前返回；
// 一旦某一侧已经提交，后续失败会触发一次补偿，但向调用方
// 透出的始终是这里的原始错误。补偿本身的失败只记日志，不在此列。
var (
	// ErrInvalidTransactionType 流水类型不是 Purchase/Sale
	ErrInvalidTransactionType = errors.New("transaction type must be either 'Purchase' or 'Sale'")
	// ErrInvalidQuantity 数量或单价不满足业务约束
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	// ErrProductNotFound 远端商品不存在
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientStock 销售数量超过可用库存
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStockUnavailable 库存服务超时或不可达
	ErrStockUnavailable = errors.New("stock service unavailable")
	// ErrStockRejected 库存服务拒绝了本次增量（结果会为负或商品不存在）
	ErrStockRejected = errors.New("stock mutation rejected")
	// ErrPersistence 本地存储失败
	ErrPersistence = errors.New("persistence failure")
)
