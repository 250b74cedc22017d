// internal/service/transaction/domain/transaction.go
package domain

import (
	"time"

	"github.com/pkg/errors"
)

// TransactionType 表示流水的方向：采购入库或销售出库。
type TransactionType string

const (
	TypePurchase TransactionType = "Purchase"
	TypeSale     TransactionType = "Sale"
)

// ParseTransactionType 校验并规范化流水类型。
func ParseTransactionType(raw string) (TransactionType, error) {
	switch TransactionType(raw) {
	case TypePurchase:
		return TypePurchase, nil
	case TypeSale:
		return TypeSale, nil
	default:
		return "", errors.Wrapf(ErrInvalidTransactionType, "got %q", raw)
	}
}

// Transaction 是台账的聚合根。只能通过协调器的 Create/Update/Delete
// 流程变更，库存副作用由协调器负责保持一致。
type Transaction struct {
	ID         int64
	Date       time.Time
	Type       TransactionType
	ProductID  int64
	Quantity   int
	UnitPrice  float64
	TotalPrice float64
	Details    string
}

// NewTransaction 工厂函数，校验业务规则并计算派生字段。
func NewTransaction(txnType TransactionType, productID int64, quantity int, unitPrice float64, details string) (*Transaction, error) {
	if txnType != TypePurchase && txnType != TypeSale {
		return nil, errors.Wrapf(ErrInvalidTransactionType, "got %q", txnType)
	}
	if quantity <= 0 {
		return nil, errors.Wrapf(ErrInvalidQuantity, "got %d", quantity)
	}
	if unitPrice < 0 {
		return nil, errors.Wrapf(ErrInvalidQuantity, "unit price %f is negative", unitPrice)
	}

	return &Transaction{
		Date:       time.Now(),
		Type:       txnType,
		ProductID:  productID,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		TotalPrice: float64(quantity) * unitPrice,
		Details:    details,
	}, nil
}

// StockDelta 返回这条流水对商品库存的净影响：
// 采购 +quantity，销售 -quantity。派生值，从不单独持久化。
func (t *Transaction) StockDelta() int {
	if t.Type == TypePurchase {
		return t.Quantity
	}
	return -t.Quantity
}

// StockDeltaFor 按给定类型和数量计算库存增量。
func StockDeltaFor(txnType TransactionType, quantity int) int {
	if txnType == TypePurchase {
		return quantity
	}
	return -quantity
}
