// internal/service/transaction/application/dto.go
package application

import (
	"time"

	"stockledger/internal/service/transaction/domain"
)

// CreateTransactionRequest 是创建流水的入站 DTO。
type CreateTransactionRequest struct {
	Type      string  `json:"type"`
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Details   string  `json:"details"`
}

// UpdateTransactionRequest 是更新流水的入站 DTO。Date 允许调用方回填业务日期。
type UpdateTransactionRequest struct {
	ID        int64     `json:"id"`
	Date      time.Time `json:"date"`
	Type      string    `json:"type"`
	ProductID int64     `json:"productId"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unitPrice"`
	Details   string    `json:"details"`
}

// FilterTransactionsRequest 组合可选查询条件，零值字段不过滤。
type FilterTransactionsRequest struct {
	StartDate *time.Time
	EndDate   *time.Time
	Type      string
	ProductID *int64
}

// TransactionDTO 是出站视图，比领域对象多一个远端商品名。
type TransactionDTO struct {
	ID          int64     `json:"id"`
	Date        time.Time `json:"date"`
	Type        string    `json:"type"`
	ProductID   int64     `json:"productId"`
	ProductName string    `json:"productName"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unitPrice"`
	TotalPrice  float64   `json:"totalPrice"`
	Details     string    `json:"details"`
}

func toDTO(txn *domain.Transaction, productName string) *TransactionDTO {
	return &TransactionDTO{
		ID:          txn.ID,
		Date:        txn.Date,
		Type:        string(txn.Type),
		ProductID:   txn.ProductID,
		ProductName: productName,
		Quantity:    txn.Quantity,
		UnitPrice:   txn.UnitPrice,
		TotalPrice:  txn.TotalPrice,
		Details:     txn.Details,
	}
}
