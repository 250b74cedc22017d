// internal/service/transaction/infrastructure/gorm_model.go
package infrastructure

import (
	"time"

	"stockledger/internal/service/transaction/domain"
)

// TransactionModel 对应数据库中的 transactions 表。
type TransactionModel struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	Date       time.Time `gorm:"index"`
	Type       string    `gorm:"type:varchar(16);index"`
	ProductID  int64     `gorm:"index"`
	Quantity   int
	UnitPrice  float64 `gorm:"type:decimal(10,2)"`
	TotalPrice float64 `gorm:"type:decimal(12,2)"`
	Details    string  `gorm:"type:text"`
}

// TableName 指定 GORM 应该使用的表名
func (TransactionModel) TableName() string {
	return "transactions"
}

func toModel(txn *domain.Transaction) *TransactionModel {
	return &TransactionModel{
		ID:         txn.ID,
		Date:       txn.Date,
		Type:       string(txn.Type),
		ProductID:  txn.ProductID,
		Quantity:   txn.Quantity,
		UnitPrice:  txn.UnitPrice,
		TotalPrice: txn.TotalPrice,
		Details:    txn.Details,
	}
}

func toDomain(m *TransactionModel) *domain.Transaction {
	return &domain.Transaction{
		ID:         m.ID,
		Date:       m.Date,
		Type:       domain.TransactionType(m.Type),
		ProductID:  m.ProductID,
		Quantity:   m.Quantity,
		UnitPrice:  m.UnitPrice,
		TotalPrice: m.TotalPrice,
		Details:    m.Details,
	}
}
