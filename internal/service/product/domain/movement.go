// internal/service/product/domain/movement.go
package domain

import "time"

// StockMovement 记录一次成功的库存变更，用于审计流与低库存告警。
// 它在库存变更提交之后才产生，不参与一致性协议本身。
type StockMovement struct {
	EventID    string    `json:"eventId"`
	ProductID  int64     `json:"productId"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Delta      int       `json:"delta"`
	Stock      int       `json:"stock"`
	Price      float64   `json:"price"`
	OccurredAt time.Time `json:"occurredAt"`
}
