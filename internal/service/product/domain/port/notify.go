// internal/service/product/domain/port/notify.go
package port

import (
	"context"

	"stockledger/internal/service/product/domain"
)

// MovementPublisher 把库存变更事件发布到消息系统（审计流）。
type MovementPublisher interface {
	PublishMovement(ctx context.Context, movement *domain.StockMovement) error
}

// MovementBroadcaster 把库存变更实时推送给已连接的客户端。
type MovementBroadcaster interface {
	BroadcastMovement(movement *domain.StockMovement)
	// BroadcastAlert 推送命中告警规则的变更，rule 是命中的表达式
	BroadcastAlert(movement *domain.StockMovement, rule string)
}

// AlertEngine 用可配置的规则评估一次库存变更，返回命中的规则。
type AlertEngine interface {
	Matches(movement *domain.StockMovement) []string
}
