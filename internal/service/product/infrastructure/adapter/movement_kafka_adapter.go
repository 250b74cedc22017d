// internal/service/product/infrastructure/adapter/movement_kafka_adapter.go
package adapter

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"stockledger/internal/pkg/mq"
	"stockledger/internal/service/product/domain"
)

// MovementKafkaAdapter 实现了 port.MovementPublisher 接口。
// 以商品 ID 作为分区键，同一商品的变更保持分区内有序。
type MovementKafkaAdapter struct {
	writer *kafka.Writer
}

// NewMovementKafkaAdapter 创建一个新的审计事件生产者适配器。
func NewMovementKafkaAdapter(writer *kafka.Writer) *MovementKafkaAdapter {
	return &MovementKafkaAdapter{writer: writer}
}

func (a *MovementKafkaAdapter) PublishMovement(ctx context.Context, movement *domain.StockMovement) error {
	payload, err := json.Marshal(movement)
	if err != nil {
		return errors.Wrap(err, "failed to marshal stock movement")
	}

	key := []byte(strconv.FormatInt(movement.ProductID, 10))
	return mq.ProduceMessage(ctx, a.writer, key, payload)
}

// Close 关闭底层的 Kafka writer。
func (a *MovementKafkaAdapter) Close() error {
	return a.writer.Close()
}
