package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wyfcoding/pkg/messagequeue/kafka"
	"github.com/wyfcoding/reliefledger/internal/fund/domain"
)

// KafkaForecastNotifier 将预测刷新事件发送到 Kafka，由预测消费端异步重算风险等级。
type KafkaForecastNotifier struct {
	producer *kafka.Producer
	topic    string
}

// NewKafkaForecastNotifier 创建预测通知发送器
func NewKafkaForecastNotifier(producer *kafka.Producer, topic string) domain.ForecastNotifier {
	return &KafkaForecastNotifier{
		producer: producer,
		topic:    topic,
	}
}

// NotifyRefresh 将刷新事件推送到消息队列
func (n *KafkaForecastNotifier) NotifyRefresh(ctx context.Context, event domain.ForecastRefreshEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal forecast refresh event: %w", err)
	}

	// 使用灾种做 Key 保证同一灾种事件的时序性
	return n.producer.PublishToTopic(ctx, n.topic, []byte(event.DisasterType), payload)
}
