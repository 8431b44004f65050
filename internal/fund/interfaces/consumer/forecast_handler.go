package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/wyfcoding/reliefledger/internal/fund/application"
	"github.com/wyfcoding/reliefledger/internal/fund/domain"
)

// ForecastHandler 消费预测相关事件并回写资金风险等级
type ForecastHandler struct {
	svc    *application.Service
	logger *slog.Logger
}

// NewForecastHandler 创建预测事件处理器
func NewForecastHandler(svc *application.Service, logger *slog.Logger) *ForecastHandler {
	return &ForecastHandler{svc: svc, logger: logger}
}

// Handle 按主题分发消息
func (h *ForecastHandler) Handle(ctx context.Context, msg kafka.Message) error {
	switch msg.Topic {
	case domain.ForecastRefreshEventType:
		var payload domain.ForecastRefreshEvent
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			h.logger.ErrorContext(ctx, "failed to unmarshal forecast refresh event", "error", err)
			return err
		}
		if payload.FundNo == "" {
			// 调拨等全局动作不指向具体资金，无需回写
			return nil
		}
		return h.svc.RefreshForecastRisk(ctx, payload.FundNo)
	case domain.ForecastRiskEventType:
		var payload domain.ForecastRiskEvent
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			h.logger.ErrorContext(ctx, "failed to unmarshal forecast risk event", "error", err)
			return err
		}
		return h.svc.UpdateRiskLevel(ctx, payload.FundNo, payload.RiskLevel)
	default:
		h.logger.WarnContext(ctx, "unknown forecast event topic", "topic", msg.Topic)
		return nil
	}
}
