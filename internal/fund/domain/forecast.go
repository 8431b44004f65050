package domain

import "context"

// 预测刷新信号的事件类型
const (
	ForecastRefreshEventType = "finance.forecast.refresh"
	ForecastRiskEventType    = "finance.forecast.risk"
)

// ForecastRefreshEvent 让外部预测服务重算风险的信号
type ForecastRefreshEvent struct {
	Trigger      string `json:"trigger"`
	DisasterType string `json:"disaster_type,omitempty"`
	FundNo       string `json:"fund_no,omitempty"`
}

// ForecastRiskEvent 预测服务回写的风险等级
type ForecastRiskEvent struct {
	FundNo    string `json:"fund_no"`
	RiskLevel string `json:"risk_level"`
}

// ForecastNotifier 向外部预测协作方发信号。尽力而为，
// 失败不得回滚触发它的那次变更。
type ForecastNotifier interface {
	NotifyRefresh(ctx context.Context, event ForecastRefreshEvent) error
}
