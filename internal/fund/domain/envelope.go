package domain

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrEnvelopeNotFound = errors.New("disaster budget envelope not found")
	ErrNoAnnualBudget   = errors.New("no annual budget configured")
)

// 年度预算池按灾种的固定切分比例
var disasterRatios = map[FundDisasterType]decimal.Decimal{
	FundDrought:       decimal.NewFromFloat(0.4),
	FundHeavyRainfall: decimal.NewFromFloat(0.35),
	FundStrongWinds:   decimal.NewFromFloat(0.25),
}

// DisasterRatios 返回灾种切分比例表
func DisasterRatios() map[FundDisasterType]decimal.Decimal {
	out := make(map[FundDisasterType]decimal.Decimal, len(disasterRatios))
	for k, v := range disasterRatios {
		out[k] = v
	}
	return out
}

// AnnualBudget 年度救灾预算
type AnnualBudget struct {
	gorm.Model
	FiscalYear     string          `gorm:"column:fiscal_year;type:varchar(16);uniqueIndex;not null" json:"fiscal_year"`
	TotalAllocated decimal.Decimal `gorm:"column:total_allocated;type:decimal(20,2);not null" json:"total_allocated"`
}

// TableName 表名
func (AnnualBudget) TableName() string {
	return "annual_budgets"
}

// DisasterBudgetEnvelope 灾种预算信封。
// 由年度预算按固定比例切分而来，每灾种一条。
type DisasterBudgetEnvelope struct {
	gorm.Model
	DisasterType   FundDisasterType `gorm:"column:disaster_type;type:varchar(32);uniqueIndex;not null" json:"disaster_type"`
	TotalAllocated decimal.Decimal  `gorm:"column:total_allocated;type:decimal(20,2);not null" json:"total_allocated"`
	Committed      decimal.Decimal  `gorm:"column:committed;type:decimal(20,2);default:0" json:"committed"`
	Spent          decimal.Decimal  `gorm:"column:spent;type:decimal(20,2);default:0" json:"spent"`
	Remaining      decimal.Decimal  `gorm:"column:remaining;type:decimal(20,2);default:0" json:"remaining"`
}

// TableName 表名
func (DisasterBudgetEnvelope) TableName() string {
	return "disaster_budget_envelopes"
}

// NewEnvelope 由年度预算与灾种比例创建信封
func NewEnvelope(disasterType FundDisasterType, annualTotal decimal.Decimal) *DisasterBudgetEnvelope {
	allocated := annualTotal.Mul(disasterRatios[disasterType]).Round(0)
	return &DisasterBudgetEnvelope{
		DisasterType:   disasterType,
		TotalAllocated: allocated,
		Committed:      decimal.Zero,
		Spent:          decimal.Zero,
		Remaining:      allocated,
	}
}

// Recalculate 恢复剩余额度不变式
func (e *DisasterBudgetEnvelope) Recalculate() {
	remaining := e.TotalAllocated.Sub(e.Committed).Sub(e.Spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	e.Remaining = remaining
}

// Commit 新事件资金落地时承诺额度。余额不足时拒绝，走调拨流程。
func (e *DisasterBudgetEnvelope) Commit(amount decimal.Decimal) error {
	if e.Remaining.LessThan(amount) {
		return ErrInsufficientPool
	}
	e.Committed = e.Committed.Add(amount)
	e.Recalculate()
	return nil
}

// RegisterSpend 事件支出批准后同步到灾种信封
func (e *DisasterBudgetEnvelope) RegisterSpend(amount decimal.Decimal) {
	e.Spent = e.Spent.Add(amount)
	e.Recalculate()
}

// TransferOut 调拨转出，额度下限钳制在 0
func (e *DisasterBudgetEnvelope) TransferOut(amount decimal.Decimal) {
	e.TotalAllocated = e.TotalAllocated.Sub(amount)
	if e.TotalAllocated.IsNegative() {
		e.TotalAllocated = decimal.Zero
	}
	e.Recalculate()
}

// TransferIn 调拨转入
func (e *DisasterBudgetEnvelope) TransferIn(amount decimal.Decimal) {
	e.TotalAllocated = e.TotalAllocated.Add(amount)
	e.Recalculate()
}
