package domain

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrFundNotFound       = errors.New("incident fund not found")
	ErrFundExists         = errors.New("an incident fund already exists for this disaster")
	ErrFundClosed         = errors.New("incident fund is closed")
	ErrInsufficientPool   = errors.New("insufficient pool balance, reallocation workflow required")
	ErrInvalidFundAmount  = errors.New("amount must be a positive number")
	ErrFundOverrun        = errors.New("amount exceeds remaining incident allocation")
	ErrCategoryCapBreach  = errors.New("amount exceeds category cap, finance officer override required")
	ErrUnknownHouseTier   = errors.New("unknown house tier")
	ErrInvalidHousingCost = errors.New("housing cost profile unavailable")
)

// HouseTier 住房层级
type HouseTier string

const (
	HouseTierA HouseTier = "TierA"
	HouseTierB HouseTier = "TierB"
	HouseTierC HouseTier = "TierC"
)

// 住房层级成本乘数：TierA 为基准，TierB ×1.2，TierC ×1.45
var tierMultipliers = map[HouseTier]decimal.Decimal{
	HouseTierA: decimal.NewFromInt(1),
	HouseTierB: decimal.NewFromFloat(1.2),
	HouseTierC: decimal.NewFromFloat(1.45),
}

// TierMultiplier 返回某住房层级的成本乘数，未知层级回落到 1
func TierMultiplier(tier HouseTier) decimal.Decimal {
	if m, ok := tierMultipliers[tier]; ok {
		return m
	}
	return decimal.NewFromInt(1)
}

// ExpenditureCategory 事件支出科目
type ExpenditureCategory string

const (
	CategoryDirectRelief   ExpenditureCategory = "Direct Relief"
	CategoryInfrastructure ExpenditureCategory = "Infrastructure"
	CategoryOperations     ExpenditureCategory = "Operations"
)

// 各科目占调整后预算的上限比例：直接救济 70%，基础设施 20%，运营 10%
var categoryCaps = map[ExpenditureCategory]decimal.Decimal{
	CategoryDirectRelief:   decimal.NewFromFloat(0.7),
	CategoryInfrastructure: decimal.NewFromFloat(0.2),
	CategoryOperations:     decimal.NewFromFloat(0.1),
}

// CapRatio 返回支出科目的上限比例，未知科目按最严的 10% 处理
func CapRatio(category ExpenditureCategory) decimal.Decimal {
	if ratio, ok := categoryCaps[category]; ok {
		return ratio
	}
	return decimal.NewFromFloat(0.1)
}

// FundStatus 资金状态
type FundStatus string

const (
	FundOpen         FundStatus = "open"
	FundClosedStatus FundStatus = "closed"
)

// IncidentFund 事件资金信封聚合根。
// 预算由成本档案公式推导而非人工录入；
// remaining = max(0, adjustedBudget − committed − spent) 在每次变更后恢复成立。
type IncidentFund struct {
	gorm.Model
	FundNo              string           `gorm:"column:fund_no;type:varchar(64);uniqueIndex;not null" json:"fund_no"`
	DisasterID          string           `gorm:"column:disaster_id;type:varchar(64);uniqueIndex;not null" json:"disaster_id"`
	DisasterType        FundDisasterType `gorm:"column:disaster_type;type:varchar(32);index;not null" json:"disaster_type"`
	BaseBudget          decimal.Decimal  `gorm:"column:base_budget;type:decimal(20,2);not null" json:"base_budget"`
	NeedsCost           decimal.Decimal  `gorm:"column:needs_cost;type:decimal(20,2);default:0" json:"needs_cost"`
	AdjustmentCost      decimal.Decimal  `gorm:"column:adjustment_cost;type:decimal(20,2);default:0" json:"adjustment_cost"`
	AdjustedBudget      decimal.Decimal  `gorm:"column:adjusted_budget;type:decimal(20,2);not null" json:"adjusted_budget"`
	Committed           decimal.Decimal  `gorm:"column:committed;type:decimal(20,2);default:0" json:"committed"`
	Spent               decimal.Decimal  `gorm:"column:spent;type:decimal(20,2);default:0" json:"spent"`
	Remaining           decimal.Decimal  `gorm:"column:remaining;type:decimal(20,2);default:0" json:"remaining"`
	HousingBaseCost     decimal.Decimal  `gorm:"column:housing_base_cost;type:decimal(20,2);default:0" json:"housing_base_cost"`
	HouseTier           HouseTier        `gorm:"column:house_tier;type:varchar(16);default:'TierA'" json:"house_tier"`
	DamagedLandHectares decimal.Decimal  `gorm:"column:damaged_land_hectares;type:decimal(12,2);default:0" json:"damaged_land_hectares"`
	ForecastRiskLevel   string           `gorm:"column:forecast_risk_level;type:varchar(16);default:'Low'" json:"forecast_risk_level"`
	Status              FundStatus       `gorm:"column:status;type:varchar(16);default:'open'" json:"status"`
}

// TableName 表名
func (IncidentFund) TableName() string {
	return "incident_funds"
}

// Recalculate 恢复剩余额度不变式
func (f *IncidentFund) Recalculate() {
	f.AdjustedBudget = f.BaseBudget.Add(f.NeedsCost).Add(f.AdjustmentCost)
	remaining := f.AdjustedBudget.Sub(f.Committed).Sub(f.Spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	f.Remaining = remaining
}

// ApplyAdjustments 应用住房层级与受损耕地调整并重算预算。
// 调整成本 = 住房基准成本 × (层级乘数 − 1) + 受损公顷数 × 每公顷成本。
func (f *IncidentFund) ApplyAdjustments(tier HouseTier, hectares decimal.Decimal, costPerHectare decimal.Decimal) error {
	if f.Status == FundClosedStatus {
		return ErrFundClosed
	}
	switch tier {
	case HouseTierA, HouseTierB, HouseTierC:
	default:
		return ErrUnknownHouseTier
	}
	f.HouseTier = tier
	f.DamagedLandHectares = hectares

	housingAdjustment := f.HousingBaseCost.Mul(TierMultiplier(tier).Sub(decimal.NewFromInt(1)))
	landCost := hectares.Mul(costPerHectare)
	f.AdjustmentCost = housingAdjustment.Add(landCost)
	f.Recalculate()
	return nil
}

// SpendableBudget 当前仍可花的额度（不含已承诺部分）
func (f *IncidentFund) SpendableBudget() decimal.Decimal {
	spendable := f.AdjustedBudget.Sub(f.Spent)
	if spendable.IsNegative() {
		return decimal.Zero
	}
	return spendable
}

// CheckExpenditure 支出登记前置校验。
// 金额为正；不超出剩余额度；科目累计已批准支出不破上限，
// 除非显式带上财务专员的越权批准。
func (f *IncidentFund) CheckExpenditure(amount decimal.Decimal, category ExpenditureCategory, approvedInCategory decimal.Decimal, overrideApproved bool) error {
	if f.Status == FundClosedStatus {
		return ErrFundClosed
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidFundAmount
	}
	if amount.GreaterThan(f.SpendableBudget()) {
		return ErrFundOverrun
	}
	capAmount := f.AdjustedBudget.Mul(CapRatio(category))
	if approvedInCategory.Add(amount).GreaterThan(capAmount) && !overrideApproved {
		return ErrCategoryCapBreach
	}
	return nil
}

// RegisterSpend 批准支出后把金额计入 spent 并恢复不变式
func (f *IncidentFund) RegisterSpend(amount decimal.Decimal) error {
	if amount.GreaterThan(f.SpendableBudget()) {
		return ErrFundOverrun
	}
	f.Spent = f.Spent.Add(amount)
	f.Recalculate()
	return nil
}
