package domain

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrProfileNotFound = errors.New("cost profile not found")
	ErrImpactNotFound  = errors.New("incident impact not found")
)

// FundDisasterType 资金池侧的灾种键
type FundDisasterType string

const (
	FundDrought       FundDisasterType = "drought"
	FundHeavyRainfall FundDisasterType = "heavy_rainfall"
	FundStrongWinds   FundDisasterType = "strong_winds"
)

// DisasterCostProfile 灾种单位成本档案，基础预算的计算依据
type DisasterCostProfile struct {
	gorm.Model
	DisasterType            FundDisasterType `gorm:"column:disaster_type;type:varchar(32);uniqueIndex;not null" json:"disaster_type"`
	CostPerHousehold        decimal.Decimal  `gorm:"column:cost_per_household;type:decimal(20,2);not null" json:"cost_per_household"`
	CostPerPerson           decimal.Decimal  `gorm:"column:cost_per_person;type:decimal(20,2);not null" json:"cost_per_person"`
	CostPerLivestockUnit    decimal.Decimal  `gorm:"column:cost_per_livestock_unit;type:decimal(20,2);not null" json:"cost_per_livestock_unit"`
	CostPerFarmingHousehold decimal.Decimal  `gorm:"column:cost_per_farming_household;type:decimal(20,2);not null" json:"cost_per_farming_household"`
	OperationalRate         decimal.Decimal  `gorm:"column:operational_rate;type:decimal(8,4);not null" json:"operational_rate"`
	ContingencyRate         decimal.Decimal  `gorm:"column:contingency_rate;type:decimal(8,4);not null" json:"contingency_rate"`
}

// TableName 表名
func (DisasterCostProfile) TableName() string {
	return "disaster_cost_profiles"
}

// NeedCost 一项需求的单位成本
type NeedCost struct {
	gorm.Model
	ProfileID        uint            `gorm:"column:profile_id;index;not null" json:"-"`
	Name             string          `gorm:"column:name;type:varchar(128);not null" json:"name"`
	CostPerHousehold decimal.Decimal `gorm:"column:cost_per_household;type:decimal(20,2);not null" json:"cost_per_household"`
	CostPerPerson    decimal.Decimal `gorm:"column:cost_per_person;type:decimal(20,2);not null" json:"cost_per_person"`
}

// TableName 表名
func (NeedCost) TableName() string {
	return "need_costs"
}

// NeedCostProfile 灾种需求成本档案
type NeedCostProfile struct {
	gorm.Model
	DisasterType   FundDisasterType `gorm:"column:disaster_type;type:varchar(32);uniqueIndex;not null" json:"disaster_type"`
	CostPerHectare decimal.Decimal  `gorm:"column:cost_per_hectare;type:decimal(20,2);default:0" json:"cost_per_hectare"`
	Needs          []NeedCost       `gorm:"foreignKey:ProfileID" json:"needs"`
}

// TableName 表名
func (NeedCostProfile) TableName() string {
	return "need_cost_profiles"
}

// NeedsCost 按受灾户数与人数汇总需求成本
func (p *NeedCostProfile) NeedsCost(impact *IncidentImpact) decimal.Decimal {
	if impact == nil {
		return decimal.Zero
	}
	total := decimal.Zero
	households := decimal.NewFromInt(int64(impact.HouseholdsAffected))
	individuals := decimal.NewFromInt(int64(impact.IndividualsAffected))
	for _, need := range p.Needs {
		total = total.Add(households.Mul(need.CostPerHousehold))
		total = total.Add(individuals.Mul(need.CostPerPerson))
	}
	return total
}

// HousingCostProfile 住房层级基准成本档案
type HousingCostProfile struct {
	gorm.Model
	TierA decimal.Decimal `gorm:"column:tier_a;type:decimal(20,2);not null" json:"tier_a"`
	TierB decimal.Decimal `gorm:"column:tier_b;type:decimal(20,2);not null" json:"tier_b"`
	TierC decimal.Decimal `gorm:"column:tier_c;type:decimal(20,2);not null" json:"tier_c"`
}

// TableName 表名
func (HousingCostProfile) TableName() string {
	return "housing_cost_profiles"
}

// IncidentImpact 事件影响范围
type IncidentImpact struct {
	gorm.Model
	DisasterID          string           `gorm:"column:disaster_id;type:varchar(64);uniqueIndex;not null" json:"disaster_id"`
	DisasterType        FundDisasterType `gorm:"column:disaster_type;type:varchar(32);not null" json:"disaster_type"`
	HouseholdsAffected  int              `gorm:"column:households_affected;not null" json:"households_affected"`
	IndividualsAffected int              `gorm:"column:individuals_affected;not null" json:"individuals_affected"`
	LivestockAffected   int              `gorm:"column:livestock_affected;default:0" json:"livestock_affected"`
	FarmingHouseholds   int              `gorm:"column:farming_households;default:0" json:"farming_households"`
	SeverityLevel       string           `gorm:"column:severity_level;type:varchar(16);default:'medium'" json:"severity_level"`
}

// TableName 表名
func (IncidentImpact) TableName() string {
	return "incident_impacts"
}

// BaseBudget 影响范围 × 灾种单位成本 = 基础预算
func (p *DisasterCostProfile) BaseBudget(impact *IncidentImpact) decimal.Decimal {
	if impact == nil {
		return decimal.Zero
	}
	total := decimal.NewFromInt(int64(impact.HouseholdsAffected)).Mul(p.CostPerHousehold)
	total = total.Add(decimal.NewFromInt(int64(impact.IndividualsAffected)).Mul(p.CostPerPerson))
	total = total.Add(decimal.NewFromInt(int64(impact.LivestockAffected)).Mul(p.CostPerLivestockUnit))
	total = total.Add(decimal.NewFromInt(int64(impact.FarmingHouseholds)).Mul(p.CostPerFarmingHousehold))
	return total
}
