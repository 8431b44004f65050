package domain

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrPlanNotFound          = errors.New("allocation plan not found")
	ErrNoApprovedAllocations = errors.New("no approved allocations found for this disaster")
)

// PlanStatus 计划状态
type PlanStatus string

const (
	PlanDraft PlanStatus = "Draft"
)

// PlanItem 计划中一户的分配明细
type PlanItem struct {
	gorm.Model
	PlanNo         string          `gorm:"column:plan_no;type:varchar(64);index;not null" json:"plan_no"`
	RequestNo      string          `gorm:"column:request_no;type:varchar(64);not null" json:"request_no"`
	HouseholdID    string          `gorm:"column:household_id;type:varchar(64);not null" json:"household_id"`
	HouseholdName  string          `gorm:"column:household_name;type:varchar(128)" json:"household_name"`
	CompositeScore int             `gorm:"column:composite_score;not null" json:"composite_score"`
	AidTier        string          `gorm:"column:aid_tier;type:varchar(64);not null" json:"aid_tier"`
	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:decimal(20,2);not null" json:"subtotal"`
}

// TableName 表名
func (PlanItem) TableName() string {
	return "allocation_plan_items"
}

// ProcurementLine 采购汇总行，按物资包编号合并数量与成本
type ProcurementLine struct {
	gorm.Model
	PlanNo        string          `gorm:"column:plan_no;type:varchar(64);index;not null" json:"plan_no"`
	PackageID     string          `gorm:"column:package_id;type:varchar(32);not null" json:"package_id"`
	PackageName   string          `gorm:"column:package_name;type:varchar(128)" json:"package_name"`
	Category      string          `gorm:"column:category;type:varchar(32)" json:"category"`
	UnitCost      decimal.Decimal `gorm:"column:unit_cost;type:decimal(20,2);not null" json:"unit_cost"`
	TotalQuantity int             `gorm:"column:total_quantity;not null" json:"total_quantity"`
	TotalCost     decimal.Decimal `gorm:"column:total_cost;type:decimal(20,2);not null" json:"total_cost"`
}

// TableName 表名
func (ProcurementLine) TableName() string {
	return "allocation_plan_procurements"
}

// TierBucket 脆弱性层级分布的一个桶
type TierBucket struct {
	Count      int    `json:"count"`
	Percentage string `json:"percentage"`
}

// VulnerabilityDistribution 四档脆弱性分布
type VulnerabilityDistribution struct {
	Tier0To3   TierBucket `json:"tier0_3"`
	Tier4To6   TierBucket `json:"tier4_6"`
	Tier7To9   TierBucket `json:"tier7_9"`
	Tier10Plus TierBucket `json:"tier10_plus"`
}

// DisasterBucket 某灾种的户数与成本
type DisasterBucket struct {
	Count     int             `json:"count"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

// DisasterTypeBreakdown 三灾种成本分布
type DisasterTypeBreakdown struct {
	HeavyRainfall DisasterBucket `json:"heavy_rainfall"`
	StrongWinds   DisasterBucket `json:"strong_winds"`
	Drought       DisasterBucket `json:"drought"`
}

// AllocationPlan 救助发放计划聚合根。
// 按灾害汇总全部已批准申请，按需生成，生成后不可变更。
type AllocationPlan struct {
	gorm.Model
	PlanNo              string          `gorm:"column:plan_no;type:varchar(64);uniqueIndex;not null" json:"plan_no"`
	DisasterID          string          `gorm:"column:disaster_id;type:varchar(64);index;not null" json:"disaster_id"`
	PlanName            string          `gorm:"column:plan_name;type:varchar(128)" json:"plan_name"`
	PlanDate            time.Time       `gorm:"column:plan_date;not null" json:"plan_date"`
	HouseholdsCovered   int             `gorm:"column:households_covered;not null" json:"households_covered"`
	TotalBudgetRequired decimal.Decimal `gorm:"column:total_budget_required;type:decimal(20,2);not null" json:"total_budget_required"`
	Vulnerability       string          `gorm:"column:vulnerability;type:json" json:"-"`
	DisasterBreakdown   string          `gorm:"column:disaster_breakdown;type:json" json:"-"`
	Status              PlanStatus      `gorm:"column:status;type:varchar(16);default:'Draft'" json:"status"`
	CreatedBy           string          `gorm:"column:created_by;type:varchar(128)" json:"created_by"`

	Items        []PlanItem        `gorm:"foreignKey:PlanNo;references:PlanNo" json:"items"`
	Procurements []ProcurementLine `gorm:"foreignKey:PlanNo;references:PlanNo" json:"procurements"`
}

// TableName 表名
func (AllocationPlan) TableName() string {
	return "allocation_plans"
}

func (p *AllocationPlan) setBreakdowns(dist VulnerabilityDistribution, breakdown DisasterTypeBreakdown) error {
	rawDist, err := json.Marshal(dist)
	if err != nil {
		return err
	}
	rawBreakdown, err := json.Marshal(breakdown)
	if err != nil {
		return err
	}
	p.Vulnerability = string(rawDist)
	p.DisasterBreakdown = string(rawBreakdown)
	return nil
}

// VulnerabilityDist 反序列化脆弱性分布
func (p *AllocationPlan) VulnerabilityDist() (VulnerabilityDistribution, error) {
	var dist VulnerabilityDistribution
	err := json.Unmarshal([]byte(p.Vulnerability), &dist)
	return dist, err
}

// TypeBreakdown 反序列化灾种成本分布
func (p *AllocationPlan) TypeBreakdown() (DisasterTypeBreakdown, error) {
	var breakdown DisasterTypeBreakdown
	err := json.Unmarshal([]byte(p.DisasterBreakdown), &breakdown)
	return breakdown, err
}

var tierPrefixRe = regexp.MustCompile(`\d+`)

// tierBand 解析层级标签中的数字前缀，用于分布分桶
func tierBand(aidTier string) int {
	m := tierPrefixRe.FindString(aidTier)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// BuildPlan 由已批准的申请集合聚合出一份发放计划。
// 空集合返回 ErrNoApprovedAllocations。
func BuildPlan(planNo, disasterID, planName, createdBy string, requests []*AllocationRequest, households map[string]*Assessment) (*AllocationPlan, error) {
	if len(requests) == 0 {
		return nil, ErrNoApprovedAllocations
	}

	plan := &AllocationPlan{
		PlanNo:            planNo,
		DisasterID:        disasterID,
		PlanName:          planName,
		PlanDate:          time.Now(),
		HouseholdsCovered: len(requests),
		Status:            PlanDraft,
		CreatedBy:         createdBy,
	}

	total := decimal.Zero
	var dist VulnerabilityDistribution
	var breakdown DisasterTypeBreakdown
	procurement := make(map[string]*ProcurementLine)
	var order []string

	for _, req := range requests {
		total = total.Add(req.TotalEstimatedCost)

		switch band := tierBand(req.AidTier); {
		case band <= 3:
			dist.Tier0To3.Count++
		case band <= 6:
			dist.Tier4To6.Count++
		case band <= 9:
			dist.Tier7To9.Count++
		default:
			dist.Tier10Plus.Count++
		}

		item := PlanItem{
			PlanNo:         planNo,
			RequestNo:      req.RequestNo,
			HouseholdID:    req.HouseholdID,
			CompositeScore: req.CompositeScore,
			AidTier:        req.AidTier,
			Subtotal:       req.TotalEstimatedCost,
		}
		disasterType := ""
		if hh, ok := households[req.AssessmentNo]; ok {
			item.HouseholdName = hh.HeadName
			disasterType = hh.DisasterType
		}
		plan.Items = append(plan.Items, item)

		switch disasterType {
		case DisasterHeavyRainfall:
			breakdown.HeavyRainfall.Count++
			breakdown.HeavyRainfall.TotalCost = breakdown.HeavyRainfall.TotalCost.Add(req.TotalEstimatedCost)
		case DisasterStrongWinds:
			breakdown.StrongWinds.Count++
			breakdown.StrongWinds.TotalCost = breakdown.StrongWinds.TotalCost.Add(req.TotalEstimatedCost)
		case DisasterDrought:
			breakdown.Drought.Count++
			breakdown.Drought.TotalCost = breakdown.Drought.TotalCost.Add(req.TotalEstimatedCost)
		}

		for _, line := range req.Lines {
			agg, ok := procurement[line.PackageID]
			if !ok {
				agg = &ProcurementLine{
					PlanNo:      planNo,
					PackageID:   line.PackageID,
					PackageName: line.PackageName,
					Category:    line.Category,
					UnitCost:    line.UnitCost,
					TotalCost:   decimal.Zero,
				}
				procurement[line.PackageID] = agg
				order = append(order, line.PackageID)
			}
			agg.TotalQuantity += line.Quantity
			agg.TotalCost = agg.TotalCost.Add(line.LineTotal)
		}
	}

	totalCount := len(requests)
	for _, bucket := range []*TierBucket{&dist.Tier0To3, &dist.Tier4To6, &dist.Tier7To9, &dist.Tier10Plus} {
		pct := decimal.NewFromInt(int64(bucket.Count)).
			Div(decimal.NewFromInt(int64(totalCount))).
			Mul(decimal.NewFromInt(100))
		bucket.Percentage = pct.StringFixed(2)
	}

	for _, id := range order {
		plan.Procurements = append(plan.Procurements, *procurement[id])
	}
	plan.TotalBudgetRequired = total

	if err := plan.setBreakdowns(dist, breakdown); err != nil {
		return nil, err
	}
	return plan, nil
}
