package domain

import "strings"

// 灾害类型
const (
	DisasterHeavyRainfall = "Heavy Rainfall"
	DisasterStrongWinds   = "Strong Winds"
	DisasterDrought       = "Drought"
)

// 救助层级标签，由综合得分阶梯映射得到
const (
	TierBasic          = "Basic Support (0-3)"
	TierShelterFood    = "Shelter + Food + Cash (4-6)"
	TierReconstruction = "Tent + Reconstruction + Food (7-9)"
	TierPriority       = "Priority Reconstruction + Livelihood (10+)"
)

// VulnerabilityPoints 脆弱性加分明细
type VulnerabilityPoints struct {
	ElderlyHead    int `json:"elderly_head"`
	ChildrenUnder5 int `json:"children_under5"`
	FemaleHeaded   int `json:"female_headed"`
	LargeFamily    int `json:"large_family"`
	Income         int `json:"income"`
}

// Total 脆弱性加分合计
func (v VulnerabilityPoints) Total() int {
	return v.ElderlyHead + v.ChildrenUnder5 + v.FemaleHeaded + v.LargeFamily + v.Income
}

// ScoringResult 评分结果，作为不可变快照存入救助申请
type ScoringResult struct {
	DamageLevel        int                 `json:"damage_level"`
	Vulnerability      VulnerabilityPoints `json:"vulnerability"`
	TotalVulnerability int                 `json:"total_vulnerability"`
	CompositeScore     int                 `json:"composite_score"`
	AidTier            string              `json:"aid_tier"`
}

// CalculateDamageLevel 按灾种规则计算损失等级。
// 每个分支必定返回 1..4 之一，未知灾种回落到 1。
func CalculateDamageLevel(a *Assessment) int {
	switch a.DisasterType {
	case DisasterHeavyRainfall:
		switch {
		case a.RoomsAffected == 0 && a.CropLossPercentage < 20:
			return 1
		case a.RoomsAffected <= 2 && a.CropLossPercentage < 50:
			return 2
		case a.RoomsAffected >= 2 && a.CropLossPercentage < 80:
			return 3
		default:
			return 4
		}
	case DisasterStrongWinds:
		roof := strings.ToLower(a.RoofDamage)
		switch {
		case strings.Contains(roof, "minor") || strings.Contains(roof, "leak"):
			return 1
		case strings.Contains(roof, "partly") || strings.Contains(roof, "partial"):
			return 2
		case strings.Contains(roof, "major") || strings.Contains(roof, "most"):
			return 3
		case strings.Contains(roof, "total") || strings.Contains(roof, "complete"):
			return 4
		default:
			return 1
		}
	case DisasterDrought:
		// 作物损失阈值优先于供水受阻：供水受阻只把轻度损失抬到 2 级，
		// 不会压低重度损失的等级。
		switch {
		case a.CropLossPercentage >= 80:
			return 4
		case a.CropLossPercentage >= 50:
			return 3
		case a.CropLossPercentage < 20 && !a.WaterAccessImpacted:
			return 1
		default:
			return 2
		}
	}
	return 1
}

// CalculateVulnerability 计算脆弱性加分明细。
// 户主>65 岁 +2；有 5 岁以下儿童 +2；女性户主 +1；家庭>6 人 +2；
// 低收入 +3，中等收入 +1，高收入 +0。
func CalculateVulnerability(a *Assessment) VulnerabilityPoints {
	var v VulnerabilityPoints
	if a.HeadAge > 65 {
		v.ElderlyHead = 2
	}
	if a.ChildrenUnder5 > 0 {
		v.ChildrenUnder5 = 2
	}
	if a.HeadGender == "Female" {
		v.FemaleHeaded = 1
	}
	if a.HouseholdSize > 6 {
		v.LargeFamily = 2
	}
	switch a.IncomeCategory {
	case IncomeLow:
		v.Income = 3
	case IncomeMiddle:
		v.Income = 1
	}
	return v
}

// TierForScore 综合得分到救助层级的阶梯映射
func TierForScore(score int) string {
	switch {
	case score <= 3:
		return TierBasic
	case score <= 6:
		return TierShelterFood
	case score <= 9:
		return TierReconstruction
	default:
		return TierPriority
	}
}

// Score 纯函数：评估 → 评分结果。无副作用。
func Score(a *Assessment) ScoringResult {
	damage := CalculateDamageLevel(a)
	vulnerability := CalculateVulnerability(a)
	composite := damage + vulnerability.Total()
	return ScoringResult{
		DamageLevel:        damage,
		Vulnerability:      vulnerability,
		TotalVulnerability: vulnerability.Total(),
		CompositeScore:     composite,
		AidTier:            TierForScore(composite),
	}
}

// 应急偏离（override）必须附带不少于 50 字符的书面理由
const overrideJustificationMinLen = 50

// ValidOverride 校验偏离理由是否满足最低长度要求
func ValidOverride(justification string) bool {
	return len(justification) >= overrideJustificationMinLen
}
