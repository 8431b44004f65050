package domain

import "github.com/shopspring/decimal"

// Package 救助物资包定义。静态登记表，只读，不入库。
type Package struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	UnitCost            decimal.Decimal `json:"unit_cost"`
	Category            string   `json:"category"`
	ApplicableDisasters []string `json:"applicable_disasters"`
	ScoreMin            int      `json:"score_min"`
	ScoreMax            int      `json:"score_max"`
	QuantityUnit        string   `json:"quantity_unit"`
}

func cost(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

var catalog = []Package{
	{ID: "PKG_FOOD_001", Name: "Food Parcel", Description: "Emergency food supplies for household (1-month supply)", UnitCost: cost(800), Category: "Food & Water", ApplicableDisasters: []string{DisasterHeavyRainfall, DisasterStrongWinds, DisasterDrought, "All"}, ScoreMin: 0, ScoreMax: 10, QuantityUnit: "Pack"},
	{ID: "PKG_TARP_001", Name: "Tarpaulin Kit", Description: "Weatherproof tarpaulin for emergency shelter (50sqm)", UnitCost: cost(2000), Category: "Shelter", ApplicableDisasters: []string{DisasterHeavyRainfall, DisasterStrongWinds, "All"}, ScoreMin: 1, ScoreMax: 10, QuantityUnit: "Kit"},
	{ID: "PKG_TENT_001", Name: "Emergency Tent", Description: "Tent shelter unit (family size, 8x4m)", UnitCost: cost(6500), Category: "Shelter", ApplicableDisasters: []string{DisasterHeavyRainfall, DisasterStrongWinds, "All"}, ScoreMin: 2, ScoreMax: 10, QuantityUnit: "Unit"},
	{ID: "PKG_REROOF_001", Name: "Re-roofing Kit", Description: "Roofing materials for house repair (corrugated iron sheets, nails, etc.)", UnitCost: cost(18000), Category: "Reconstruction", ApplicableDisasters: []string{DisasterHeavyRainfall, DisasterStrongWinds, "All"}, ScoreMin: 2, ScoreMax: 10, QuantityUnit: "Kit"},
	{ID: "PKG_RECON_001", Name: "Reconstruction Grant", Description: "Comprehensive grant for house reconstruction", UnitCost: cost(75000), Category: "Reconstruction", ApplicableDisasters: []string{DisasterHeavyRainfall, DisasterStrongWinds, "All"}, ScoreMin: 3, ScoreMax: 10, QuantityUnit: "Grant"},
	{ID: "PKG_LIVELI_001", Name: "Livelihood Recovery Kit", Description: "Tools and materials for livelihood restoration (seeds, tools, etc.)", UnitCost: cost(10000), Category: "Livelihood", ApplicableDisasters: []string{DisasterDrought, DisasterHeavyRainfall, "All"}, ScoreMin: 2, ScoreMax: 10, QuantityUnit: "Kit"},
	{ID: "PKG_WAT_001", Name: "Water Purification Kit", Description: "Water treatment equipment (filters, chemicals, buckets)", UnitCost: cost(1200), Category: "Food & Water", ApplicableDisasters: []string{DisasterHeavyRainfall, DisasterDrought, "All"}, ScoreMin: 1, ScoreMax: 10, QuantityUnit: "Kit"},
	{ID: "PKG_BLANK_001", Name: "Blanket & Clothing Pack", Description: "Winter clothing and blankets (2 sets per pack)", UnitCost: cost(1500), Category: "Shelter", ApplicableDisasters: []string{DisasterHeavyRainfall, DisasterStrongWinds, DisasterDrought, "All"}, ScoreMin: 0, ScoreMax: 10, QuantityUnit: "Pack"},
	{ID: "PKG_MED_001", Name: "Medical Aid Kit", Description: "Emergency medical supplies and first aid equipment", UnitCost: cost(1000), Category: "Health", ApplicableDisasters: []string{DisasterHeavyRainfall, DisasterStrongWinds, DisasterDrought, "All"}, ScoreMin: 0, ScoreMax: 10, QuantityUnit: "Kit"},
	{ID: "PKG_FURN_001", Name: "Furniture Replacement Pack", Description: "Replacement furniture (beds, tables, chairs)", UnitCost: cost(10000), Category: "Reconstruction", ApplicableDisasters: []string{DisasterHeavyRainfall, DisasterStrongWinds, "All"}, ScoreMin: 2, ScoreMax: 10, QuantityUnit: "Pack"},
	{ID: "PKG_SCHOOL_001", Name: "School Repair Kit", Description: "Materials for school infrastructure repair", UnitCost: cost(20000), Category: "Education", ApplicableDisasters: []string{DisasterHeavyRainfall, DisasterStrongWinds, "All"}, ScoreMin: 2, ScoreMax: 10, QuantityUnit: "Kit"},
	{ID: "PKG_COMM_001", Name: "Community Shelter Support", Description: "Support for community gathering place construction", UnitCost: cost(50000), Category: "Community", ApplicableDisasters: []string{DisasterHeavyRainfall, DisasterStrongWinds, "All"}, ScoreMin: 2, ScoreMax: 10, QuantityUnit: "Grant"},
	{ID: "PKG_CASH_001", Name: "Cash Transfer (3 months)", Description: "Direct cash transfer for livelihood support (3-month stipend)", UnitCost: cost(3000), Category: "Cash Transfer", ApplicableDisasters: []string{DisasterHeavyRainfall, DisasterStrongWinds, DisasterDrought, "All"}, ScoreMin: 1, ScoreMax: 10, QuantityUnit: "Transfer"},
	{ID: "PKG_WTANK_001", Name: "Water Tank (5,000L)", Description: "Large water storage tank for household or community", UnitCost: cost(12000), Category: "Food & Water", ApplicableDisasters: []string{DisasterDrought, DisasterHeavyRainfall, "All"}, ScoreMin: 1, ScoreMax: 10, QuantityUnit: "Unit"},
	{ID: "PKG_BORE_001", Name: "Borehole Rehabilitation Grant", Description: "Grant for borehole drilling and rehabilitation", UnitCost: cost(50000), Category: "Food & Water", ApplicableDisasters: []string{DisasterDrought, "All"}, ScoreMin: 2, ScoreMax: 10, QuantityUnit: "Grant"},
	{ID: "PKG_FEED_001", Name: "Livestock Feed Pack", Description: "Animal feed and supplements (3-month supply)", UnitCost: cost(5000), Category: "Livelihood", ApplicableDisasters: []string{DisasterDrought, DisasterHeavyRainfall, "All"}, ScoreMin: 1, ScoreMax: 10, QuantityUnit: "Pack"},
	{ID: "PKG_LIVES_001", Name: "Small Livestock Restocking Pack", Description: "Young animals for livelihood restoration (goats/chickens)", UnitCost: cost(15000), Category: "Livelihood", ApplicableDisasters: []string{DisasterDrought, DisasterHeavyRainfall, "All"}, ScoreMin: 2, ScoreMax: 10, QuantityUnit: "Pack"},
	{ID: "PKG_IRRIG_001", Name: "Community Irrigation Support", Description: "Grant for irrigation infrastructure development", UnitCost: cost(100000), Category: "Livelihood", ApplicableDisasters: []string{DisasterDrought, "All"}, ScoreMin: 2, ScoreMax: 10, QuantityUnit: "Grant"},
}

// 各层级的推荐物资包固定清单
var recommendedByTier = map[string][]string{
	TierBasic:          {"PKG_FOOD_001", "PKG_TARP_001", "PKG_WAT_001", "PKG_BLANK_001", "PKG_MED_001"},
	TierShelterFood:    {"PKG_TENT_001", "PKG_FOOD_001", "PKG_CASH_001", "PKG_WAT_001", "PKG_MED_001", "PKG_BLANK_001"},
	TierReconstruction: {"PKG_TENT_001", "PKG_REROOF_001", "PKG_FOOD_001", "PKG_CASH_001", "PKG_LIVELI_001", "PKG_WAT_001", "PKG_FURN_001"},
	TierPriority:       {"PKG_RECON_001", "PKG_TENT_001", "PKG_LIVELI_001", "PKG_CASH_001", "PKG_LIVES_001", "PKG_WTANK_001", "PKG_FURN_001"},
}

// AllPackages 返回完整的物资包登记表
func AllPackages() []Package {
	out := make([]Package, len(catalog))
	copy(out, catalog)
	return out
}

// PackageByID 按编号查找物资包
func PackageByID(id string) (Package, bool) {
	for _, pkg := range catalog {
		if pkg.ID == id {
			return pkg, true
		}
	}
	return Package{}, false
}

// PackagesForScore 返回对该灾种适用且得分落在适用区间内的所有物资包
func PackagesForScore(compositeScore int, disasterType string) []Package {
	var out []Package
	for _, pkg := range catalog {
		if !disasterApplicable(pkg, disasterType) {
			continue
		}
		if compositeScore < pkg.ScoreMin || compositeScore > pkg.ScoreMax {
			continue
		}
		out = append(out, pkg)
	}
	return out
}

// RecommendedPackages 返回某救助层级的推荐物资包清单。
// 未知层级回落到基础支持层。
func RecommendedPackages(tier string) []Package {
	ids, ok := recommendedByTier[tier]
	if !ok {
		ids = recommendedByTier[TierBasic]
	}
	out := make([]Package, 0, len(ids))
	for _, id := range ids {
		if pkg, found := PackageByID(id); found {
			out = append(out, pkg)
		}
	}
	return out
}

func disasterApplicable(pkg Package, disasterType string) bool {
	for _, d := range pkg.ApplicableDisasters {
		if d == disasterType || d == "All" {
			return true
		}
	}
	return false
}
