package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestBuildPlan_EmptyRequests(t *testing.T) {
	_, err := BuildPlan("PL1", "D1", "Plan", "coordinator", nil, nil)
	if !errors.Is(err, ErrNoApprovedAllocations) {
		t.Errorf("BuildPlan() error = %v, want ErrNoApprovedAllocations", err)
	}
}

func TestBuildPlan_AggregatesTotalsAndProcurement(t *testing.T) {
	requests := []*AllocationRequest{
		{
			RequestNo:          "AL1",
			AssessmentNo:       "HA1",
			HouseholdID:        "HH1",
			CompositeScore:     3,
			AidTier:            TierBasic,
			TotalEstimatedCost: decimal.NewFromInt(5000),
			Lines: []AllocationLine{
				{PackageID: "PKG_FOOD_001", PackageName: "Food Parcel", Quantity: 1, UnitCost: decimal.NewFromInt(800), LineTotal: decimal.NewFromInt(800)},
				{PackageID: "PKG_TARP_001", PackageName: "Tarpaulin Kit", Quantity: 1, UnitCost: decimal.NewFromInt(2000), LineTotal: decimal.NewFromInt(2000)},
			},
		},
		{
			RequestNo:          "AL2",
			AssessmentNo:       "HA2",
			HouseholdID:        "HH2",
			CompositeScore:     8,
			AidTier:            TierReconstruction,
			TotalEstimatedCost: decimal.NewFromInt(7000),
			Lines: []AllocationLine{
				{PackageID: "PKG_FOOD_001", PackageName: "Food Parcel", Quantity: 2, UnitCost: decimal.NewFromInt(800), LineTotal: decimal.NewFromInt(1600)},
			},
		},
	}
	households := map[string]*Assessment{
		"HA1": {HeadName: "Thabo M.", DisasterType: DisasterHeavyRainfall},
		"HA2": {HeadName: "Lineo K.", DisasterType: DisasterDrought},
	}

	plan, err := BuildPlan("PL1", "D1", "First Distribution", "coordinator", requests, households)
	if err != nil {
		t.Fatalf("BuildPlan() error = %v", err)
	}

	if plan.HouseholdsCovered != 2 {
		t.Errorf("HouseholdsCovered = %d, want 2", plan.HouseholdsCovered)
	}
	if !plan.TotalBudgetRequired.Equal(decimal.NewFromInt(12000)) {
		t.Errorf("TotalBudgetRequired = %s, want 12000", plan.TotalBudgetRequired)
	}
	if len(plan.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(plan.Items))
	}
	if plan.Items[0].HouseholdName != "Thabo M." {
		t.Errorf("HouseholdName = %q, want Thabo M.", plan.Items[0].HouseholdName)
	}

	// 采购汇总按物资包合并，保持首次出现顺序
	if len(plan.Procurements) != 2 {
		t.Fatalf("len(Procurements) = %d, want 2", len(plan.Procurements))
	}
	food := plan.Procurements[0]
	if food.PackageID != "PKG_FOOD_001" {
		t.Fatalf("first procurement = %q, want PKG_FOOD_001", food.PackageID)
	}
	if food.TotalQuantity != 3 {
		t.Errorf("food TotalQuantity = %d, want 3", food.TotalQuantity)
	}
	if !food.TotalCost.Equal(decimal.NewFromInt(2400)) {
		t.Errorf("food TotalCost = %s, want 2400", food.TotalCost)
	}

	dist, err := plan.VulnerabilityDist()
	if err != nil {
		t.Fatalf("VulnerabilityDist() error = %v", err)
	}
	if dist.Tier0To3.Count != 1 || dist.Tier7To9.Count != 1 {
		t.Errorf("distribution = %+v, want one household in 0-3 and one in 7-9", dist)
	}
	if dist.Tier0To3.Percentage != "50.00" {
		t.Errorf("Tier0To3.Percentage = %q, want 50.00", dist.Tier0To3.Percentage)
	}

	breakdown, err := plan.TypeBreakdown()
	if err != nil {
		t.Fatalf("TypeBreakdown() error = %v", err)
	}
	if breakdown.HeavyRainfall.Count != 1 || !breakdown.HeavyRainfall.TotalCost.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("heavy rainfall bucket = %+v", breakdown.HeavyRainfall)
	}
	if breakdown.Drought.Count != 1 || !breakdown.Drought.TotalCost.Equal(decimal.NewFromInt(7000)) {
		t.Errorf("drought bucket = %+v", breakdown.Drought)
	}
}

func TestTierBand(t *testing.T) {
	tests := []struct {
		tier string
		want int
	}{
		{TierBasic, 0},
		{TierShelterFood, 4},
		{TierReconstruction, 7},
		{TierPriority, 10},
		{"Unlabeled", 0},
	}
	for _, tt := range tests {
		if got := tierBand(tt.tier); got != tt.want {
			t.Errorf("tierBand(%q) = %d, want %d", tt.tier, got, tt.want)
		}
	}
}
