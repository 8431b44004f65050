package domain

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCalculateDamageLevel(t *testing.T) {
	tests := []struct {
		name       string
		assessment Assessment
		want       int
	}{
		{
			name:       "heavy rainfall no rooms low crop loss",
			assessment: Assessment{DisasterType: DisasterHeavyRainfall, RoomsAffected: 0, CropLossPercentage: 10},
			want:       1,
		},
		{
			name:       "heavy rainfall two rooms moderate crop loss",
			assessment: Assessment{DisasterType: DisasterHeavyRainfall, RoomsAffected: 2, CropLossPercentage: 40},
			want:       2,
		},
		{
			name:       "heavy rainfall many rooms high crop loss",
			assessment: Assessment{DisasterType: DisasterHeavyRainfall, RoomsAffected: 4, CropLossPercentage: 70},
			want:       3,
		},
		{
			name:       "heavy rainfall catastrophic",
			assessment: Assessment{DisasterType: DisasterHeavyRainfall, RoomsAffected: 5, CropLossPercentage: 90},
			want:       4,
		},
		{
			name:       "strong winds minor leak",
			assessment: Assessment{DisasterType: DisasterStrongWinds, RoofDamage: "Minor leaks"},
			want:       1,
		},
		{
			name:       "strong winds partly removed",
			assessment: Assessment{DisasterType: DisasterStrongWinds, RoofDamage: "Roof partly removed"},
			want:       2,
		},
		{
			name:       "strong winds major damage",
			assessment: Assessment{DisasterType: DisasterStrongWinds, RoofDamage: "Major structural damage"},
			want:       3,
		},
		{
			name:       "strong winds total loss",
			assessment: Assessment{DisasterType: DisasterStrongWinds, RoofDamage: "Total roof loss"},
			want:       4,
		},
		{
			name:       "strong winds unrecognized description falls back to 1",
			assessment: Assessment{DisasterType: DisasterStrongWinds, RoofDamage: "None"},
			want:       1,
		},
		{
			name:       "drought mild no water impact",
			assessment: Assessment{DisasterType: DisasterDrought, CropLossPercentage: 10, WaterAccessImpacted: false},
			want:       1,
		},
		{
			name:       "drought water impacted bumps to 2",
			assessment: Assessment{DisasterType: DisasterDrought, CropLossPercentage: 10, WaterAccessImpacted: true},
			want:       2,
		},
		{
			name:       "drought severe crop loss",
			assessment: Assessment{DisasterType: DisasterDrought, CropLossPercentage: 70, WaterAccessImpacted: false},
			want:       3,
		},
		{
			name:       "drought total crop failure",
			assessment: Assessment{DisasterType: DisasterDrought, CropLossPercentage: 95, WaterAccessImpacted: true},
			want:       4,
		},
		{
			name:       "drought severe loss not lowered by water impact",
			assessment: Assessment{DisasterType: DisasterDrought, CropLossPercentage: 85, WaterAccessImpacted: true},
			want:       4,
		},
		{
			name:       "drought half crop loss with water impact",
			assessment: Assessment{DisasterType: DisasterDrought, CropLossPercentage: 50, WaterAccessImpacted: true},
			want:       3,
		},
		{
			name:       "unknown disaster type defaults to 1",
			assessment: Assessment{DisasterType: "Earthquake", CropLossPercentage: 100},
			want:       1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateDamageLevel(&tt.assessment); got != tt.want {
				t.Errorf("CalculateDamageLevel() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCalculateVulnerability(t *testing.T) {
	a := Assessment{
		HeadAge:        70,
		HeadGender:     "Female",
		HouseholdSize:  8,
		ChildrenUnder5: 2,
		IncomeCategory: IncomeLow,
	}
	v := CalculateVulnerability(&a)
	if v.ElderlyHead != 2 {
		t.Errorf("ElderlyHead = %d, want 2", v.ElderlyHead)
	}
	if v.ChildrenUnder5 != 2 {
		t.Errorf("ChildrenUnder5 = %d, want 2", v.ChildrenUnder5)
	}
	if v.FemaleHeaded != 1 {
		t.Errorf("FemaleHeaded = %d, want 1", v.FemaleHeaded)
	}
	if v.LargeFamily != 2 {
		t.Errorf("LargeFamily = %d, want 2", v.LargeFamily)
	}
	if v.Income != 3 {
		t.Errorf("Income = %d, want 3", v.Income)
	}
	if v.Total() != 10 {
		t.Errorf("Total() = %d, want 10", v.Total())
	}
}

func TestCalculateVulnerability_NoBonuses(t *testing.T) {
	a := Assessment{
		HeadAge:        40,
		HeadGender:     "Male",
		HouseholdSize:  3,
		ChildrenUnder5: 0,
		IncomeCategory: IncomeHigh,
	}
	if v := CalculateVulnerability(&a); v.Total() != 0 {
		t.Errorf("Total() = %d, want 0", v.Total())
	}
}

func TestTierForScore(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, TierBasic},
		{3, TierBasic},
		{4, TierShelterFood},
		{6, TierShelterFood},
		{7, TierReconstruction},
		{9, TierReconstruction},
		{10, TierPriority},
		{14, TierPriority},
	}
	for _, tt := range tests {
		if got := TierForScore(tt.score); got != tt.want {
			t.Errorf("TierForScore(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestScore_DroughtHighVulnerability(t *testing.T) {
	a := Assessment{
		DisasterType:        DisasterDrought,
		CropLossPercentage:  85,
		WaterAccessImpacted: true,
		HeadAge:             70,
		HeadGender:          "Female",
		HouseholdSize:       8,
		ChildrenUnder5:      2,
		IncomeCategory:      IncomeLow,
	}
	result := Score(&a)
	if result.DamageLevel != 4 {
		t.Errorf("DamageLevel = %d, want 4", result.DamageLevel)
	}
	if result.TotalVulnerability != 10 {
		t.Errorf("TotalVulnerability = %d, want 10", result.TotalVulnerability)
	}
	if result.CompositeScore != 14 {
		t.Errorf("CompositeScore = %d, want 14", result.CompositeScore)
	}
	if result.AidTier != TierPriority {
		t.Errorf("AidTier = %q, want %q", result.AidTier, TierPriority)
	}
}

func TestIncomeCategoryForAmount(t *testing.T) {
	tests := []struct {
		amount int64
		want   IncomeCategory
	}{
		{0, IncomeLow},
		{3000, IncomeLow},
		{3001, IncomeMiddle},
		{10000, IncomeMiddle},
		{10001, IncomeHigh},
	}
	for _, tt := range tests {
		if got := IncomeCategoryForAmount(decimal.NewFromInt(tt.amount)); got != tt.want {
			t.Errorf("IncomeCategoryForAmount(%d) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestValidOverride(t *testing.T) {
	if ValidOverride("too short") {
		t.Error("expected short justification to be rejected")
	}
	long := strings.Repeat("relocation required due to flooding ", 3)
	if !ValidOverride(long) {
		t.Error("expected long justification to be accepted")
	}
}
