package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrAssessmentNotFound  = errors.New("household assessment not found")
	ErrAssessmentAllocated = errors.New("assessment already allocated")
	ErrInvalidAssessment   = errors.New("invalid assessment data")
)

// IncomeCategory 收入档位
type IncomeCategory string

const (
	IncomeLow    IncomeCategory = "Low"    // ≤ M3,000/月
	IncomeMiddle IncomeCategory = "Middle" // M3,001 – M10,000/月
	IncomeHigh   IncomeCategory = "High"   // ≥ M10,001/月
)

// 月收入档位边界（Maloti）
var (
	incomeLowCeiling    = decimal.NewFromInt(3000)
	incomeMiddleCeiling = decimal.NewFromInt(10000)
)

// IncomeCategoryForAmount 由月收入推导收入档位
func IncomeCategoryForAmount(monthly decimal.Decimal) IncomeCategory {
	switch {
	case monthly.LessThanOrEqual(incomeLowCeiling):
		return IncomeLow
	case monthly.LessThanOrEqual(incomeMiddleCeiling):
		return IncomeMiddle
	default:
		return IncomeHigh
	}
}

// AssessmentStatus 评估状态
type AssessmentStatus string

const (
	AssessmentPendingReview AssessmentStatus = "Pending Review"
	AssessmentAllocated     AssessmentStatus = "Allocated"
)

// Assessment 家庭受灾评估聚合根。
// 评分引擎的只读输入；创建救助申请后仅把状态翻转为 Allocated。
type Assessment struct {
	gorm.Model
	AssessmentNo        string           `gorm:"column:assessment_no;type:varchar(64);uniqueIndex;not null" json:"assessment_no"`
	DisasterID          string           `gorm:"column:disaster_id;type:varchar(64);index:idx_disaster_status;not null" json:"disaster_id"`
	HouseholdID         string           `gorm:"column:household_id;type:varchar(64);index;not null" json:"household_id"`
	HeadName            string           `gorm:"column:head_name;type:varchar(128);not null" json:"head_name"`
	HeadAge             int              `gorm:"column:head_age;not null" json:"head_age"`
	HeadGender          string           `gorm:"column:head_gender;type:varchar(16);not null" json:"head_gender"`
	HouseholdSize       int              `gorm:"column:household_size;not null" json:"household_size"`
	ChildrenUnder5      int              `gorm:"column:children_under5;default:0" json:"children_under5"`
	MonthlyIncome       decimal.Decimal  `gorm:"column:monthly_income;type:decimal(20,2);not null" json:"monthly_income"`
	IncomeCategory      IncomeCategory   `gorm:"column:income_category;type:varchar(16);not null" json:"income_category"`
	DisasterType        string           `gorm:"column:disaster_type;type:varchar(32);not null" json:"disaster_type"`
	DamageDescription   string           `gorm:"column:damage_description;type:varchar(1000)" json:"damage_description"`
	RoofDamage          string           `gorm:"column:roof_damage;type:varchar(128);default:'None'" json:"roof_damage"`
	CropLossPercentage  int              `gorm:"column:crop_loss_percentage;default:0" json:"crop_loss_percentage"`
	LivestockLoss       int              `gorm:"column:livestock_loss;default:0" json:"livestock_loss"`
	RoomsAffected       int              `gorm:"column:rooms_affected;default:0" json:"rooms_affected"`
	WaterAccessImpacted bool             `gorm:"column:water_access_impacted;default:false" json:"water_access_impacted"`
	Village             string           `gorm:"column:village;type:varchar(128)" json:"village"`
	District            string           `gorm:"column:district;type:varchar(128)" json:"district"`
	AssessedBy          string           `gorm:"column:assessed_by;type:varchar(128);not null" json:"assessed_by"`
	AssessmentDate      time.Time        `gorm:"column:assessment_date;not null" json:"assessment_date"`
	Status              AssessmentStatus `gorm:"column:status;type:varchar(32);index:idx_disaster_status;default:'Pending Review'" json:"status"`
	Notes               string           `gorm:"column:notes;type:varchar(512)" json:"notes"`
}

// TableName 表名
func (Assessment) TableName() string {
	return "household_assessments"
}

// Validate 基础字段校验
func (a *Assessment) Validate() error {
	if a.HouseholdID == "" || a.DisasterID == "" || a.HeadName == "" {
		return ErrInvalidAssessment
	}
	if a.HeadAge < 18 || a.HouseholdSize < 1 || a.ChildrenUnder5 < 0 {
		return ErrInvalidAssessment
	}
	if a.CropLossPercentage < 0 || a.CropLossPercentage > 100 {
		return ErrInvalidAssessment
	}
	switch a.DisasterType {
	case DisasterHeavyRainfall, DisasterStrongWinds, DisasterDrought:
	default:
		return ErrInvalidAssessment
	}
	return nil
}

// MarkAllocated 在创建救助申请时把评估翻转为 Allocated
func (a *Assessment) MarkAllocated() error {
	if a.Status == AssessmentAllocated {
		return ErrAssessmentAllocated
	}
	a.Status = AssessmentAllocated
	return nil
}
