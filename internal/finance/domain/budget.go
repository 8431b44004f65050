package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrBudgetNotFound        = errors.New("budget allocation not found")
	ErrInvalidAmount         = errors.New("amount must be a positive number")
	ErrInvalidCategory       = errors.New("unknown budget category")
	ErrBudgetExists          = errors.New("an approved budget already exists for this category, void it first")
	ErrBudgetAlreadyApproved = errors.New("budget already approved")
	ErrBudgetAlreadyVoided   = errors.New("budget already voided")
	ErrBudgetFrozen          = errors.New("cannot edit budget after approval, create a new allocation instead")
	ErrReasonRequired        = errors.New("a written reason is required")
)

// 预算/支出科目
const (
	CategoryFoodWater      = "Food & Water"
	CategoryMedical        = "Medical Supplies"
	CategoryShelter        = "Shelter & Housing"
	CategoryTransportation = "Transportation"
	CategoryCommunication  = "Communication"
	CategorySecurity       = "Security"
	CategoryInfrastructure = "Infrastructure"
	CategoryEducation      = "Education"
	CategoryLivelihood     = "Livelihood Support"
	CategoryOther          = "Other"
)

var validCategories = map[string]struct{}{
	CategoryFoodWater:      {},
	CategoryMedical:        {},
	CategoryShelter:        {},
	CategoryTransportation: {},
	CategoryCommunication:  {},
	CategorySecurity:       {},
	CategoryInfrastructure: {},
	CategoryEducation:      {},
	CategoryLivelihood:     {},
	CategoryOther:          {},
}

// ValidCategory 科目是否在允许清单内
func ValidCategory(category string) bool {
	_, ok := validCategories[category]
	return ok
}

// ApprovalStatus 审批状态
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "Pending"
	StatusApproved ApprovalStatus = "Approved"
	StatusRejected ApprovalStatus = "Rejected"
)

// BudgetAllocation 预算分配聚合根。
// 同一 (灾害, 科目) 任何时刻至多一条已批准且未作废的预算；
// 批准后金额冻结，只允许作废；预算记录永不删除。
type BudgetAllocation struct {
	gorm.Model
	BudgetNo        string          `gorm:"column:budget_no;type:varchar(64);uniqueIndex;not null" json:"budget_no"`
	DisasterID      string          `gorm:"column:disaster_id;type:varchar(64);index:idx_budget_scope;not null" json:"disaster_id"`
	Category        string          `gorm:"column:category;type:varchar(32);index:idx_budget_scope;not null" json:"category"`
	AllocatedAmount decimal.Decimal `gorm:"column:allocated_amount;type:decimal(20,2);not null" json:"allocated_amount"`
	FiscalYear      string          `gorm:"column:fiscal_year;type:varchar(16);not null" json:"fiscal_year"`
	Description     string          `gorm:"column:description;type:varchar(500)" json:"description"`
	ApprovalStatus  ApprovalStatus  `gorm:"column:approval_status;type:varchar(16);index:idx_budget_scope;default:'Pending'" json:"approval_status"`
	ApprovedBy      string          `gorm:"column:approved_by;type:varchar(128)" json:"approved_by"`
	ApprovalDate    *time.Time      `gorm:"column:approval_date" json:"approval_date"`
	RejectionReason string          `gorm:"column:rejection_reason;type:varchar(512)" json:"rejection_reason"`
	CreatedBy       string          `gorm:"column:created_by;type:varchar(128);not null" json:"created_by"`
	IsVoided        bool            `gorm:"column:is_voided;default:false" json:"is_voided"`
	VoidReason      string          `gorm:"column:void_reason;type:varchar(512)" json:"void_reason"`
	VoidedBy        string          `gorm:"column:voided_by;type:varchar(128)" json:"voided_by"`
	VoidedAt        *time.Time      `gorm:"column:voided_at" json:"voided_at"`
}

// TableName 表名
func (BudgetAllocation) TableName() string {
	return "budget_allocations"
}

// Validate 创建前校验
func (b *BudgetAllocation) Validate() error {
	if b.AllocatedAmount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if !ValidCategory(b.Category) {
		return ErrInvalidCategory
	}
	return nil
}

// Active 预算是否处于生效状态（已批准且未作废）
func (b *BudgetAllocation) Active() bool {
	return b.ApprovalStatus == StatusApproved && !b.IsVoided
}

// Approve 批准预算。重复批准是硬冲突；批准后金额冻结。
func (b *BudgetAllocation) Approve(approver string) error {
	if b.ApprovalStatus == StatusApproved {
		return ErrBudgetAlreadyApproved
	}
	if b.IsVoided {
		return ErrBudgetAlreadyVoided
	}
	now := time.Now()
	b.ApprovalStatus = StatusApproved
	b.ApprovedBy = approver
	b.ApprovalDate = &now
	return nil
}

// Reject 驳回预算
func (b *BudgetAllocation) Reject(approver, reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}
	if b.ApprovalStatus != StatusPending {
		return ErrBudgetFrozen
	}
	now := time.Now()
	b.ApprovalStatus = StatusRejected
	b.ApprovedBy = approver
	b.ApprovalDate = &now
	b.RejectionReason = reason
	return nil
}

// Void 作废预算，唯一允许的撤回方式
func (b *BudgetAllocation) Void(voider, reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}
	if b.IsVoided {
		return ErrBudgetAlreadyVoided
	}
	now := time.Now()
	b.IsVoided = true
	b.VoidReason = reason
	b.VoidedBy = voider
	b.VoidedAt = &now
	return nil
}
