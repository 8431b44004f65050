package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrRequestNotFound        = errors.New("allocation request not found")
	ErrRequestAlreadyApproved = errors.New("allocation request already approved")
	ErrRequestNotApprovable   = errors.New("allocation request cannot be approved in current status")
	ErrRequestNotRejectable   = errors.New("allocation request cannot be rejected in current status")
	ErrRequestNotDisbursable  = errors.New("only approved requests can be disbursed")
	ErrRequestAlreadyVoided   = errors.New("allocation request already voided")
	ErrRequestTerminal        = errors.New("allocation request is in a terminal status")
	ErrVoidReasonRequired     = errors.New("void reason is required")
	ErrRejectReasonRequired   = errors.New("rejection reason is required")
)

// RequestStatus 救助申请状态，只允许前向流转
type RequestStatus string

const (
	RequestProposed        RequestStatus = "Proposed"
	RequestPendingApproval RequestStatus = "Pending Approval"
	RequestApproved        RequestStatus = "Approved"
	RequestRejected        RequestStatus = "Rejected"
	RequestDisbursed       RequestStatus = "Disbursed"
	RequestVoided          RequestStatus = "Voided"
)

// AllocationLine 申请中一个物资包的分配行
type AllocationLine struct {
	gorm.Model
	RequestNo   string          `gorm:"column:request_no;type:varchar(64);index;not null" json:"request_no"`
	PackageID   string          `gorm:"column:package_id;type:varchar(32);not null" json:"package_id"`
	PackageName string          `gorm:"column:package_name;type:varchar(128);not null" json:"package_name"`
	Category    string          `gorm:"column:category;type:varchar(32)" json:"category"`
	Quantity    int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitCost    decimal.Decimal `gorm:"column:unit_cost;type:decimal(20,2);not null" json:"unit_cost"`
	LineTotal   decimal.Decimal `gorm:"column:line_total;type:decimal(20,2);not null" json:"line_total"`
}

// TableName 表名
func (AllocationLine) TableName() string {
	return "allocation_lines"
}

// AllocationRequest 救助申请聚合根。
// 评分快照在创建时固化，此后不随评估变化。
type AllocationRequest struct {
	gorm.Model
	RequestNo    string `gorm:"column:request_no;type:varchar(64);uniqueIndex;not null" json:"request_no"`
	AssessmentNo string `gorm:"column:assessment_no;type:varchar(64);index;not null" json:"assessment_no"`
	DisasterID   string `gorm:"column:disaster_id;type:varchar(64);index:idx_req_disaster_status;not null" json:"disaster_id"`
	HouseholdID  string `gorm:"column:household_id;type:varchar(64);index;not null" json:"household_id"`

	DamageLevel         int    `gorm:"column:damage_level;not null" json:"damage_level"`
	ElderlyHeadScore    int    `gorm:"column:elderly_head_score;default:0" json:"elderly_head_score"`
	ChildrenUnder5Score int    `gorm:"column:children_under5_score;default:0" json:"children_under5_score"`
	FemaleHeadedScore   int    `gorm:"column:female_headed_score;default:0" json:"female_headed_score"`
	LargeFamilyScore    int    `gorm:"column:large_family_score;default:0" json:"large_family_score"`
	IncomeScore         int    `gorm:"column:income_score;default:0" json:"income_score"`
	CompositeScore      int    `gorm:"column:composite_score;not null" json:"composite_score"`
	AidTier             string `gorm:"column:aid_tier;type:varchar(64);not null" json:"aid_tier"`

	TotalEstimatedCost decimal.Decimal `gorm:"column:total_estimated_cost;type:decimal(20,2);not null" json:"total_estimated_cost"`
	Status             RequestStatus   `gorm:"column:status;type:varchar(32);index:idx_req_disaster_status;default:'Proposed'" json:"status"`

	IsOverride            bool   `gorm:"column:is_override;default:false" json:"is_override"`
	OverrideReason        string `gorm:"column:override_reason;type:varchar(512)" json:"override_reason"`
	OverrideJustification string `gorm:"column:override_justification;type:varchar(1024)" json:"override_justification"`

	ApprovedBy      string     `gorm:"column:approved_by;type:varchar(128)" json:"approved_by"`
	ApprovedAt      *time.Time `gorm:"column:approved_at" json:"approved_at"`
	Justification   string     `gorm:"column:justification;type:varchar(1024)" json:"justification"`
	RejectionReason string     `gorm:"column:rejection_reason;type:varchar(512)" json:"rejection_reason"`

	VoidReason string     `gorm:"column:void_reason;type:varchar(512)" json:"void_reason"`
	VoidedBy   string     `gorm:"column:voided_by;type:varchar(128)" json:"voided_by"`
	VoidedAt   *time.Time `gorm:"column:voided_at" json:"voided_at"`

	DisbursedAt     *time.Time      `gorm:"column:disbursed_at" json:"disbursed_at"`
	DisbursedAmount decimal.Decimal `gorm:"column:disbursed_amount;type:decimal(20,2)" json:"disbursed_amount"`
	DisburseMethod  string          `gorm:"column:disburse_method;type:varchar(64)" json:"disburse_method"`
	DisburseRef     string          `gorm:"column:disburse_ref;type:varchar(64)" json:"disburse_ref"`

	CreatedBy string `gorm:"column:created_by;type:varchar(128);not null" json:"created_by"`

	Lines []AllocationLine `gorm:"foreignKey:RequestNo;references:RequestNo" json:"lines"`
}

// TableName 表名
func (AllocationRequest) TableName() string {
	return "allocation_requests"
}

// QuantityForScore 物资包数量策略：综合得分 ≥7 发放 2 份，其余 1 份
func QuantityForScore(compositeScore int) int {
	if compositeScore >= 7 {
		return 2
	}
	return 1
}

// Approve 批准申请。重复批准是硬冲突而不是幂等确认。
func (r *AllocationRequest) Approve(approver, justification string) error {
	if r.Status == RequestApproved {
		return ErrRequestAlreadyApproved
	}
	if r.Status != RequestProposed && r.Status != RequestPendingApproval {
		return ErrRequestNotApprovable
	}
	now := time.Now()
	r.Status = RequestApproved
	r.ApprovedBy = approver
	r.ApprovedAt = &now
	r.Justification = justification
	return nil
}

// Reject 驳回申请，需要书面理由
func (r *AllocationRequest) Reject(approver, reason string) error {
	if reason == "" {
		return ErrRejectReasonRequired
	}
	if r.Status != RequestProposed && r.Status != RequestPendingApproval {
		return ErrRequestNotRejectable
	}
	now := time.Now()
	r.Status = RequestRejected
	r.ApprovedBy = approver
	r.ApprovedAt = &now
	r.RejectionReason = reason
	return nil
}

// Disburse 登记发放，仅允许从 Approved 流转
func (r *AllocationRequest) Disburse(amount decimal.Decimal, method, ref string) error {
	if r.Status != RequestApproved {
		return ErrRequestNotDisbursable
	}
	now := time.Now()
	r.Status = RequestDisbursed
	r.DisbursedAt = &now
	r.DisbursedAmount = amount
	r.DisburseMethod = method
	r.DisburseRef = ref
	return nil
}

// Void 管理员作废。已发放与已作废的申请不可再作废。
func (r *AllocationRequest) Void(voider, reason string) error {
	if reason == "" {
		return ErrVoidReasonRequired
	}
	if r.Status == RequestVoided {
		return ErrRequestAlreadyVoided
	}
	if r.Status == RequestDisbursed {
		return ErrRequestTerminal
	}
	now := time.Now()
	r.Status = RequestVoided
	r.VoidReason = reason
	r.VoidedBy = voider
	r.VoidedAt = &now
	return nil
}
