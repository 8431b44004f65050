package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrExpenditureNotFound        = errors.New("incident expenditure not found")
	ErrExpenditureAlreadyApproved = errors.New("expenditure already approved")
	ErrExpenditureNotPending      = errors.New("only pending expenditures can be decided")
)

// ExpenditureStatus 支出审批状态
type ExpenditureStatus string

const (
	ExpenditurePending  ExpenditureStatus = "Pending"
	ExpenditureApproved ExpenditureStatus = "Approved"
	ExpenditureRejected ExpenditureStatus = "Rejected"
)

// IncidentExpenditure 事件支出。
// overrideApproved 标记财务专员对科目上限的显式越权批准。
type IncidentExpenditure struct {
	gorm.Model
	ExpenditureNo    string              `gorm:"column:expenditure_no;type:varchar(64);uniqueIndex;not null" json:"expenditure_no"`
	FundNo           string              `gorm:"column:fund_no;type:varchar(64);index;not null" json:"fund_no"`
	Category         ExpenditureCategory `gorm:"column:category;type:varchar(32);index;not null" json:"category"`
	Amount           decimal.Decimal     `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	Description      string              `gorm:"column:description;type:varchar(500);not null" json:"description"`
	RecordedBy       string              `gorm:"column:recorded_by;type:varchar(128);not null" json:"recorded_by"`
	OverrideApproved bool                `gorm:"column:override_approved;default:false" json:"override_approved"`
	ReceiptURL       string              `gorm:"column:receipt_url;type:varchar(512)" json:"receipt_url"`
	Status           ExpenditureStatus   `gorm:"column:status;type:varchar(16);index;default:'Pending'" json:"status"`
	ApprovedBy       string              `gorm:"column:approved_by;type:varchar(128)" json:"approved_by"`
	ApprovedAt       *time.Time          `gorm:"column:approved_at" json:"approved_at"`
	SpentAt          time.Time           `gorm:"column:spent_at;index;not null" json:"spent_at"`
}

// TableName 表名
func (IncidentExpenditure) TableName() string {
	return "incident_expenditures"
}

// Approve 批准事件支出。重复批准是硬冲突。
func (x *IncidentExpenditure) Approve(approver string) error {
	if x.Status == ExpenditureApproved {
		return ErrExpenditureAlreadyApproved
	}
	if x.Status != ExpenditurePending {
		return ErrExpenditureNotPending
	}
	now := time.Now()
	x.Status = ExpenditureApproved
	x.ApprovedBy = approver
	x.ApprovedAt = &now
	return nil
}

// Reject 驳回事件支出
func (x *IncidentExpenditure) Reject(approver string) error {
	if x.Status != ExpenditurePending {
		return ErrExpenditureNotPending
	}
	now := time.Now()
	x.Status = ExpenditureRejected
	x.ApprovedBy = approver
	x.ApprovedAt = &now
	return nil
}
