package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrExpenseNotFound        = errors.New("expense not found")
	ErrDuplicateInvoice       = errors.New("an expense with this vendor and invoice already exists for this disaster")
	ErrNoApprovedBudget       = errors.New("no approved budget exists for this category")
	ErrBudgetExceeded         = errors.New("amount exceeds remaining budget for this category")
	ErrExpenseAlreadyApproved = errors.New("expense already approved")
	ErrExpenseAlreadyVoided   = errors.New("expense already voided")
	ErrExpenseNotPending      = errors.New("only pending expenses can be rejected")
	ErrDocumentRequired       = errors.New("cannot approve expense without supporting documentation")
)

// PaymentMethod 付款方式
type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "Bank Transfer"
	PaymentCheck        PaymentMethod = "Check"
	PaymentCash         PaymentMethod = "Cash"
	PaymentMobileMoney  PaymentMethod = "Mobile Money"
	PaymentOther        PaymentMethod = "Other"
)

// Expense 支出聚合根。
// (供应商, 发票号, 灾害) 在未作废的支出中唯一；批准前必须附凭证；
// 支出记录永不删除，只允许作废。
type Expense struct {
	gorm.Model
	ExpenseNo                string          `gorm:"column:expense_no;type:varchar(64);uniqueIndex;not null" json:"expense_no"`
	DisasterID               string          `gorm:"column:disaster_id;type:varchar(64);index:idx_expense_invoice;not null" json:"disaster_id"`
	Category                 string          `gorm:"column:category;type:varchar(32);index;not null" json:"category"`
	VendorName               string          `gorm:"column:vendor_name;type:varchar(128);index:idx_expense_invoice;not null" json:"vendor_name"`
	VendorRegistrationNumber string          `gorm:"column:vendor_registration_number;type:varchar(64);not null" json:"vendor_registration_number"`
	InvoiceNumber            string          `gorm:"column:invoice_number;type:varchar(64);index:idx_expense_invoice;not null" json:"invoice_number"`
	BankReferenceNumber      string          `gorm:"column:bank_reference_number;type:varchar(64)" json:"bank_reference_number"`
	Amount                   decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	SupportingDocumentURL    string          `gorm:"column:supporting_document_url;type:varchar(512)" json:"supporting_document_url"`
	PaymentMethod            PaymentMethod   `gorm:"column:payment_method;type:varchar(32);default:'Bank Transfer'" json:"payment_method"`
	RecipientName            string          `gorm:"column:recipient_name;type:varchar(128)" json:"recipient_name"`
	RecipientBankAccount     string          `gorm:"column:recipient_bank_account;type:varchar(64)" json:"recipient_bank_account"`
	Description              string          `gorm:"column:description;type:varchar(500)" json:"description"`
	Status                   ApprovalStatus  `gorm:"column:status;type:varchar(16);index;default:'Pending'" json:"status"`
	LoggedBy                 string          `gorm:"column:logged_by;type:varchar(128);not null" json:"logged_by"`
	ApprovedBy               string          `gorm:"column:approved_by;type:varchar(128)" json:"approved_by"`
	ApprovalDate             *time.Time      `gorm:"column:approval_date" json:"approval_date"`
	RejectionReason          string          `gorm:"column:rejection_reason;type:varchar(512)" json:"rejection_reason"`
	IsVoided                 bool            `gorm:"column:is_voided;default:false" json:"is_voided"`
	VoidReason               string          `gorm:"column:void_reason;type:varchar(512)" json:"void_reason"`
	VoidedBy                 string          `gorm:"column:voided_by;type:varchar(128)" json:"voided_by"`
	VoidedAt                 *time.Time      `gorm:"column:voided_at" json:"voided_at"`
}

// TableName 表名
func (Expense) TableName() string {
	return "expenses"
}

// Validate 创建前校验
func (e *Expense) Validate() error {
	if e.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if !ValidCategory(e.Category) {
		return ErrInvalidCategory
	}
	return nil
}

// Approve 批准支出。凭证缺失与重复批准都是硬错误；
// 超支校验由应用层按最新已批准合计重新执行。
func (e *Expense) Approve(approver string) error {
	if e.Status == StatusApproved {
		return ErrExpenseAlreadyApproved
	}
	if e.IsVoided {
		return ErrExpenseAlreadyVoided
	}
	if e.SupportingDocumentURL == "" {
		return ErrDocumentRequired
	}
	now := time.Now()
	e.Status = StatusApproved
	e.ApprovedBy = approver
	e.ApprovalDate = &now
	return nil
}

// Reject 驳回支出，仅允许从 Pending 流转
func (e *Expense) Reject(approver, reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}
	if e.IsVoided {
		return ErrExpenseAlreadyVoided
	}
	if e.Status != StatusPending {
		return ErrExpenseNotPending
	}
	now := time.Now()
	e.Status = StatusRejected
	e.ApprovedBy = approver
	e.ApprovalDate = &now
	e.RejectionReason = reason
	return nil
}

// Void 作废支出，允许从任何未作废状态流转
func (e *Expense) Void(voider, reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}
	if e.IsVoided {
		return ErrExpenseAlreadyVoided
	}
	now := time.Now()
	e.IsVoided = true
	e.VoidReason = reason
	e.VoidedBy = voider
	e.VoidedAt = &now
	return nil
}
