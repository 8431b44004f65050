package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// BudgetRepository 预算仓储。不提供删除，作废是唯一的撤回方式。
type BudgetRepository interface {
	Create(ctx context.Context, budget *BudgetAllocation) error
	Update(ctx context.Context, budget *BudgetAllocation) error
	FindByNo(ctx context.Context, budgetNo string) (*BudgetAllocation, error)
	// FindActive 查询 (灾害, 科目) 当前生效的预算；不存在时返回 ErrBudgetNotFound
	FindActive(ctx context.Context, disasterID, category string) (*BudgetAllocation, error)
	List(ctx context.Context, disasterID string, status ApprovalStatus, offset, limit int) ([]*BudgetAllocation, int64, error)
}

// ExpenseRepository 支出仓储。不提供删除。
type ExpenseRepository interface {
	Create(ctx context.Context, expense *Expense) error
	Update(ctx context.Context, expense *Expense) error
	FindByNo(ctx context.Context, expenseNo string) (*Expense, error)
	// ExistsInvoice 未作废的支出中是否已存在 (供应商, 发票号, 灾害)
	ExistsInvoice(ctx context.Context, vendorName, invoiceNumber, disasterID string) (bool, error)
	// SumApprovedByCategory 汇总某 (灾害, 科目) 已批准且未作废的支出金额
	SumApprovedByCategory(ctx context.Context, disasterID, category string) (decimal.Decimal, error)
	List(ctx context.Context, disasterID, category string, status ApprovalStatus, offset, limit int) ([]*Expense, int64, error)
}
