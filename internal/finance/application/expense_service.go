package application

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"
	auditapp "github.com/wyfcoding/reliefledger/internal/audit/application"
	auditdomain "github.com/wyfcoding/reliefledger/internal/audit/domain"
	"github.com/wyfcoding/reliefledger/internal/finance/domain"
	"github.com/wyfcoding/reliefledger/pkg/actor"
	"gorm.io/gorm"
)

const entityExpense = "Expense"

// ExpenseService 支出台账应用服务
type ExpenseService struct {
	expenses domain.ExpenseRepository
	budgets  domain.BudgetRepository
	audit    auditapp.Recorder
	db       *gorm.DB
}

// NewExpenseService 创建支出台账应用服务
func NewExpenseService(expenses domain.ExpenseRepository, budgets domain.BudgetRepository, audit auditapp.Recorder, db *gorm.DB) *ExpenseService {
	return &ExpenseService{expenses: expenses, budgets: budgets, audit: audit, db: db}
}

// CreateExpenseCommand 创建支出命令
type CreateExpenseCommand struct {
	DisasterID               string          `json:"disaster_id" binding:"required"`
	Category                 string          `json:"category" binding:"required"`
	VendorName               string          `json:"vendor_name" binding:"required"`
	VendorRegistrationNumber string          `json:"vendor_registration_number" binding:"required"`
	InvoiceNumber            string          `json:"invoice_number" binding:"required"`
	BankReferenceNumber      string          `json:"bank_reference_number"`
	Amount                   decimal.Decimal `json:"amount" binding:"required"`
	SupportingDocumentURL    string          `json:"supporting_document_url"`
	PaymentMethod            string          `json:"payment_method"`
	RecipientName            string          `json:"recipient_name"`
	RecipientBankAccount     string          `json:"recipient_bank_account"`
	Description              string          `json:"description"`
}

// CreateExpense 登记支出。
// 按序执行四道硬前置校验：金额为正、发票不重复、存在生效预算、不超出剩余预算。
func (s *ExpenseService) CreateExpense(ctx context.Context, cmd *CreateExpenseCommand) (*domain.Expense, error) {
	expense := &domain.Expense{
		ExpenseNo:                fmt.Sprintf("EXP%d", idgen.GenID()),
		DisasterID:               cmd.DisasterID,
		Category:                 cmd.Category,
		VendorName:               cmd.VendorName,
		VendorRegistrationNumber: cmd.VendorRegistrationNumber,
		InvoiceNumber:            cmd.InvoiceNumber,
		BankReferenceNumber:      cmd.BankReferenceNumber,
		Amount:                   cmd.Amount,
		SupportingDocumentURL:    cmd.SupportingDocumentURL,
		PaymentMethod:            domain.PaymentBankTransfer,
		RecipientName:            cmd.RecipientName,
		RecipientBankAccount:     cmd.RecipientBankAccount,
		Description:              cmd.Description,
		Status:                   domain.StatusPending,
	}
	if cmd.PaymentMethod != "" {
		expense.PaymentMethod = domain.PaymentMethod(cmd.PaymentMethod)
	}
	if a, ok := actor.FromContext(ctx); ok {
		expense.LoggedBy = a.Name
	}
	if err := expense.Validate(); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		duplicate, err := s.expenses.ExistsInvoice(txCtx, cmd.VendorName, cmd.InvoiceNumber, cmd.DisasterID)
		if err != nil {
			return err
		}
		if duplicate {
			return domain.ErrDuplicateInvoice
		}

		budget, err := s.budgets.FindActive(txCtx, cmd.DisasterID, cmd.Category)
		if err != nil {
			return domain.ErrNoApprovedBudget
		}

		approved, err := s.expenses.SumApprovedByCategory(txCtx, cmd.DisasterID, cmd.Category)
		if err != nil {
			return err
		}
		if cmd.Amount.GreaterThan(budget.AllocatedAmount.Sub(approved)) {
			return domain.ErrBudgetExceeded
		}

		if err := s.expenses.Create(txCtx, expense); err != nil {
			return err
		}
		return s.audit.RecordCommand(txCtx, auditdomain.ActionCreate, entityExpense, expense.ExpenseNo,
			fmt.Sprintf("expense of %s logged against %s, vendor %s invoice %s",
				cmd.Amount.String(), cmd.Category, cmd.VendorName, cmd.InvoiceNumber),
			nil, map[string]any{
				"disaster_id": cmd.DisasterID,
				"category":    cmd.Category,
				"vendor":      cmd.VendorName,
				"invoice":     cmd.InvoiceNumber,
				"amount":      cmd.Amount.String(),
			})
	})
	if err != nil {
		return nil, err
	}

	logging.Info(ctx, "expense logged",
		"expense_no", expense.ExpenseNo, "category", expense.Category, "amount", expense.Amount.String())
	return expense, nil
}

// ApproveExpenseResult 批准支出的结果，带重算后的剩余预算
type ApproveExpenseResult struct {
	Expense         *domain.Expense `json:"expense"`
	RemainingBudget decimal.Decimal `json:"remaining_budget"`
}

// ApproveExpense 批准支出。
// 批准时按最新已批准合计重跑一次超支校验，防止提交后的漂移。
func (s *ExpenseService) ApproveExpense(ctx context.Context, expenseNo string) (*ApproveExpenseResult, error) {
	result := &ApproveExpenseResult{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		expense, err := s.expenses.FindByNo(txCtx, expenseNo)
		if err != nil {
			return err
		}
		before := map[string]any{
			"status":      string(expense.Status),
			"approved_by": expense.ApprovedBy,
		}

		budget, err := s.budgets.FindActive(txCtx, expense.DisasterID, expense.Category)
		if err != nil {
			return domain.ErrNoApprovedBudget
		}
		approved, err := s.expenses.SumApprovedByCategory(txCtx, expense.DisasterID, expense.Category)
		if err != nil {
			return err
		}
		if approved.Add(expense.Amount).GreaterThan(budget.AllocatedAmount) {
			return domain.ErrBudgetExceeded
		}

		approver := ""
		if a, ok := actor.FromContext(txCtx); ok {
			approver = a.Name
		}
		if err := expense.Approve(approver); err != nil {
			return err
		}
		if err := s.expenses.Update(txCtx, expense); err != nil {
			return err
		}

		result.Expense = expense
		result.RemainingBudget = budget.AllocatedAmount.Sub(approved).Sub(expense.Amount)

		return s.audit.RecordCommand(txCtx, auditdomain.ActionApprove, entityExpense, expenseNo,
			fmt.Sprintf("expense of %s approved, remaining budget %s",
				expense.Amount.String(), result.RemainingBudget.String()),
			before, map[string]any{
				"disaster_id": expense.DisasterID,
				"status":      string(expense.Status),
				"approved_by": approver,
			})
	})
	if err != nil {
		return nil, err
	}

	logging.Info(ctx, "expense approved",
		"expense_no", expenseNo, "remaining_budget", result.RemainingBudget.String())
	return result, nil
}

// RejectExpense 驳回支出，仅允许从 Pending 流转
func (s *ExpenseService) RejectExpense(ctx context.Context, expenseNo, reason string) (*domain.Expense, error) {
	var expense *domain.Expense
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		var err error
		expense, err = s.expenses.FindByNo(txCtx, expenseNo)
		if err != nil {
			return err
		}
		before := map[string]any{"status": string(expense.Status)}

		approver := ""
		if a, ok := actor.FromContext(txCtx); ok {
			approver = a.Name
		}
		if err := expense.Reject(approver, reason); err != nil {
			return err
		}
		if err := s.expenses.Update(txCtx, expense); err != nil {
			return err
		}
		return s.audit.RecordCommand(txCtx, auditdomain.ActionReject, entityExpense, expenseNo,
			"expense rejected: "+reason,
			before, map[string]any{"disaster_id": expense.DisasterID, "status": string(expense.Status), "rejection_reason": reason})
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

// VoidExpense 作废支出
func (s *ExpenseService) VoidExpense(ctx context.Context, expenseNo, reason string) (*domain.Expense, error) {
	var expense *domain.Expense
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		var err error
		expense, err = s.expenses.FindByNo(txCtx, expenseNo)
		if err != nil {
			return err
		}
		before := map[string]any{"is_voided": expense.IsVoided, "status": string(expense.Status)}

		voider := ""
		if a, ok := actor.FromContext(txCtx); ok {
			voider = a.Name
		}
		if err := expense.Void(voider, reason); err != nil {
			return err
		}
		if err := s.expenses.Update(txCtx, expense); err != nil {
			return err
		}
		return s.audit.RecordCommand(txCtx, auditdomain.ActionVoid, entityExpense, expenseNo,
			"expense voided: "+reason,
			before, map[string]any{"disaster_id": expense.DisasterID, "is_voided": true, "void_reason": reason})
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

// GetExpense 查询单条支出
func (s *ExpenseService) GetExpense(ctx context.Context, expenseNo string) (*domain.Expense, error) {
	return s.expenses.FindByNo(ctx, expenseNo)
}

// ListExpenses 分页查询支出
func (s *ExpenseService) ListExpenses(ctx context.Context, disasterID, category string, status domain.ApprovalStatus, page, size int) ([]*domain.Expense, int64, error) {
	return s.expenses.List(ctx, disasterID, category, status, (page-1)*size, size)
}

// CategorySummary 某科目的预算执行情况
type CategorySummary struct {
	Category        string          `json:"category"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
	ApprovedSpend   decimal.Decimal `json:"approved_spend"`
	RemainingBudget decimal.Decimal `json:"remaining_budget"`
}

// BudgetUtilization 汇总某灾害各科目的预算执行情况
func (s *ExpenseService) BudgetUtilization(ctx context.Context, disasterID string) ([]CategorySummary, error) {
	budgets, _, err := s.budgets.List(ctx, disasterID, domain.StatusApproved, 0, 200)
	if err != nil {
		return nil, err
	}
	summaries := make([]CategorySummary, 0, len(budgets))
	for _, budget := range budgets {
		if budget.IsVoided {
			continue
		}
		approved, err := s.expenses.SumApprovedByCategory(ctx, disasterID, budget.Category)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, CategorySummary{
			Category:        budget.Category,
			AllocatedAmount: budget.AllocatedAmount,
			ApprovedSpend:   approved,
			RemainingBudget: budget.AllocatedAmount.Sub(approved),
		})
	}
	return summaries, nil
}
