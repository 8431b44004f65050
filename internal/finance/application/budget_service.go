package application

import (
	"context"
	"errors"
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

const entityBudget = "BudgetAllocation"

// BudgetService 预算台账应用服务
type BudgetService struct {
	budgets domain.BudgetRepository
	audit   auditapp.Recorder
	db      *gorm.DB
}

// NewBudgetService 创建预算台账应用服务
func NewBudgetService(budgets domain.BudgetRepository, audit auditapp.Recorder, db *gorm.DB) *BudgetService {
	return &BudgetService{budgets: budgets, audit: audit, db: db}
}

// CreateBudgetCommand 创建预算命令
type CreateBudgetCommand struct {
	DisasterID  string          `json:"disaster_id" binding:"required"`
	Category    string          `json:"category" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	FiscalYear  string          `json:"fiscal_year" binding:"required"`
	Description string          `json:"description"`
}

// CreateBudget 创建预算分配。
// 同科目已有生效预算时拒绝创建，调用方必须先作废旧预算。
func (s *BudgetService) CreateBudget(ctx context.Context, cmd *CreateBudgetCommand) (*domain.BudgetAllocation, error) {
	budget := &domain.BudgetAllocation{
		BudgetNo:        fmt.Sprintf("BUD%d", idgen.GenID()),
		DisasterID:      cmd.DisasterID,
		Category:        cmd.Category,
		AllocatedAmount: cmd.Amount,
		FiscalYear:      cmd.FiscalYear,
		Description:     cmd.Description,
		ApprovalStatus:  domain.StatusPending,
	}
	if a, ok := actor.FromContext(ctx); ok {
		budget.CreatedBy = a.Name
	}
	if err := budget.Validate(); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		_, err := s.budgets.FindActive(txCtx, cmd.DisasterID, cmd.Category)
		if err == nil {
			return domain.ErrBudgetExists
		}
		if !errors.Is(err, domain.ErrBudgetNotFound) {
			return err
		}

		if err := s.budgets.Create(txCtx, budget); err != nil {
			return err
		}
		return s.audit.RecordCommand(txCtx, auditdomain.ActionCreate, entityBudget, budget.BudgetNo,
			fmt.Sprintf("budget of %s allocated for %s", cmd.Amount.String(), cmd.Category),
			nil, map[string]any{
				"disaster_id": cmd.DisasterID,
				"category":    cmd.Category,
				"amount":      cmd.Amount.String(),
				"fiscal_year": cmd.FiscalYear,
			})
	})
	if err != nil {
		return nil, err
	}

	logging.Info(ctx, "budget allocation created",
		"budget_no", budget.BudgetNo, "category", budget.Category, "amount", budget.AllocatedAmount.String())
	return budget, nil
}

// ApproveBudget 批准预算。批准后金额冻结，只允许作废。
func (s *BudgetService) ApproveBudget(ctx context.Context, budgetNo string) (*domain.BudgetAllocation, error) {
	var budget *domain.BudgetAllocation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		var err error
		budget, err = s.budgets.FindByNo(txCtx, budgetNo)
		if err != nil {
			return err
		}
		before := map[string]any{
			"approval_status": string(budget.ApprovalStatus),
			"approved_by":     budget.ApprovedBy,
		}

		approver := ""
		if a, ok := actor.FromContext(txCtx); ok {
			approver = a.Name
		}
		if err := budget.Approve(approver); err != nil {
			return err
		}

		// 并发创建下可能出现第二条待批准预算，批准时再查一次生效预算
		if existing, err := s.budgets.FindActive(txCtx, budget.DisasterID, budget.Category); err == nil && existing.BudgetNo != budget.BudgetNo {
			return domain.ErrBudgetExists
		} else if err != nil && !errors.Is(err, domain.ErrBudgetNotFound) {
			return err
		}

		if err := s.budgets.Update(txCtx, budget); err != nil {
			return err
		}
		return s.audit.RecordCommand(txCtx, auditdomain.ActionApprove, entityBudget, budgetNo,
			fmt.Sprintf("budget for %s approved, amount %s", budget.Category, budget.AllocatedAmount.String()),
			before, map[string]any{
				"disaster_id":     budget.DisasterID,
				"approval_status": string(budget.ApprovalStatus),
				"approved_by":     approver,
			})
	})
	if err != nil {
		return nil, err
	}
	return budget, nil
}

// RejectBudget 驳回预算
func (s *BudgetService) RejectBudget(ctx context.Context, budgetNo, reason string) (*domain.BudgetAllocation, error) {
	var budget *domain.BudgetAllocation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		var err error
		budget, err = s.budgets.FindByNo(txCtx, budgetNo)
		if err != nil {
			return err
		}
		before := map[string]any{"approval_status": string(budget.ApprovalStatus)}

		approver := ""
		if a, ok := actor.FromContext(txCtx); ok {
			approver = a.Name
		}
		if err := budget.Reject(approver, reason); err != nil {
			return err
		}
		if err := s.budgets.Update(txCtx, budget); err != nil {
			return err
		}
		return s.audit.RecordCommand(txCtx, auditdomain.ActionReject, entityBudget, budgetNo,
			"budget rejected: "+reason,
			before, map[string]any{"disaster_id": budget.DisasterID, "approval_status": string(budget.ApprovalStatus), "rejection_reason": reason})
	})
	if err != nil {
		return nil, err
	}
	return budget, nil
}

// VoidBudget 作废预算
func (s *BudgetService) VoidBudget(ctx context.Context, budgetNo, reason string) (*domain.BudgetAllocation, error) {
	var budget *domain.BudgetAllocation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		var err error
		budget, err = s.budgets.FindByNo(txCtx, budgetNo)
		if err != nil {
			return err
		}
		before := map[string]any{"is_voided": budget.IsVoided}

		voider := ""
		if a, ok := actor.FromContext(txCtx); ok {
			voider = a.Name
		}
		if err := budget.Void(voider, reason); err != nil {
			return err
		}
		if err := s.budgets.Update(txCtx, budget); err != nil {
			return err
		}
		return s.audit.RecordCommand(txCtx, auditdomain.ActionVoid, entityBudget, budgetNo,
			"budget voided: "+reason,
			before, map[string]any{"disaster_id": budget.DisasterID, "is_voided": true, "void_reason": reason})
	})
	if err != nil {
		return nil, err
	}
	return budget, nil
}

// GetBudget 查询单条预算
func (s *BudgetService) GetBudget(ctx context.Context, budgetNo string) (*domain.BudgetAllocation, error) {
	return s.budgets.FindByNo(ctx, budgetNo)
}

// ListBudgets 分页查询预算
func (s *BudgetService) ListBudgets(ctx context.Context, disasterID string, status domain.ApprovalStatus, page, size int) ([]*domain.BudgetAllocation, int64, error) {
	return s.budgets.List(ctx, disasterID, status, (page-1)*size, size)
}
