package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/reliefledger/internal/finance/domain"
	"gorm.io/gorm"
)

// BudgetRepository 预算仓储的 MySQL 实现
type BudgetRepository struct {
	db *gorm.DB
}

// NewBudgetRepository 创建预算仓储
func NewBudgetRepository(db *gorm.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

var _ domain.BudgetRepository = (*BudgetRepository)(nil)

func (r *BudgetRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// Create 持久化预算
func (r *BudgetRepository) Create(ctx context.Context, budget *domain.BudgetAllocation) error {
	return r.getDB(ctx).WithContext(ctx).Create(budget).Error
}

// Update 更新预算
func (r *BudgetRepository) Update(ctx context.Context, budget *domain.BudgetAllocation) error {
	return r.getDB(ctx).WithContext(ctx).Save(budget).Error
}

// FindByNo 按编号查询预算
func (r *BudgetRepository) FindByNo(ctx context.Context, budgetNo string) (*domain.BudgetAllocation, error) {
	var budget domain.BudgetAllocation
	err := r.getDB(ctx).WithContext(ctx).
		Where("budget_no = ?", budgetNo).
		First(&budget).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBudgetNotFound
		}
		return nil, err
	}
	return &budget, nil
}

// FindActive 查询 (灾害, 科目) 当前生效的预算
func (r *BudgetRepository) FindActive(ctx context.Context, disasterID, category string) (*domain.BudgetAllocation, error) {
	var budget domain.BudgetAllocation
	err := r.getDB(ctx).WithContext(ctx).
		Where("disaster_id = ? AND category = ? AND approval_status = ? AND is_voided = false",
			disasterID, category, domain.StatusApproved).
		First(&budget).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBudgetNotFound
		}
		return nil, err
	}
	return &budget, nil
}

// List 分页查询预算
func (r *BudgetRepository) List(ctx context.Context, disasterID string, status domain.ApprovalStatus, offset, limit int) ([]*domain.BudgetAllocation, int64, error) {
	query := r.getDB(ctx).WithContext(ctx).Model(&domain.BudgetAllocation{})
	if disasterID != "" {
		query = query.Where("disaster_id = ?", disasterID)
	}
	if status != "" {
		query = query.Where("approval_status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var budgets []*domain.BudgetAllocation
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&budgets).Error; err != nil {
		return nil, 0, err
	}
	return budgets, total, nil
}
