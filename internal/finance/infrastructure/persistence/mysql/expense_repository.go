package mysql

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/reliefledger/internal/finance/domain"
	"gorm.io/gorm"
)

// ExpenseRepository 支出仓储的 MySQL 实现
type ExpenseRepository struct {
	db *gorm.DB
}

// NewExpenseRepository 创建支出仓储
func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

var _ domain.ExpenseRepository = (*ExpenseRepository)(nil)

func (r *ExpenseRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// Create 持久化支出
func (r *ExpenseRepository) Create(ctx context.Context, expense *domain.Expense) error {
	return r.getDB(ctx).WithContext(ctx).Create(expense).Error
}

// Update 更新支出
func (r *ExpenseRepository) Update(ctx context.Context, expense *domain.Expense) error {
	return r.getDB(ctx).WithContext(ctx).Save(expense).Error
}

// FindByNo 按编号查询支出
func (r *ExpenseRepository) FindByNo(ctx context.Context, expenseNo string) (*domain.Expense, error) {
	var expense domain.Expense
	err := r.getDB(ctx).WithContext(ctx).
		Where("expense_no = ?", expenseNo).
		First(&expense).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrExpenseNotFound
		}
		return nil, err
	}
	return &expense, nil
}

// ExistsInvoice 未作废的支出中是否已存在 (供应商, 发票号, 灾害)
func (r *ExpenseRepository) ExistsInvoice(ctx context.Context, vendorName, invoiceNumber, disasterID string) (bool, error) {
	var count int64
	err := r.getDB(ctx).WithContext(ctx).Model(&domain.Expense{}).
		Where("vendor_name = ? AND invoice_number = ? AND disaster_id = ? AND is_voided = false",
			vendorName, invoiceNumber, disasterID).
		Count(&count).Error
	return count > 0, err
}

// SumApprovedByCategory 汇总某 (灾害, 科目) 已批准且未作废的支出金额
func (r *ExpenseRepository) SumApprovedByCategory(ctx context.Context, disasterID, category string) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.getDB(ctx).WithContext(ctx).Model(&domain.Expense{}).
		Select("SUM(amount)").
		Where("disaster_id = ? AND category = ? AND status = ? AND is_voided = false",
			disasterID, category, domain.StatusApproved).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// List 分页查询支出
func (r *ExpenseRepository) List(ctx context.Context, disasterID, category string, status domain.ApprovalStatus, offset, limit int) ([]*domain.Expense, int64, error) {
	query := r.getDB(ctx).WithContext(ctx).Model(&domain.Expense{})
	if disasterID != "" {
		query = query.Where("disaster_id = ?", disasterID)
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var expenses []*domain.Expense
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&expenses).Error; err != nil {
		return nil, 0, err
	}
	return expenses, total, nil
}
