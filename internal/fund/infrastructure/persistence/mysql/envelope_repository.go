package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/reliefledger/internal/fund/domain"
	"gorm.io/gorm"
)

// EnvelopeRepository 灾种预算信封仓库的 GORM 实现
type EnvelopeRepository struct {
	db *gorm.DB
}

// NewEnvelopeRepository 创建信封仓库
func NewEnvelopeRepository(db *gorm.DB) *EnvelopeRepository {
	return &EnvelopeRepository{db: db}
}

func (r *EnvelopeRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// Create 持久化灾种信封
func (r *EnvelopeRepository) Create(ctx context.Context, envelope *domain.DisasterBudgetEnvelope) error {
	return r.getDB(ctx).WithContext(ctx).Create(envelope).Error
}

// Update 保存信封余额变更
func (r *EnvelopeRepository) Update(ctx context.Context, envelope *domain.DisasterBudgetEnvelope) error {
	return r.getDB(ctx).WithContext(ctx).Save(envelope).Error
}

// FindByType 按灾种查询信封
func (r *EnvelopeRepository) FindByType(ctx context.Context, disasterType domain.FundDisasterType) (*domain.DisasterBudgetEnvelope, error) {
	var envelope domain.DisasterBudgetEnvelope
	err := r.getDB(ctx).WithContext(ctx).Where("disaster_type = ?", disasterType).First(&envelope).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrEnvelopeNotFound
		}
		return nil, err
	}
	return &envelope, nil
}

// FindAll 查询全部灾种信封
func (r *EnvelopeRepository) FindAll(ctx context.Context) ([]*domain.DisasterBudgetEnvelope, error) {
	var envelopes []*domain.DisasterBudgetEnvelope
	err := r.getDB(ctx).WithContext(ctx).Order("disaster_type ASC").Find(&envelopes).Error
	if err != nil {
		return nil, err
	}
	return envelopes, nil
}

var _ domain.EnvelopeRepository = (*EnvelopeRepository)(nil)

// AnnualBudgetRepository 年度预算仓库的 GORM 实现
type AnnualBudgetRepository struct {
	db *gorm.DB
}

// NewAnnualBudgetRepository 创建年度预算仓库
func NewAnnualBudgetRepository(db *gorm.DB) *AnnualBudgetRepository {
	return &AnnualBudgetRepository{db: db}
}

func (r *AnnualBudgetRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// Save 按财年新建或更新年度预算
func (r *AnnualBudgetRepository) Save(ctx context.Context, budget *domain.AnnualBudget) error {
	db := r.getDB(ctx).WithContext(ctx)
	var existing domain.AnnualBudget
	err := db.Where("fiscal_year = ?", budget.FiscalYear).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return db.Create(budget).Error
		}
		return err
	}
	existing.TotalAllocated = budget.TotalAllocated
	if err := db.Save(&existing).Error; err != nil {
		return err
	}
	*budget = existing
	return nil
}

// FindLatest 查询最近财年的年度预算
func (r *AnnualBudgetRepository) FindLatest(ctx context.Context) (*domain.AnnualBudget, error) {
	var budget domain.AnnualBudget
	err := r.getDB(ctx).WithContext(ctx).Order("fiscal_year DESC").First(&budget).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNoAnnualBudget
		}
		return nil, err
	}
	return &budget, nil
}

var _ domain.AnnualBudgetRepository = (*AnnualBudgetRepository)(nil)
