package mysql

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/reliefledger/internal/fund/domain"
	"gorm.io/gorm"
)

// FundRepository 事件资金仓库的 GORM 实现
type FundRepository struct {
	db *gorm.DB
}

// NewFundRepository 创建事件资金仓库
func NewFundRepository(db *gorm.DB) *FundRepository {
	return &FundRepository{db: db}
}

func (r *FundRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// Create 持久化新的事件资金
func (r *FundRepository) Create(ctx context.Context, fund *domain.IncidentFund) error {
	return r.getDB(ctx).WithContext(ctx).Create(fund).Error
}

// Update 保存事件资金变更
func (r *FundRepository) Update(ctx context.Context, fund *domain.IncidentFund) error {
	return r.getDB(ctx).WithContext(ctx).Save(fund).Error
}

// FindByNo 按编号查询事件资金
func (r *FundRepository) FindByNo(ctx context.Context, fundNo string) (*domain.IncidentFund, error) {
	var fund domain.IncidentFund
	err := r.getDB(ctx).WithContext(ctx).Where("fund_no = ?", fundNo).First(&fund).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrFundNotFound
		}
		return nil, err
	}
	return &fund, nil
}

// FindByDisaster 按灾害事件查询资金，一个事件至多一笔
func (r *FundRepository) FindByDisaster(ctx context.Context, disasterID string) (*domain.IncidentFund, error) {
	var fund domain.IncidentFund
	err := r.getDB(ctx).WithContext(ctx).Where("disaster_id = ?", disasterID).First(&fund).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrFundNotFound
		}
		return nil, err
	}
	return &fund, nil
}

// List 分页查询事件资金，可按灾种过滤
func (r *FundRepository) List(ctx context.Context, disasterType domain.FundDisasterType, offset, limit int) ([]*domain.IncidentFund, int64, error) {
	query := r.getDB(ctx).WithContext(ctx).Model(&domain.IncidentFund{})
	if disasterType != "" {
		query = query.Where("disaster_type = ?", disasterType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var funds []*domain.IncidentFund
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&funds).Error
	if err != nil {
		return nil, 0, err
	}
	return funds, total, nil
}

type fundTotals struct {
	Base      decimal.NullDecimal `gorm:"column:base"`
	Adjusted  decimal.NullDecimal `gorm:"column:adjusted"`
	Committed decimal.NullDecimal `gorm:"column:committed"`
	Spent     decimal.NullDecimal `gorm:"column:spent"`
	Remaining decimal.NullDecimal `gorm:"column:remaining"`
}

// Totals 汇总全部事件资金的各项总量
func (r *FundRepository) Totals(ctx context.Context) (base, adjusted, committed, spent, remaining decimal.Decimal, err error) {
	var row fundTotals
	err = r.getDB(ctx).WithContext(ctx).Model(&domain.IncidentFund{}).
		Select("SUM(base_budget) AS base, SUM(adjusted_budget) AS adjusted, SUM(committed) AS committed, SUM(spent) AS spent, SUM(remaining) AS remaining").
		Scan(&row).Error
	if err != nil {
		return
	}
	base = nullToZero(row.Base)
	adjusted = nullToZero(row.Adjusted)
	committed = nullToZero(row.Committed)
	spent = nullToZero(row.Spent)
	remaining = nullToZero(row.Remaining)
	return
}

func nullToZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

var _ domain.FundRepository = (*FundRepository)(nil)
