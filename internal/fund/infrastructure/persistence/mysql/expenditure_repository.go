package mysql

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/reliefledger/internal/fund/domain"
	"gorm.io/gorm"
)

// ExpenditureRepository 事件支出仓库的 GORM 实现
type ExpenditureRepository struct {
	db *gorm.DB
}

// NewExpenditureRepository 创建事件支出仓库
func NewExpenditureRepository(db *gorm.DB) *ExpenditureRepository {
	return &ExpenditureRepository{db: db}
}

func (r *ExpenditureRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// Create 持久化事件支出
func (r *ExpenditureRepository) Create(ctx context.Context, expenditure *domain.IncidentExpenditure) error {
	return r.getDB(ctx).WithContext(ctx).Create(expenditure).Error
}

// Update 保存事件支出变更
func (r *ExpenditureRepository) Update(ctx context.Context, expenditure *domain.IncidentExpenditure) error {
	return r.getDB(ctx).WithContext(ctx).Save(expenditure).Error
}

// FindByNo 按编号查询事件支出
func (r *ExpenditureRepository) FindByNo(ctx context.Context, expenditureNo string) (*domain.IncidentExpenditure, error) {
	var expenditure domain.IncidentExpenditure
	err := r.getDB(ctx).WithContext(ctx).Where("expenditure_no = ?", expenditureNo).First(&expenditure).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrExpenditureNotFound
		}
		return nil, err
	}
	return &expenditure, nil
}

// FindByFund 查询某资金的全部支出
func (r *ExpenditureRepository) FindByFund(ctx context.Context, fundNo string) ([]*domain.IncidentExpenditure, error) {
	var expenditures []*domain.IncidentExpenditure
	err := r.getDB(ctx).WithContext(ctx).
		Where("fund_no = ?", fundNo).
		Order("created_at DESC").
		Find(&expenditures).Error
	if err != nil {
		return nil, err
	}
	return expenditures, nil
}

// SumApprovedByCategory 汇总某资金某科目下已批准支出的总额
func (r *ExpenditureRepository) SumApprovedByCategory(ctx context.Context, fundNo string, category domain.ExpenditureCategory) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.getDB(ctx).WithContext(ctx).Model(&domain.IncidentExpenditure{}).
		Select("SUM(amount)").
		Where("fund_no = ? AND category = ? AND status = ?", fundNo, category, domain.ExpenditureApproved).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

var _ domain.ExpenditureRepository = (*ExpenditureRepository)(nil)
