package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/reliefledger/internal/allocation/domain"
	"gorm.io/gorm"
)

// PlanRepository 发放计划仓储的 MySQL 实现。计划不可变，不提供更新。
type PlanRepository struct {
	db *gorm.DB
}

// NewPlanRepository 创建发放计划仓储
func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

var _ domain.PlanRepository = (*PlanRepository)(nil)

func (r *PlanRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// Create 持久化发放计划及其明细与采购汇总
func (r *PlanRepository) Create(ctx context.Context, plan *domain.AllocationPlan) error {
	return r.getDB(ctx).WithContext(ctx).Create(plan).Error
}

// FindByNo 按编号查询计划
func (r *PlanRepository) FindByNo(ctx context.Context, planNo string) (*domain.AllocationPlan, error) {
	var plan domain.AllocationPlan
	err := r.getDB(ctx).WithContext(ctx).
		Preload("Items").
		Preload("Procurements").
		Where("plan_no = ?", planNo).
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// FindByDisaster 查询某灾害的全部计划
func (r *PlanRepository) FindByDisaster(ctx context.Context, disasterID string) ([]*domain.AllocationPlan, error) {
	var plans []*domain.AllocationPlan
	err := r.getDB(ctx).WithContext(ctx).
		Preload("Items").
		Preload("Procurements").
		Where("disaster_id = ?", disasterID).
		Order("plan_date DESC").
		Find(&plans).Error
	return plans, err
}
