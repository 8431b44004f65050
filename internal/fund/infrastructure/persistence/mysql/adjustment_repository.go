package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/reliefledger/internal/fund/domain"
	"gorm.io/gorm"
)

// AdjustmentRepository 调拨申请仓库的 GORM 实现
type AdjustmentRepository struct {
	db *gorm.DB
}

// NewAdjustmentRepository 创建调拨申请仓库
func NewAdjustmentRepository(db *gorm.DB) *AdjustmentRepository {
	return &AdjustmentRepository{db: db}
}

func (r *AdjustmentRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// Create 持久化调拨申请及其初始日志
func (r *AdjustmentRepository) Create(ctx context.Context, request *domain.BudgetAdjustmentRequest) error {
	return r.getDB(ctx).WithContext(ctx).Create(request).Error
}

// Update 保存调拨申请变更，级联写入新增的表决与日志
func (r *AdjustmentRepository) Update(ctx context.Context, request *domain.BudgetAdjustmentRequest) error {
	return r.getDB(ctx).WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Save(request).Error
}

// FindByNo 按编号查询调拨申请，带表决与日志
func (r *AdjustmentRepository) FindByNo(ctx context.Context, adjustmentNo string) (*domain.BudgetAdjustmentRequest, error) {
	var request domain.BudgetAdjustmentRequest
	err := r.getDB(ctx).WithContext(ctx).
		Preload("Votes").
		Preload("Logs").
		Where("adjustment_no = ?", adjustmentNo).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAdjustmentNotFound
		}
		return nil, err
	}
	return &request, nil
}

// List 分页查询调拨申请
func (r *AdjustmentRepository) List(ctx context.Context, offset, limit int) ([]*domain.BudgetAdjustmentRequest, int64, error) {
	query := r.getDB(ctx).WithContext(ctx).Model(&domain.BudgetAdjustmentRequest{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []*domain.BudgetAdjustmentRequest
	err := query.Preload("Votes").Preload("Logs").
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

var _ domain.AdjustmentRepository = (*AdjustmentRepository)(nil)
