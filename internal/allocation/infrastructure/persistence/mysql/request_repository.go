package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/reliefledger/internal/allocation/domain"
	"gorm.io/gorm"
)

// RequestRepository 救助申请仓储的 MySQL 实现
type RequestRepository struct {
	db *gorm.DB
}

// NewRequestRepository 创建救助申请仓储
func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

var _ domain.RequestRepository = (*RequestRepository)(nil)

func (r *RequestRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// Create 持久化救助申请及其分配行
func (r *RequestRepository) Create(ctx context.Context, request *domain.AllocationRequest) error {
	return r.getDB(ctx).WithContext(ctx).Create(request).Error
}

// Update 更新救助申请
func (r *RequestRepository) Update(ctx context.Context, request *domain.AllocationRequest) error {
	return r.getDB(ctx).WithContext(ctx).Omit("Lines").Save(request).Error
}

// FindByNo 按编号查询申请，带分配行
func (r *RequestRepository) FindByNo(ctx context.Context, requestNo string) (*domain.AllocationRequest, error) {
	var request domain.AllocationRequest
	err := r.getDB(ctx).WithContext(ctx).
		Preload("Lines").
		Where("request_no = ?", requestNo).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}

// FindByDisasterAndStatus 查询某灾害某状态下的全部申请，带分配行
func (r *RequestRepository) FindByDisasterAndStatus(ctx context.Context, disasterID string, status domain.RequestStatus) ([]*domain.AllocationRequest, error) {
	var requests []*domain.AllocationRequest
	err := r.getDB(ctx).WithContext(ctx).
		Preload("Lines").
		Where("disaster_id = ? AND status = ?", disasterID, status).
		Find(&requests).Error
	return requests, err
}

// List 分页查询申请
func (r *RequestRepository) List(ctx context.Context, disasterID string, status domain.RequestStatus, offset, limit int) ([]*domain.AllocationRequest, int64, error) {
	query := r.getDB(ctx).WithContext(ctx).Model(&domain.AllocationRequest{})
	if disasterID != "" {
		query = query.Where("disaster_id = ?", disasterID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []*domain.AllocationRequest
	if err := query.Preload("Lines").Order("created_at DESC").Offset(offset).Limit(limit).Find(&requests).Error; err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}
