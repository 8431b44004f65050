package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/reliefledger/internal/allocation/domain"
	"gorm.io/gorm"
)

// AssessmentRepository 家庭评估仓储的 MySQL 实现
type AssessmentRepository struct {
	db *gorm.DB
}

// NewAssessmentRepository 创建家庭评估仓储
func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

var _ domain.AssessmentRepository = (*AssessmentRepository)(nil)

func (r *AssessmentRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// Create 持久化评估
func (r *AssessmentRepository) Create(ctx context.Context, assessment *domain.Assessment) error {
	return r.getDB(ctx).WithContext(ctx).Create(assessment).Error
}

// Update 更新评估
func (r *AssessmentRepository) Update(ctx context.Context, assessment *domain.Assessment) error {
	return r.getDB(ctx).WithContext(ctx).Save(assessment).Error
}

// FindByNo 按编号查询评估
func (r *AssessmentRepository) FindByNo(ctx context.Context, assessmentNo string) (*domain.Assessment, error) {
	var assessment domain.Assessment
	err := r.getDB(ctx).WithContext(ctx).
		Where("assessment_no = ?", assessmentNo).
		First(&assessment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAssessmentNotFound
		}
		return nil, err
	}
	return &assessment, nil
}

// FindByNos 批量按编号查询评估
func (r *AssessmentRepository) FindByNos(ctx context.Context, assessmentNos []string) ([]*domain.Assessment, error) {
	if len(assessmentNos) == 0 {
		return nil, nil
	}
	var assessments []*domain.Assessment
	err := r.getDB(ctx).WithContext(ctx).
		Where("assessment_no IN ?", assessmentNos).
		Find(&assessments).Error
	return assessments, err
}

// FindByDisaster 按灾害与状态分页查询评估
func (r *AssessmentRepository) FindByDisaster(ctx context.Context, disasterID string, status domain.AssessmentStatus, offset, limit int) ([]*domain.Assessment, int64, error) {
	query := r.getDB(ctx).WithContext(ctx).Model(&domain.Assessment{}).
		Where("disaster_id = ?", disasterID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var assessments []*domain.Assessment
	if err := query.Order("assessment_date DESC").Offset(offset).Limit(limit).Find(&assessments).Error; err != nil {
		return nil, 0, err
	}
	return assessments, total, nil
}
