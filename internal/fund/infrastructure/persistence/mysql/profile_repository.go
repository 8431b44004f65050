package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/reliefledger/internal/fund/domain"
	"gorm.io/gorm"
)

// ProfileRepository 成本档案仓库的 GORM 实现
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository 创建成本档案仓库
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// FindCostProfile 按灾种查询基础成本档案
func (r *ProfileRepository) FindCostProfile(ctx context.Context, disasterType domain.FundDisasterType) (*domain.DisasterCostProfile, error) {
	var profile domain.DisasterCostProfile
	err := r.getDB(ctx).WithContext(ctx).Where("disaster_type = ?", disasterType).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// FindNeedProfile 按灾种查询需求成本档案，带需求明细
func (r *ProfileRepository) FindNeedProfile(ctx context.Context, disasterType domain.FundDisasterType) (*domain.NeedCostProfile, error) {
	var profile domain.NeedCostProfile
	err := r.getDB(ctx).WithContext(ctx).
		Preload("Needs").
		Where("disaster_type = ?", disasterType).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// FindHousingProfile 查询住房层级成本档案
func (r *ProfileRepository) FindHousingProfile(ctx context.Context) (*domain.HousingCostProfile, error) {
	var profile domain.HousingCostProfile
	err := r.getDB(ctx).WithContext(ctx).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// FindImpact 按灾害事件查询影响范围快照
func (r *ProfileRepository) FindImpact(ctx context.Context, disasterID string) (*domain.IncidentImpact, error) {
	var impact domain.IncidentImpact
	err := r.getDB(ctx).WithContext(ctx).Where("disaster_id = ?", disasterID).First(&impact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrImpactNotFound
		}
		return nil, err
	}
	return &impact, nil
}

// SaveImpact 新建或更新影响范围快照
func (r *ProfileRepository) SaveImpact(ctx context.Context, impact *domain.IncidentImpact) error {
	db := r.getDB(ctx).WithContext(ctx)
	var existing domain.IncidentImpact
	err := db.Where("disaster_id = ?", impact.DisasterID).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return db.Create(impact).Error
		}
		return err
	}
	impact.ID = existing.ID
	impact.CreatedAt = existing.CreatedAt
	return db.Save(impact).Error
}

var _ domain.ProfileRepository = (*ProfileRepository)(nil)
