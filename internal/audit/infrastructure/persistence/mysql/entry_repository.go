package mysql

import (
	"context"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/reliefledger/internal/audit/domain"
	"gorm.io/gorm"
)

// EntryRepository 审计条目仓储的 MySQL 实现。
// 只实现追加与查询，保证审计表的只追加语义不被绕过。
type EntryRepository struct {
	db *gorm.DB
}

// NewEntryRepository 创建审计条目仓储
func NewEntryRepository(db *gorm.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

var _ domain.Trail = (*EntryRepository)(nil)

func (r *EntryRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// Append 追加审计条目
func (r *EntryRepository) Append(ctx context.Context, entry *domain.Entry) error {
	return r.getDB(ctx).WithContext(ctx).Create(entry).Error
}

// FindByEntity 按实体查询审计轨迹
func (r *EntryRepository) FindByEntity(ctx context.Context, entityType, entityID string, offset, limit int) ([]*domain.Entry, int64, error) {
	query := r.getDB(ctx).WithContext(ctx).Model(&domain.Entry{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*domain.Entry
	if err := query.Order("occurred_at DESC").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// FindByDisaster 按灾害事件查询审计轨迹
func (r *EntryRepository) FindByDisaster(ctx context.Context, disasterID string, offset, limit int) ([]*domain.Entry, int64, error) {
	query := r.getDB(ctx).WithContext(ctx).Model(&domain.Entry{}).
		Where("disaster_id = ?", disasterID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*domain.Entry
	if err := query.Order("occurred_at DESC").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// FindByActor 按操作者查询审计轨迹
func (r *EntryRepository) FindByActor(ctx context.Context, actorID string, offset, limit int) ([]*domain.Entry, int64, error) {
	query := r.getDB(ctx).WithContext(ctx).Model(&domain.Entry{}).
		Where("actor_id = ?", actorID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*domain.Entry
	if err := query.Order("occurred_at DESC").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// List 按条件分页查询审计条目
func (r *EntryRepository) List(ctx context.Context, action domain.ActionType, entityType string, offset, limit int) ([]*domain.Entry, int64, error) {
	query := r.getDB(ctx).WithContext(ctx).Model(&domain.Entry{})
	if action != "" {
		query = query.Where("action = ?", action)
	}
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*domain.Entry
	if err := query.Order("occurred_at DESC").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
