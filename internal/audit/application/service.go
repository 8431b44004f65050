package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/reliefledger/internal/audit/domain"
	"github.com/wyfcoding/reliefledger/pkg/actor"
)

// Recorder 供其他上下文在业务事务内写入审计条目的接口
type Recorder interface {
	RecordCommand(ctx context.Context, action domain.ActionType, entityType, entityID, summary string, before, after map[string]any) error
}

// Service 审计应用服务
type Service struct {
	trail domain.Trail
}

// NewService 创建审计应用服务
func NewService(trail domain.Trail) *Service {
	return &Service{trail: trail}
}

// RecordCommand 记录一次业务命令的审计条目。
// 与业务写入共享同一事务上下文，业务回滚时审计一并回滚。
// 快照里带 disaster_id 键时条目自动归入该灾害事件的轨迹。
func (s *Service) RecordCommand(ctx context.Context, action domain.ActionType, entityType, entityID, summary string, before, after map[string]any) error {
	changes, err := domain.TrackChanges(before, after)
	if err != nil {
		return fmt.Errorf("track changes: %w", err)
	}
	entry := &domain.Entry{
		EntryNo:    fmt.Sprintf("AUD%d", idgen.GenID()),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		DisasterID: snapshotDisasterID(after, before),
		Summary:    summary,
		Changes:    changes,
		OccurredAt: time.Now(),
	}
	if a, ok := actor.FromContext(ctx); ok {
		entry.ActorID = a.ID
		entry.ActorName = a.Name
		entry.ActorRole = string(a.Role)
	}
	if err := s.trail.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	logging.Info(ctx, "audit entry recorded",
		"entry_no", entry.EntryNo, "action", action, "entity_type", entityType, "entity_id", entityID)
	return nil
}

func snapshotDisasterID(snapshots ...map[string]any) string {
	for _, snapshot := range snapshots {
		if id, ok := snapshot["disaster_id"].(string); ok && id != "" {
			return id
		}
	}
	return ""
}

// GetDisasterTrail 查询某灾害事件下全部条目的审计轨迹
func (s *Service) GetDisasterTrail(ctx context.Context, disasterID string, page, size int) ([]*domain.Entry, int64, error) {
	return s.trail.FindByDisaster(ctx, disasterID, (page-1)*size, size)
}

// GetEntityTrail 查询某实体的审计轨迹
func (s *Service) GetEntityTrail(ctx context.Context, entityType, entityID string, page, size int) ([]*domain.Entry, int64, error) {
	return s.trail.FindByEntity(ctx, entityType, entityID, (page-1)*size, size)
}

// GetActorTrail 查询某操作者的审计轨迹
func (s *Service) GetActorTrail(ctx context.Context, actorID string, page, size int) ([]*domain.Entry, int64, error) {
	return s.trail.FindByActor(ctx, actorID, (page-1)*size, size)
}

// ListEntries 按动作与实体类型过滤查询审计条目
func (s *Service) ListEntries(ctx context.Context, action domain.ActionType, entityType string, page, size int) ([]*domain.Entry, int64, error) {
	return s.trail.List(ctx, action, entityType, (page-1)*size, size)
}
