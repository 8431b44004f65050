package domain

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// ActionType 审计动作类型
type ActionType string

const (
	ActionCreate  ActionType = "CREATE"
	ActionUpdate  ActionType = "UPDATE"
	ActionDelete  ActionType = "DELETE"
	ActionApprove ActionType = "APPROVE"
	ActionReject  ActionType = "REJECT"
	ActionVoid    ActionType = "VOID"
	ActionRestore ActionType = "RESTORE"
)

// Entry 审计日志条目聚合根。只追加，禁止更新或删除。
type Entry struct {
	gorm.Model
	EntryNo    string     `gorm:"column:entry_no;type:varchar(64);uniqueIndex;not null" json:"entry_no"`
	Action     ActionType `gorm:"column:action;type:varchar(16);index;not null" json:"action"`
	EntityType string     `gorm:"column:entity_type;type:varchar(64);index:idx_entity;not null" json:"entity_type"`
	EntityID   string     `gorm:"column:entity_id;type:varchar(64);index:idx_entity;not null" json:"entity_id"`
	DisasterID string     `gorm:"column:disaster_id;type:varchar(64);index" json:"disaster_id,omitempty"`
	ActorID    string     `gorm:"column:actor_id;type:varchar(64);index;not null" json:"actor_id"`
	ActorName  string     `gorm:"column:actor_name;type:varchar(128)" json:"actor_name"`
	ActorRole  string     `gorm:"column:actor_role;type:varchar(32)" json:"actor_role"`
	Summary    string     `gorm:"column:summary;type:varchar(512)" json:"summary"`
	Changes    string     `gorm:"column:changes;type:json" json:"changes"`
	OccurredAt time.Time  `gorm:"column:occurred_at;index;not null" json:"occurred_at"`
}

// TableName 指定表名
func (Entry) TableName() string {
	return "audit_entries"
}

// FieldChange 单字段变更快照
type FieldChange struct {
	Field string `json:"field"`
	From  any    `json:"from"`
	To    any    `json:"to"`
}

// TrackChanges 对比新旧快照生成字段级变更集，序列化为 JSON 存入条目。
// 快照为字段名到值的映射；旧快照为 nil 时视为创建，所有字段均为新增。
func TrackChanges(before, after map[string]any) (string, error) {
	var changes []FieldChange
	for field, to := range after {
		from, ok := before[field]
		if ok && equalValue(from, to) {
			continue
		}
		if !ok {
			from = nil
		}
		changes = append(changes, FieldChange{Field: field, From: from, To: to})
	}
	if len(changes) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(changes)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func equalValue(a, b any) bool {
	ra, err := json.Marshal(a)
	if err != nil {
		return false
	}
	rb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(ra) == string(rb)
}

// Trail 审计存储接口。只暴露追加与查询，不提供更新和删除。
type Trail interface {
	Append(ctx context.Context, entry *Entry) error
	FindByEntity(ctx context.Context, entityType, entityID string, offset, limit int) ([]*Entry, int64, error)
	FindByDisaster(ctx context.Context, disasterID string, offset, limit int) ([]*Entry, int64, error)
	FindByActor(ctx context.Context, actorID string, offset, limit int) ([]*Entry, int64, error)
	List(ctx context.Context, action ActionType, entityType string, offset, limit int) ([]*Entry, int64, error)
}
