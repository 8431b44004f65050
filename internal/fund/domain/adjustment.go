package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrAdjustmentNotFound   = errors.New("adjustment request not found")
	ErrAdjustmentDecided    = errors.New("adjustment request already decided")
	ErrAdjustmentBadRequest = errors.New("invalid adjustment request")
	ErrVoterUnknown         = errors.New("voter identity not present in context")
)

// AdjustmentStatus 调拨申请状态
type AdjustmentStatus string

const (
	AdjustmentPending  AdjustmentStatus = "pending"
	AdjustmentApproved AdjustmentStatus = "approved"
	AdjustmentRejected AdjustmentStatus = "rejected"
)

// 调拨生效需要的两种角色投票
var requiredApprovalRoles = []string{"Finance Officer", "Administrator"}

// RequiredApprovalRoles 返回调拨所需角色清单
func RequiredApprovalRoles() []string {
	out := make([]string, len(requiredApprovalRoles))
	copy(out, requiredApprovalRoles)
	return out
}

// AdjustmentVote 某一角色的表决
type AdjustmentVote struct {
	gorm.Model
	AdjustmentNo string    `gorm:"column:adjustment_no;type:varchar(64);index;not null" json:"adjustment_no"`
	Role         string    `gorm:"column:role;type:varchar(32);not null" json:"role"`
	Name         string    `gorm:"column:name;type:varchar(128)" json:"name"`
	Decision     string    `gorm:"column:decision;type:varchar(16);not null" json:"decision"`
	VotedAt      time.Time `gorm:"column:voted_at;not null" json:"voted_at"`
}

// TableName 表名
func (AdjustmentVote) TableName() string {
	return "adjustment_votes"
}

// AdjustmentLog 调拨动作日志
type AdjustmentLog struct {
	gorm.Model
	AdjustmentNo string    `gorm:"column:adjustment_no;type:varchar(64);index;not null" json:"adjustment_no"`
	Action       string    `gorm:"column:action;type:varchar(32);not null" json:"action"`
	Actor        string    `gorm:"column:actor;type:varchar(128)" json:"actor"`
	Notes        string    `gorm:"column:notes;type:varchar(512)" json:"notes"`
	LoggedAt     time.Time `gorm:"column:logged_at;not null" json:"logged_at"`
}

// TableName 表名
func (AdjustmentLog) TableName() string {
	return "adjustment_logs"
}

// BudgetAdjustmentRequest 信封间调拨申请聚合根。
// 同一角色重复投票是幂等空操作；凑齐两种必需角色的批准票后转账执行一次。
type BudgetAdjustmentRequest struct {
	gorm.Model
	AdjustmentNo string           `gorm:"column:adjustment_no;type:varchar(64);uniqueIndex;not null" json:"adjustment_no"`
	FromType     FundDisasterType `gorm:"column:from_type;type:varchar(32);not null" json:"from_type"`
	ToType       FundDisasterType `gorm:"column:to_type;type:varchar(32);not null" json:"to_type"`
	Amount       decimal.Decimal  `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	Reason       string           `gorm:"column:reason;type:varchar(512);not null" json:"reason"`
	Status       AdjustmentStatus `gorm:"column:status;type:varchar(16);index;default:'pending'" json:"status"`
	RequestedBy  string           `gorm:"column:requested_by;type:varchar(128);not null" json:"requested_by"`

	Votes []AdjustmentVote `gorm:"foreignKey:AdjustmentNo;references:AdjustmentNo" json:"votes"`
	Logs  []AdjustmentLog  `gorm:"foreignKey:AdjustmentNo;references:AdjustmentNo" json:"logs"`
}

// TableName 表名
func (BudgetAdjustmentRequest) TableName() string {
	return "budget_adjustment_requests"
}

// Validate 创建前校验
func (r *BudgetAdjustmentRequest) Validate() error {
	if r.FromType == "" || r.ToType == "" || r.FromType == r.ToType || r.Reason == "" {
		return ErrAdjustmentBadRequest
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrAdjustmentBadRequest
	}
	return nil
}

// HasVoteFromRole 该角色是否已投过票
func (r *BudgetAdjustmentRequest) HasVoteFromRole(role string) bool {
	for _, vote := range r.Votes {
		if vote.Role == role {
			return true
		}
	}
	return false
}

// AddApproval 追加一票批准。重复角色是空操作，返回 false。
// 当两种必需角色都投出批准票时状态翻转为 approved 并返回 true，
// 由调用方在同一事务内执行转账。
func (r *BudgetAdjustmentRequest) AddApproval(role, name string) (executed bool, err error) {
	if r.Status != AdjustmentPending {
		return false, ErrAdjustmentDecided
	}
	if !r.HasVoteFromRole(role) {
		r.Votes = append(r.Votes, AdjustmentVote{
			AdjustmentNo: r.AdjustmentNo,
			Role:         role,
			Name:         name,
			Decision:     "approved",
			VotedAt:      time.Now(),
		})
	}

	for _, required := range requiredApprovalRoles {
		found := false
		for _, vote := range r.Votes {
			if vote.Role == required && vote.Decision == "approved" {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}

	r.Status = AdjustmentApproved
	r.Logs = append(r.Logs, AdjustmentLog{
		AdjustmentNo: r.AdjustmentNo,
		Action:       "approved",
		Actor:        name,
		Notes:        "Approved",
		LoggedAt:     time.Now(),
	})
	return true, nil
}

// RecordRejection 记录驳回票并终结申请，不执行转账
func (r *BudgetAdjustmentRequest) RecordRejection(role, name string) error {
	if r.Status != AdjustmentPending {
		return ErrAdjustmentDecided
	}
	r.Status = AdjustmentRejected
	r.Votes = append(r.Votes, AdjustmentVote{
		AdjustmentNo: r.AdjustmentNo,
		Role:         role,
		Name:         name,
		Decision:     "rejected",
		VotedAt:      time.Now(),
	})
	r.Logs = append(r.Logs, AdjustmentLog{
		AdjustmentNo: r.AdjustmentNo,
		Action:       "rejected",
		Actor:        name,
		LoggedAt:     time.Now(),
	})
	return nil
}
