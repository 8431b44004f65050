package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// FundRepository 事件资金仓储
type FundRepository interface {
	Create(ctx context.Context, fund *IncidentFund) error
	Update(ctx context.Context, fund *IncidentFund) error
	FindByNo(ctx context.Context, fundNo string) (*IncidentFund, error)
	FindByDisaster(ctx context.Context, disasterID string) (*IncidentFund, error)
	List(ctx context.Context, disasterType FundDisasterType, offset, limit int) ([]*IncidentFund, int64, error)
	// Totals 资金总览汇总
	Totals(ctx context.Context) (base, adjusted, committed, spent, remaining decimal.Decimal, err error)
}

// EnvelopeRepository 灾种信封仓储
type EnvelopeRepository interface {
	Create(ctx context.Context, envelope *DisasterBudgetEnvelope) error
	Update(ctx context.Context, envelope *DisasterBudgetEnvelope) error
	FindByType(ctx context.Context, disasterType FundDisasterType) (*DisasterBudgetEnvelope, error)
	FindAll(ctx context.Context) ([]*DisasterBudgetEnvelope, error)
}

// AnnualBudgetRepository 年度预算仓储
type AnnualBudgetRepository interface {
	Save(ctx context.Context, budget *AnnualBudget) error
	FindLatest(ctx context.Context) (*AnnualBudget, error)
}

// ExpenditureRepository 事件支出仓储
type ExpenditureRepository interface {
	Create(ctx context.Context, expenditure *IncidentExpenditure) error
	Update(ctx context.Context, expenditure *IncidentExpenditure) error
	FindByNo(ctx context.Context, expenditureNo string) (*IncidentExpenditure, error)
	FindByFund(ctx context.Context, fundNo string) ([]*IncidentExpenditure, error)
	// SumApprovedByCategory 某资金某科目已批准支出合计
	SumApprovedByCategory(ctx context.Context, fundNo string, category ExpenditureCategory) (decimal.Decimal, error)
}

// AdjustmentRepository 调拨申请仓储
type AdjustmentRepository interface {
	Create(ctx context.Context, request *BudgetAdjustmentRequest) error
	Update(ctx context.Context, request *BudgetAdjustmentRequest) error
	FindByNo(ctx context.Context, adjustmentNo string) (*BudgetAdjustmentRequest, error)
	List(ctx context.Context, offset, limit int) ([]*BudgetAdjustmentRequest, int64, error)
}

// ProfileRepository 成本档案仓储
type ProfileRepository interface {
	FindCostProfile(ctx context.Context, disasterType FundDisasterType) (*DisasterCostProfile, error)
	FindNeedProfile(ctx context.Context, disasterType FundDisasterType) (*NeedCostProfile, error)
	FindHousingProfile(ctx context.Context) (*HousingCostProfile, error)
	FindImpact(ctx context.Context, disasterID string) (*IncidentImpact, error)
	SaveImpact(ctx context.Context, impact *IncidentImpact) error
}
