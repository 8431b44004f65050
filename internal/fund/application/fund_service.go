package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"
	auditapp "github.com/wyfcoding/reliefledger/internal/audit/application"
	auditdomain "github.com/wyfcoding/reliefledger/internal/audit/domain"
	"github.com/wyfcoding/reliefledger/internal/fund/domain"
	"github.com/wyfcoding/reliefledger/pkg/actor"
	"gorm.io/gorm"
)

// 审计条目的实体类型
const (
	entityFund        = "IncidentFund"
	entityExpenditure = "IncidentExpenditure"
	entityAdjustment  = "BudgetAdjustmentRequest"
	entityEnvelope    = "DisasterBudgetEnvelope"
)

// Service 事件资金应用服务
type Service struct {
	funds        domain.FundRepository
	envelopes    domain.EnvelopeRepository
	annual       domain.AnnualBudgetRepository
	expenditures domain.ExpenditureRepository
	adjustments  domain.AdjustmentRepository
	profiles     domain.ProfileRepository
	audit        auditapp.Recorder
	forecast     domain.ForecastNotifier
	db           *gorm.DB
}

// NewService 创建事件资金应用服务
func NewService(
	funds domain.FundRepository,
	envelopes domain.EnvelopeRepository,
	annual domain.AnnualBudgetRepository,
	expenditures domain.ExpenditureRepository,
	adjustments domain.AdjustmentRepository,
	profiles domain.ProfileRepository,
	audit auditapp.Recorder,
	forecast domain.ForecastNotifier,
	db *gorm.DB,
) *Service {
	return &Service{
		funds:        funds,
		envelopes:    envelopes,
		annual:       annual,
		expenditures: expenditures,
		adjustments:  adjustments,
		profiles:     profiles,
		audit:        audit,
		forecast:     forecast,
		db:           db,
	}
}

// refreshForecast 异步触发预测刷新。失败只记日志，绝不影响主流程。
func (s *Service) refreshForecast(trigger string, disasterType domain.FundDisasterType, fundNo string) {
	go func() {
		ctx := context.Background()
		event := domain.ForecastRefreshEvent{
			Trigger:      trigger,
			DisasterType: string(disasterType),
			FundNo:       fundNo,
		}
		if err := s.forecast.NotifyRefresh(ctx, event); err != nil {
			logging.Warn(ctx, "forecast refresh failed", "trigger", trigger, "error", err)
		}
	}()
}

// EnsureEnvelopes 按最新年度预算为三个灾种补齐信封，已存在的保持不动
func (s *Service) EnsureEnvelopes(ctx context.Context) ([]*domain.DisasterBudgetEnvelope, error) {
	annual, err := s.annual.FindLatest(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoAnnualBudget) {
			return nil, nil
		}
		return nil, err
	}

	var out []*domain.DisasterBudgetEnvelope
	err = s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)
		for disasterType := range domain.DisasterRatios() {
			existing, err := s.envelopes.FindByType(txCtx, disasterType)
			if err == nil {
				out = append(out, existing)
				continue
			}
			if !errors.Is(err, domain.ErrEnvelopeNotFound) {
				return err
			}
			envelope := domain.NewEnvelope(disasterType, annual.TotalAllocated)
			if err := s.envelopes.Create(txCtx, envelope); err != nil {
				return err
			}
			out = append(out, envelope)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetAnnualBudget 设置年度预算
func (s *Service) SetAnnualBudget(ctx context.Context, fiscalYear string, total decimal.Decimal) (*domain.AnnualBudget, error) {
	if total.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidFundAmount
	}
	budget := &domain.AnnualBudget{FiscalYear: fiscalYear, TotalAllocated: total}
	if err := s.annual.Save(ctx, budget); err != nil {
		return nil, err
	}
	logging.Info(ctx, "annual budget saved", "fiscal_year", fiscalYear, "total", total.String())
	return budget, nil
}

// CreateFundCommand 建立事件资金命令
type CreateFundCommand struct {
	DisasterID   string                  `json:"disaster_id" binding:"required"`
	DisasterType domain.FundDisasterType `json:"disaster_type" binding:"required"`
	// 影响范围，用于基础预算推导
	HouseholdsAffected  int `json:"households_affected" binding:"required"`
	IndividualsAffected int `json:"individuals_affected"`
	LivestockAffected   int `json:"livestock_affected"`
	FarmingHouseholds   int `json:"farming_households"`
}

// CreateFund 按成本档案公式建立事件资金并向灾种信封承诺额度。
// 信封余额不足是硬冲突，需先走调拨流程。
func (s *Service) CreateFund(ctx context.Context, cmd *CreateFundCommand) (*domain.IncidentFund, error) {
	var fund *domain.IncidentFund
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		if existing, err := s.funds.FindByDisaster(txCtx, cmd.DisasterID); err == nil && existing != nil {
			return domain.ErrFundExists
		} else if err != nil && !errors.Is(err, domain.ErrFundNotFound) {
			return err
		}

		costProfile, err := s.profiles.FindCostProfile(txCtx, cmd.DisasterType)
		if err != nil {
			return err
		}
		needProfile, err := s.profiles.FindNeedProfile(txCtx, cmd.DisasterType)
		if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
			return err
		}

		impact := &domain.IncidentImpact{
			DisasterID:          cmd.DisasterID,
			DisasterType:        cmd.DisasterType,
			HouseholdsAffected:  cmd.HouseholdsAffected,
			IndividualsAffected: cmd.IndividualsAffected,
			LivestockAffected:   cmd.LivestockAffected,
			FarmingHouseholds:   cmd.FarmingHouseholds,
		}
		if impact.IndividualsAffected == 0 {
			impact.IndividualsAffected = impact.HouseholdsAffected * 5
		}
		if err := s.profiles.SaveImpact(txCtx, impact); err != nil {
			return err
		}

		baseBudget := costProfile.BaseBudget(impact)
		needsCost := decimal.Zero
		if needProfile != nil {
			needsCost = needProfile.NeedsCost(impact)
		}
		housingBase := decimal.NewFromInt(int64(impact.HouseholdsAffected)).Mul(costProfile.CostPerHousehold)

		fund = &domain.IncidentFund{
			FundNo:          fmt.Sprintf("FND%d", idgen.GenID()),
			DisasterID:      cmd.DisasterID,
			DisasterType:    cmd.DisasterType,
			BaseBudget:      baseBudget,
			NeedsCost:       needsCost,
			AdjustmentCost:  decimal.Zero,
			HousingBaseCost: housingBase,
			HouseTier:       domain.HouseTierA,
			Status:          domain.FundOpen,
		}
		fund.Recalculate()

		envelope, err := s.envelopes.FindByType(txCtx, cmd.DisasterType)
		if err != nil && !errors.Is(err, domain.ErrEnvelopeNotFound) {
			return err
		}
		if envelope != nil {
			if err := envelope.Commit(fund.AdjustedBudget); err != nil {
				if auditErr := s.audit.RecordCommand(txCtx, auditdomain.ActionUpdate, entityEnvelope, string(cmd.DisasterType),
					fmt.Sprintf("pool insufficient: required %s, remaining %s",
						fund.AdjustedBudget.String(), envelope.Remaining.String()),
					nil, map[string]any{"required": fund.AdjustedBudget.String(), "remaining": envelope.Remaining.String()}); auditErr != nil {
					return auditErr
				}
				return err
			}
			if err := s.envelopes.Update(txCtx, envelope); err != nil {
				return err
			}
		}

		if err := s.funds.Create(txCtx, fund); err != nil {
			return err
		}
		return s.audit.RecordCommand(txCtx, auditdomain.ActionCreate, entityFund, fund.FundNo,
			fmt.Sprintf("incident fund created, adjusted budget %s", fund.AdjustedBudget.String()),
			nil, map[string]any{
				"disaster_id":     cmd.DisasterID,
				"disaster_type":   string(cmd.DisasterType),
				"base_budget":     fund.BaseBudget.String(),
				"needs_cost":      fund.NeedsCost.String(),
				"adjusted_budget": fund.AdjustedBudget.String(),
			})
	})
	if err != nil {
		return nil, err
	}

	logging.Info(ctx, "incident fund created",
		"fund_no", fund.FundNo, "disaster_id", fund.DisasterID, "adjusted_budget", fund.AdjustedBudget.String())
	s.refreshForecast("fund_created", fund.DisasterType, fund.FundNo)
	return fund, nil
}

// UpdateAdjustmentsCommand 调整住房层级与受损耕地命令
type UpdateAdjustmentsCommand struct {
	HouseTier           domain.HouseTier `json:"house_tier"`
	DamagedLandHectares decimal.Decimal  `json:"damaged_land_hectares"`
}

// UpdateAdjustments 重算资金的住房层级/耕地调整成本
func (s *Service) UpdateAdjustments(ctx context.Context, fundNo string, cmd *UpdateAdjustmentsCommand) (*domain.IncidentFund, error) {
	var fund *domain.IncidentFund
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		var err error
		fund, err = s.funds.FindByNo(txCtx, fundNo)
		if err != nil {
			return err
		}
		before := map[string]any{
			"house_tier":      string(fund.HouseTier),
			"adjustment_cost": fund.AdjustmentCost.String(),
			"adjusted_budget": fund.AdjustedBudget.String(),
		}

		costPerHectare := decimal.Zero
		if needProfile, err := s.profiles.FindNeedProfile(txCtx, fund.DisasterType); err == nil {
			costPerHectare = needProfile.CostPerHectare
		} else if !errors.Is(err, domain.ErrProfileNotFound) {
			return err
		}

		tier := cmd.HouseTier
		if tier == "" {
			tier = fund.HouseTier
		}
		if err := fund.ApplyAdjustments(tier, cmd.DamagedLandHectares, costPerHectare); err != nil {
			return err
		}
		if err := s.funds.Update(txCtx, fund); err != nil {
			return err
		}
		return s.audit.RecordCommand(txCtx, auditdomain.ActionUpdate, entityFund, fundNo,
			fmt.Sprintf("fund adjustments updated, tier %s, adjusted budget %s",
				tier, fund.AdjustedBudget.String()),
			before, map[string]any{
				"disaster_id":     fund.DisasterID,
				"house_tier":      string(fund.HouseTier),
				"adjustment_cost": fund.AdjustmentCost.String(),
				"adjusted_budget": fund.AdjustedBudget.String(),
			})
	})
	if err != nil {
		return nil, err
	}
	return fund, nil
}

// RecordExpenditureCommand 登记事件支出命令
type RecordExpenditureCommand struct {
	Amount           decimal.Decimal            `json:"amount" binding:"required"`
	Category         domain.ExpenditureCategory `json:"category" binding:"required"`
	Description      string                     `json:"description" binding:"required"`
	OverrideApproved bool                       `json:"override_approved"`
	ReceiptURL       string                     `json:"receipt_url"`
}

// RecordExpenditure 登记事件支出。
// 金额为正、不超剩余额度、科目上限校验（可被显式越权绕过）。
func (s *Service) RecordExpenditure(ctx context.Context, fundNo string, cmd *RecordExpenditureCommand) (*domain.IncidentExpenditure, error) {
	var expenditure *domain.IncidentExpenditure
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		fund, err := s.funds.FindByNo(txCtx, fundNo)
		if err != nil {
			return err
		}
		approvedInCategory, err := s.expenditures.SumApprovedByCategory(txCtx, fundNo, cmd.Category)
		if err != nil {
			return err
		}
		if err := fund.CheckExpenditure(cmd.Amount, cmd.Category, approvedInCategory, cmd.OverrideApproved); err != nil {
			return err
		}

		expenditure = &domain.IncidentExpenditure{
			ExpenditureNo:    fmt.Sprintf("XPD%d", idgen.GenID()),
			FundNo:           fundNo,
			Category:         cmd.Category,
			Amount:           cmd.Amount,
			Description:      cmd.Description,
			OverrideApproved: cmd.OverrideApproved,
			ReceiptURL:       cmd.ReceiptURL,
			Status:           domain.ExpenditurePending,
			SpentAt:          time.Now(),
		}
		if a, ok := actor.FromContext(txCtx); ok {
			expenditure.RecordedBy = a.Name
		}

		if err := s.expenditures.Create(txCtx, expenditure); err != nil {
			return err
		}
		return s.audit.RecordCommand(txCtx, auditdomain.ActionCreate, entityExpenditure, expenditure.ExpenditureNo,
			fmt.Sprintf("expenditure of %s recorded in %s", cmd.Amount.String(), cmd.Category),
			nil, map[string]any{
				"disaster_id":       fund.DisasterID,
				"fund_no":           fundNo,
				"category":          string(cmd.Category),
				"amount":            cmd.Amount.String(),
				"override_approved": cmd.OverrideApproved,
			})
	})
	if err != nil {
		return nil, err
	}

	logging.Info(ctx, "incident expenditure recorded",
		"expenditure_no", expenditure.ExpenditureNo, "fund_no", fundNo, "amount", expenditure.Amount.String())
	return expenditure, nil
}

// ApproveExpenditureResult 批准事件支出的结果
type ApproveExpenditureResult struct {
	Expenditure *domain.IncidentExpenditure `json:"expenditure"`
	Fund        *domain.IncidentFund        `json:"fund"`
}

// ApproveExpenditure 批准事件支出。
// 批准时重跑剩余额度校验；通过后支出计入资金与灾种信封，
// 同一事务内恢复两侧不变式。
func (s *Service) ApproveExpenditure(ctx context.Context, expenditureNo string) (*ApproveExpenditureResult, error) {
	result := &ApproveExpenditureResult{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		expenditure, err := s.expenditures.FindByNo(txCtx, expenditureNo)
		if err != nil {
			return err
		}
		before := map[string]any{"status": string(expenditure.Status)}

		fund, err := s.funds.FindByNo(txCtx, expenditure.FundNo)
		if err != nil {
			return err
		}

		approver := ""
		if a, ok := actor.FromContext(txCtx); ok {
			approver = a.Name
		}
		if err := expenditure.Approve(approver); err != nil {
			return err
		}
		if err := fund.RegisterSpend(expenditure.Amount); err != nil {
			return err
		}
		if err := s.expenditures.Update(txCtx, expenditure); err != nil {
			return err
		}
		if err := s.funds.Update(txCtx, fund); err != nil {
			return err
		}

		envelope, err := s.envelopes.FindByType(txCtx, fund.DisasterType)
		if err != nil && !errors.Is(err, domain.ErrEnvelopeNotFound) {
			return err
		}
		if envelope != nil {
			envelope.RegisterSpend(expenditure.Amount)
			if err := s.envelopes.Update(txCtx, envelope); err != nil {
				return err
			}
		}

		result.Expenditure = expenditure
		result.Fund = fund
		return s.audit.RecordCommand(txCtx, auditdomain.ActionApprove, entityExpenditure, expenditureNo,
			fmt.Sprintf("expenditure of %s approved, fund remaining %s",
				expenditure.Amount.String(), fund.Remaining.String()),
			before, map[string]any{
				"disaster_id":    fund.DisasterID,
				"status":         string(expenditure.Status),
				"approved_by":    approver,
				"fund_spent":     fund.Spent.String(),
				"fund_remaining": fund.Remaining.String(),
			})
	})
	if err != nil {
		return nil, err
	}

	logging.Info(ctx, "incident expenditure approved",
		"expenditure_no", expenditureNo, "fund_remaining", result.Fund.Remaining.String())
	s.refreshForecast("expenditure_approved", result.Fund.DisasterType, result.Fund.FundNo)
	return result, nil
}

// RejectExpenditure 驳回事件支出
func (s *Service) RejectExpenditure(ctx context.Context, expenditureNo string) (*domain.IncidentExpenditure, error) {
	var expenditure *domain.IncidentExpenditure
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		var err error
		expenditure, err = s.expenditures.FindByNo(txCtx, expenditureNo)
		if err != nil {
			return err
		}
		before := map[string]any{"status": string(expenditure.Status)}

		approver := ""
		if a, ok := actor.FromContext(txCtx); ok {
			approver = a.Name
		}
		if err := expenditure.Reject(approver); err != nil {
			return err
		}
		if err := s.expenditures.Update(txCtx, expenditure); err != nil {
			return err
		}
		return s.audit.RecordCommand(txCtx, auditdomain.ActionReject, entityExpenditure, expenditureNo,
			"expenditure rejected",
			before, map[string]any{"status": string(expenditure.Status)})
	})
	if err != nil {
		return nil, err
	}
	return expenditure, nil
}

// RequestAdjustmentCommand 发起信封调拨命令
type RequestAdjustmentCommand struct {
	FromType domain.FundDisasterType `json:"from_type" binding:"required"`
	ToType   domain.FundDisasterType `json:"to_type" binding:"required"`
	Amount   decimal.Decimal         `json:"amount" binding:"required"`
	Reason   string                  `json:"reason" binding:"required"`
}

// RequestAdjustment 发起信封间调拨申请
func (s *Service) RequestAdjustment(ctx context.Context, cmd *RequestAdjustmentCommand) (*domain.BudgetAdjustmentRequest, error) {
	request := &domain.BudgetAdjustmentRequest{
		AdjustmentNo: fmt.Sprintf("ADJ%d", idgen.GenID()),
		FromType:     cmd.FromType,
		ToType:       cmd.ToType,
		Amount:       cmd.Amount,
		Reason:       cmd.Reason,
		Status:       domain.AdjustmentPending,
	}
	if a, ok := actor.FromContext(ctx); ok {
		request.RequestedBy = a.Name
	}
	if err := request.Validate(); err != nil {
		return nil, err
	}
	request.Logs = append(request.Logs, domain.AdjustmentLog{
		AdjustmentNo: request.AdjustmentNo,
		Action:       "created",
		Actor:        request.RequestedBy,
		Notes:        cmd.Reason,
		LoggedAt:     time.Now(),
	})

	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)
		if err := s.adjustments.Create(txCtx, request); err != nil {
			return err
		}
		return s.audit.RecordCommand(txCtx, auditdomain.ActionCreate, entityAdjustment, request.AdjustmentNo,
			fmt.Sprintf("reallocation of %s requested from %s to %s",
				cmd.Amount.String(), cmd.FromType, cmd.ToType),
			nil, map[string]any{
				"from_type": string(cmd.FromType),
				"to_type":   string(cmd.ToType),
				"amount":    cmd.Amount.String(),
				"reason":    cmd.Reason,
			})
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// ApproveAdjustment 投一票批准。同一角色重复投票是幂等空操作；
// 凑齐财务专员与管理员两票后转账在同一事务内执行一次。
func (s *Service) ApproveAdjustment(ctx context.Context, adjustmentNo string) (*domain.BudgetAdjustmentRequest, error) {
	var request *domain.BudgetAdjustmentRequest
	var executed bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		var err error
		request, err = s.adjustments.FindByNo(txCtx, adjustmentNo)
		if err != nil {
			return err
		}

		a, ok := actor.FromContext(txCtx)
		if !ok {
			return domain.ErrVoterUnknown
		}
		executed, err = request.AddApproval(string(a.Role), a.Name)
		if err != nil {
			return err
		}

		if executed {
			from, err := s.envelopes.FindByType(txCtx, request.FromType)
			if err != nil {
				return err
			}
			to, err := s.envelopes.FindByType(txCtx, request.ToType)
			if err != nil {
				return err
			}
			from.TransferOut(request.Amount)
			to.TransferIn(request.Amount)
			if err := s.envelopes.Update(txCtx, from); err != nil {
				return err
			}
			if err := s.envelopes.Update(txCtx, to); err != nil {
				return err
			}
			if err := s.audit.RecordCommand(txCtx, auditdomain.ActionApprove, entityAdjustment, adjustmentNo,
				fmt.Sprintf("reallocation of %s executed from %s to %s",
					request.Amount.String(), request.FromType, request.ToType),
				map[string]any{"status": string(domain.AdjustmentPending)},
				map[string]any{
					"status":    string(request.Status),
					"from_type": string(request.FromType),
					"to_type":   string(request.ToType),
					"amount":    request.Amount.String(),
				}); err != nil {
				return err
			}
		}
		return s.adjustments.Update(txCtx, request)
	})
	if err != nil {
		return nil, err
	}

	if executed {
		logging.Info(ctx, "budget reallocation executed",
			"adjustment_no", adjustmentNo, "amount", request.Amount.String())
		s.refreshForecast("adjustment_approved", request.ToType, "")
	}
	return request, nil
}

// RejectAdjustment 驳回调拨申请，记录驳回票但不执行转账
func (s *Service) RejectAdjustment(ctx context.Context, adjustmentNo string) (*domain.BudgetAdjustmentRequest, error) {
	var request *domain.BudgetAdjustmentRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		var err error
		request, err = s.adjustments.FindByNo(txCtx, adjustmentNo)
		if err != nil {
			return err
		}

		a, ok := actor.FromContext(txCtx)
		if !ok {
			return domain.ErrVoterUnknown
		}
		if err := request.RecordRejection(string(a.Role), a.Name); err != nil {
			return err
		}
		if err := s.adjustments.Update(txCtx, request); err != nil {
			return err
		}
		return s.audit.RecordCommand(txCtx, auditdomain.ActionReject, entityAdjustment, adjustmentNo,
			"reallocation rejected",
			map[string]any{"status": string(domain.AdjustmentPending)},
			map[string]any{"status": string(request.Status)})
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// RefreshForecastRisk 按支出占比重算资金的预测风险等级。
// 占比超过 85% 为 High，超过 60% 为 Medium，其余为 Low。
func (s *Service) RefreshForecastRisk(ctx context.Context, fundNo string) error {
	fund, err := s.funds.FindByNo(ctx, fundNo)
	if err != nil {
		return err
	}

	riskLevel := "Low"
	if fund.AdjustedBudget.IsPositive() {
		ratio := fund.Spent.Div(fund.AdjustedBudget)
		switch {
		case ratio.GreaterThan(decimal.NewFromFloat(0.85)):
			riskLevel = "High"
		case ratio.GreaterThan(decimal.NewFromFloat(0.6)):
			riskLevel = "Medium"
		}
	}
	if riskLevel == fund.ForecastRiskLevel {
		return nil
	}
	return s.UpdateRiskLevel(ctx, fundNo, riskLevel)
}

// UpdateRiskLevel 由预测消费端回写资金的风险等级
func (s *Service) UpdateRiskLevel(ctx context.Context, fundNo, riskLevel string) error {
	fund, err := s.funds.FindByNo(ctx, fundNo)
	if err != nil {
		return err
	}
	fund.ForecastRiskLevel = riskLevel
	if err := s.funds.Update(ctx, fund); err != nil {
		return err
	}
	logging.Info(ctx, "fund risk level updated", "fund_no", fundNo, "risk_level", riskLevel)
	return nil
}

// Overview 资金总览
type Overview struct {
	AnnualBudget   *domain.AnnualBudget             `json:"annual_budget"`
	Envelopes      []*domain.DisasterBudgetEnvelope `json:"envelopes"`
	TotalBase      decimal.Decimal                  `json:"total_base"`
	TotalAdjusted  decimal.Decimal                  `json:"total_adjusted"`
	TotalCommitted decimal.Decimal                  `json:"total_committed"`
	TotalSpent     decimal.Decimal                  `json:"total_spent"`
	TotalRemaining decimal.Decimal                  `json:"total_remaining"`
	RiskIndex      decimal.Decimal                  `json:"risk_index"`
}

// GetOverview 汇总年度预算、信封与全部资金的总量，并给出风险指数
func (s *Service) GetOverview(ctx context.Context) (*Overview, error) {
	envelopes, err := s.EnsureEnvelopes(ctx)
	if err != nil {
		return nil, err
	}
	overview := &Overview{Envelopes: envelopes}

	annual, err := s.annual.FindLatest(ctx)
	if err != nil && !errors.Is(err, domain.ErrNoAnnualBudget) {
		return nil, err
	}
	overview.AnnualBudget = annual

	base, adjusted, committed, spent, remaining, err := s.funds.Totals(ctx)
	if err != nil {
		return nil, err
	}
	overview.TotalBase = base
	overview.TotalAdjusted = adjusted
	overview.TotalCommitted = committed
	overview.TotalSpent = spent
	overview.TotalRemaining = remaining

	if annual != nil && annual.TotalAllocated.IsPositive() {
		overview.RiskIndex = adjusted.Div(annual.TotalAllocated)
	}
	return overview, nil
}

// GetFund 查询事件资金及其支出
func (s *Service) GetFund(ctx context.Context, fundNo string) (*domain.IncidentFund, []*domain.IncidentExpenditure, error) {
	fund, err := s.funds.FindByNo(ctx, fundNo)
	if err != nil {
		return nil, nil, err
	}
	expenditures, err := s.expenditures.FindByFund(ctx, fundNo)
	if err != nil {
		return nil, nil, err
	}
	return fund, expenditures, nil
}

// ListFunds 分页查询事件资金
func (s *Service) ListFunds(ctx context.Context, disasterType domain.FundDisasterType, page, size int) ([]*domain.IncidentFund, int64, error) {
	return s.funds.List(ctx, disasterType, (page-1)*size, size)
}

// ListAdjustments 分页查询调拨申请
func (s *Service) ListAdjustments(ctx context.Context, page, size int) ([]*domain.BudgetAdjustmentRequest, int64, error) {
	return s.adjustments.List(ctx, (page-1)*size, size)
}
