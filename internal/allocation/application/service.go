package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"
	auditapp "github.com/wyfcoding/reliefledger/internal/audit/application"
	auditdomain "github.com/wyfcoding/reliefledger/internal/audit/domain"
	"github.com/wyfcoding/reliefledger/internal/allocation/domain"
	"github.com/wyfcoding/reliefledger/pkg/actor"
	"gorm.io/gorm"
)

// 审计条目的实体类型
const (
	entityAssessment = "HouseholdAssessment"
	entityRequest    = "AllocationRequest"
	entityPlan       = "AllocationPlan"
)

// Service 救助分配应用服务
type Service struct {
	assessments domain.AssessmentRepository
	requests    domain.RequestRepository
	plans       domain.PlanRepository
	audit       auditapp.Recorder
	db          *gorm.DB
}

// NewService 创建救助分配应用服务
func NewService(
	assessments domain.AssessmentRepository,
	requests domain.RequestRepository,
	plans domain.PlanRepository,
	audit auditapp.Recorder,
	db *gorm.DB,
) *Service {
	return &Service{
		assessments: assessments,
		requests:    requests,
		plans:       plans,
		audit:       audit,
		db:          db,
	}
}

// CreateAssessmentCommand 创建家庭评估命令
type CreateAssessmentCommand struct {
	DisasterID          string          `json:"disaster_id" binding:"required"`
	HouseholdID         string          `json:"household_id" binding:"required"`
	HeadName            string          `json:"head_name" binding:"required"`
	HeadAge             int             `json:"head_age" binding:"required"`
	HeadGender          string          `json:"head_gender" binding:"required"`
	HouseholdSize       int             `json:"household_size" binding:"required"`
	ChildrenUnder5      int             `json:"children_under5"`
	MonthlyIncome       decimal.Decimal `json:"monthly_income"`
	DisasterType        string          `json:"disaster_type" binding:"required"`
	DamageDescription   string          `json:"damage_description"`
	RoofDamage          string          `json:"roof_damage"`
	CropLossPercentage  int             `json:"crop_loss_percentage"`
	LivestockLoss       int             `json:"livestock_loss"`
	RoomsAffected       int             `json:"rooms_affected"`
	WaterAccessImpacted bool            `json:"water_access_impacted"`
	Village             string          `json:"village"`
	District            string          `json:"district"`
	Notes               string          `json:"notes"`
}

// CreateAssessment 登记家庭受灾评估
func (s *Service) CreateAssessment(ctx context.Context, cmd *CreateAssessmentCommand) (*domain.Assessment, error) {
	assessment := &domain.Assessment{
		AssessmentNo:        fmt.Sprintf("HA%d", idgen.GenID()),
		DisasterID:          cmd.DisasterID,
		HouseholdID:         cmd.HouseholdID,
		HeadName:            cmd.HeadName,
		HeadAge:             cmd.HeadAge,
		HeadGender:          cmd.HeadGender,
		HouseholdSize:       cmd.HouseholdSize,
		ChildrenUnder5:      cmd.ChildrenUnder5,
		MonthlyIncome:       cmd.MonthlyIncome,
		IncomeCategory:      domain.IncomeCategoryForAmount(cmd.MonthlyIncome),
		DisasterType:        cmd.DisasterType,
		DamageDescription:   cmd.DamageDescription,
		RoofDamage:          cmd.RoofDamage,
		CropLossPercentage:  cmd.CropLossPercentage,
		LivestockLoss:       cmd.LivestockLoss,
		RoomsAffected:       cmd.RoomsAffected,
		WaterAccessImpacted: cmd.WaterAccessImpacted,
		Village:             cmd.Village,
		District:            cmd.District,
		AssessmentDate:      time.Now(),
		Status:              domain.AssessmentPendingReview,
		Notes:               cmd.Notes,
	}
	if assessment.RoofDamage == "" {
		assessment.RoofDamage = "None"
	}
	if a, ok := actor.FromContext(ctx); ok {
		assessment.AssessedBy = a.Name
	}
	if err := assessment.Validate(); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)
		if err := s.assessments.Create(txCtx, assessment); err != nil {
			return err
		}
		return s.audit.RecordCommand(txCtx, auditdomain.ActionCreate, entityAssessment, assessment.AssessmentNo,
			fmt.Sprintf("assessment registered for household %s", assessment.HouseholdID),
			nil, map[string]any{"disaster_id": assessment.DisasterID, "household_id": assessment.HouseholdID, "disaster_type": assessment.DisasterType})
	})
	if err != nil {
		return nil, err
	}

	logging.Info(ctx, "household assessment created",
		"assessment_no", assessment.AssessmentNo, "household_id", assessment.HouseholdID)
	return assessment, nil
}

// CalculateScore 对既有评估运行评分引擎，不产生任何副作用
func (s *Service) CalculateScore(ctx context.Context, assessmentNo string) (*domain.Assessment, domain.ScoringResult, error) {
	assessment, err := s.assessments.FindByNo(ctx, assessmentNo)
	if err != nil {
		return nil, domain.ScoringResult{}, err
	}
	return assessment, domain.Score(assessment), nil
}

// CreateRequestCommand 创建救助申请命令
type CreateRequestCommand struct {
	AssessmentNo          string `json:"assessment_no" binding:"required"`
	OverrideReason        string `json:"override_reason"`
	OverrideJustification string `json:"override_justification"`
}

// CreateRequest 由评估生成带成本的救助申请。
// 申请持久化、评估翻转为 Allocated、审计条目写入同一事务。
func (s *Service) CreateRequest(ctx context.Context, cmd *CreateRequestCommand) (*domain.AllocationRequest, error) {
	var request *domain.AllocationRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		assessment, err := s.assessments.FindByNo(txCtx, cmd.AssessmentNo)
		if err != nil {
			return err
		}

		scoring := domain.Score(assessment)
		quantity := domain.QuantityForScore(scoring.CompositeScore)
		requestNo := fmt.Sprintf("AL%d", idgen.GenID())

		request = &domain.AllocationRequest{
			RequestNo:           requestNo,
			AssessmentNo:        assessment.AssessmentNo,
			DisasterID:          assessment.DisasterID,
			HouseholdID:         assessment.HouseholdID,
			DamageLevel:         scoring.DamageLevel,
			ElderlyHeadScore:    scoring.Vulnerability.ElderlyHead,
			ChildrenUnder5Score: scoring.Vulnerability.ChildrenUnder5,
			FemaleHeadedScore:   scoring.Vulnerability.FemaleHeaded,
			LargeFamilyScore:    scoring.Vulnerability.LargeFamily,
			IncomeScore:         scoring.Vulnerability.Income,
			CompositeScore:      scoring.CompositeScore,
			AidTier:             scoring.AidTier,
			Status:              domain.RequestProposed,
		}
		if a, ok := actor.FromContext(txCtx); ok {
			request.CreatedBy = a.Name
		}

		total := decimal.Zero
		for _, pkg := range domain.RecommendedPackages(scoring.AidTier) {
			lineTotal := pkg.UnitCost.Mul(decimal.NewFromInt(int64(quantity)))
			request.Lines = append(request.Lines, domain.AllocationLine{
				RequestNo:   requestNo,
				PackageID:   pkg.ID,
				PackageName: pkg.Name,
				Category:    pkg.Category,
				Quantity:    quantity,
				UnitCost:    pkg.UnitCost,
				LineTotal:   lineTotal,
			})
			total = total.Add(lineTotal)
		}
		request.TotalEstimatedCost = total

		// 偏离评分建议的申请必须附带书面理由；理由不足时仍记录，但转入待批准
		if cmd.OverrideReason != "" {
			request.IsOverride = true
			request.OverrideReason = cmd.OverrideReason
			request.OverrideJustification = cmd.OverrideJustification
			request.Status = domain.RequestPendingApproval
			if !domain.ValidOverride(cmd.OverrideJustification) {
				logging.Warn(txCtx, "override justification below minimum length, approval required",
					"request_no", requestNo)
			}
		}

		if err := s.requests.Create(txCtx, request); err != nil {
			return err
		}
		if err := assessment.MarkAllocated(); err != nil {
			return err
		}
		if err := s.assessments.Update(txCtx, assessment); err != nil {
			return err
		}
		return s.audit.RecordCommand(txCtx, auditdomain.ActionCreate, entityRequest, requestNo,
			fmt.Sprintf("allocation request created, tier %q, total cost %s", scoring.AidTier, total.String()),
			nil, map[string]any{
				"disaster_id":     assessment.DisasterID,
				"assessment_no":   assessment.AssessmentNo,
				"composite_score": scoring.CompositeScore,
				"aid_tier":        scoring.AidTier,
				"total_cost":      total.String(),
				"is_override":     request.IsOverride,
			})
	})
	if err != nil {
		return nil, err
	}

	logging.Info(ctx, "allocation request created",
		"request_no", request.RequestNo, "composite_score", request.CompositeScore, "aid_tier", request.AidTier)
	return request, nil
}

// ApproveRequest 批准救助申请。已批准的申请再次批准是硬冲突。
func (s *Service) ApproveRequest(ctx context.Context, requestNo, justification string) (*domain.AllocationRequest, error) {
	var request *domain.AllocationRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		var err error
		request, err = s.requests.FindByNo(txCtx, requestNo)
		if err != nil {
			return err
		}
		before := map[string]any{"status": string(request.Status)}

		approver := ""
		if a, ok := actor.FromContext(txCtx); ok {
			approver = a.Name
		}
		if err := request.Approve(approver, justification); err != nil {
			return err
		}
		if err := s.requests.Update(txCtx, request); err != nil {
			return err
		}
		return s.audit.RecordCommand(txCtx, auditdomain.ActionApprove, entityRequest, requestNo,
			fmt.Sprintf("allocation request approved, total cost %s", request.TotalEstimatedCost.String()),
			before, map[string]any{"disaster_id": request.DisasterID, "status": string(request.Status), "approved_by": approver})
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// RejectRequest 驳回救助申请
func (s *Service) RejectRequest(ctx context.Context, requestNo, reason string) (*domain.AllocationRequest, error) {
	var request *domain.AllocationRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		var err error
		request, err = s.requests.FindByNo(txCtx, requestNo)
		if err != nil {
			return err
		}
		before := map[string]any{"status": string(request.Status)}

		approver := ""
		if a, ok := actor.FromContext(txCtx); ok {
			approver = a.Name
		}
		if err := request.Reject(approver, reason); err != nil {
			return err
		}
		if err := s.requests.Update(txCtx, request); err != nil {
			return err
		}
		return s.audit.RecordCommand(txCtx, auditdomain.ActionReject, entityRequest, requestNo,
			"allocation request rejected: "+reason,
			before, map[string]any{"disaster_id": request.DisasterID, "status": string(request.Status), "rejection_reason": reason})
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// DisburseRequest 登记已批准申请的发放
func (s *Service) DisburseRequest(ctx context.Context, requestNo string, amount decimal.Decimal, method, ref string) (*domain.AllocationRequest, error) {
	var request *domain.AllocationRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		var err error
		request, err = s.requests.FindByNo(txCtx, requestNo)
		if err != nil {
			return err
		}
		before := map[string]any{"status": string(request.Status)}

		if err := request.Disburse(amount, method, ref); err != nil {
			return err
		}
		if err := s.requests.Update(txCtx, request); err != nil {
			return err
		}
		return s.audit.RecordCommand(txCtx, auditdomain.ActionUpdate, entityRequest, requestNo,
			fmt.Sprintf("allocation disbursed, amount %s via %s", amount.String(), method),
			before, map[string]any{"disaster_id": request.DisasterID, "status": string(request.Status), "disbursed_amount": amount.String()})
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// VoidRequest 管理员作废救助申请，必须附带理由
func (s *Service) VoidRequest(ctx context.Context, requestNo, reason string) (*domain.AllocationRequest, error) {
	var request *domain.AllocationRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		var err error
		request, err = s.requests.FindByNo(txCtx, requestNo)
		if err != nil {
			return err
		}
		before := map[string]any{"status": string(request.Status)}

		voider := ""
		if a, ok := actor.FromContext(txCtx); ok {
			voider = a.Name
		}
		if err := request.Void(voider, reason); err != nil {
			return err
		}
		if err := s.requests.Update(txCtx, request); err != nil {
			return err
		}
		return s.audit.RecordCommand(txCtx, auditdomain.ActionVoid, entityRequest, requestNo,
			"allocation request voided: "+reason,
			before, map[string]any{"disaster_id": request.DisasterID, "status": string(request.Status), "void_reason": reason})
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// GeneratePlan 汇总某灾害全部已批准申请生成发放计划
func (s *Service) GeneratePlan(ctx context.Context, disasterID, planName string) (*domain.AllocationPlan, error) {
	var plan *domain.AllocationPlan
	err := s.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)

		approved, err := s.requests.FindByDisasterAndStatus(txCtx, disasterID, domain.RequestApproved)
		if err != nil {
			return err
		}
		if len(approved) == 0 {
			return domain.ErrNoApprovedAllocations
		}

		nos := make([]string, 0, len(approved))
		for _, req := range approved {
			nos = append(nos, req.AssessmentNo)
		}
		assessments, err := s.assessments.FindByNos(txCtx, nos)
		if err != nil {
			return err
		}
		households := make(map[string]*domain.Assessment, len(assessments))
		for _, a := range assessments {
			households[a.AssessmentNo] = a
		}

		planNo := fmt.Sprintf("PL%d", idgen.GenID())
		if planName == "" {
			planName = "Allocation Plan - " + time.Now().Format("2006-01-02")
		}
		createdBy := ""
		if a, ok := actor.FromContext(txCtx); ok {
			createdBy = a.Name
		}

		plan, err = domain.BuildPlan(planNo, disasterID, planName, createdBy, approved, households)
		if err != nil {
			return err
		}
		if err := s.plans.Create(txCtx, plan); err != nil {
			return err
		}
		return s.audit.RecordCommand(txCtx, auditdomain.ActionCreate, entityPlan, planNo,
			fmt.Sprintf("allocation plan generated covering %d households, total budget %s",
				plan.HouseholdsCovered, plan.TotalBudgetRequired.String()),
			nil, map[string]any{
				"disaster_id":  disasterID,
				"households":   plan.HouseholdsCovered,
				"total_budget": plan.TotalBudgetRequired.String(),
			})
	})
	if err != nil {
		return nil, err
	}

	logging.Info(ctx, "allocation plan generated",
		"plan_no", plan.PlanNo, "households", plan.HouseholdsCovered, "total_budget", plan.TotalBudgetRequired.String())
	return plan, nil
}

// GetAssessment 查询单个评估
func (s *Service) GetAssessment(ctx context.Context, assessmentNo string) (*domain.Assessment, error) {
	return s.assessments.FindByNo(ctx, assessmentNo)
}

// ListAssessments 按灾害分页查询评估
func (s *Service) ListAssessments(ctx context.Context, disasterID string, status domain.AssessmentStatus, page, size int) ([]*domain.Assessment, int64, error) {
	return s.assessments.FindByDisaster(ctx, disasterID, status, (page-1)*size, size)
}

// GetRequest 查询单个救助申请
func (s *Service) GetRequest(ctx context.Context, requestNo string) (*domain.AllocationRequest, error) {
	return s.requests.FindByNo(ctx, requestNo)
}

// ListRequests 分页查询救助申请
func (s *Service) ListRequests(ctx context.Context, disasterID string, status domain.RequestStatus, page, size int) ([]*domain.AllocationRequest, int64, error) {
	return s.requests.List(ctx, disasterID, status, (page-1)*size, size)
}

// GetPlan 查询单个发放计划
func (s *Service) GetPlan(ctx context.Context, planNo string) (*domain.AllocationPlan, error) {
	return s.plans.FindByNo(ctx, planNo)
}

// ListPlans 查询某灾害的发放计划
func (s *Service) ListPlans(ctx context.Context, disasterID string) ([]*domain.AllocationPlan, error) {
	return s.plans.FindByDisaster(ctx, disasterID)
}

// Packages 返回物资包登记表
func (s *Service) Packages() []domain.Package {
	return domain.AllPackages()
}
