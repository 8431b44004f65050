package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	auditdomain "github.com/wyfcoding/reliefledger/internal/audit/domain"
	"github.com/wyfcoding/reliefledger/internal/allocation/domain"
	"github.com/wyfcoding/reliefledger/pkg/actor"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB 构造一个由 sqlmock 托管事务边界的 gorm.DB。
// 仓储全部用假实现，驱动层只会看到 Begin/Commit/Rollback。
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("gorm.Open() error = %v", err)
	}
	mock.MatchExpectationsInOrder(false)
	return db, mock
}

type fakeAssessmentRepo struct {
	byNo    map[string]*domain.Assessment
	created []*domain.Assessment
	updated []*domain.Assessment
}

func newFakeAssessmentRepo() *fakeAssessmentRepo {
	return &fakeAssessmentRepo{byNo: make(map[string]*domain.Assessment)}
}

func (f *fakeAssessmentRepo) Create(ctx context.Context, assessment *domain.Assessment) error {
	f.byNo[assessment.AssessmentNo] = assessment
	f.created = append(f.created, assessment)
	return nil
}

func (f *fakeAssessmentRepo) Update(ctx context.Context, assessment *domain.Assessment) error {
	f.byNo[assessment.AssessmentNo] = assessment
	f.updated = append(f.updated, assessment)
	return nil
}

func (f *fakeAssessmentRepo) FindByNo(ctx context.Context, assessmentNo string) (*domain.Assessment, error) {
	assessment, ok := f.byNo[assessmentNo]
	if !ok {
		return nil, domain.ErrAssessmentNotFound
	}
	return assessment, nil
}

func (f *fakeAssessmentRepo) FindByNos(ctx context.Context, assessmentNos []string) ([]*domain.Assessment, error) {
	var out []*domain.Assessment
	for _, no := range assessmentNos {
		if assessment, ok := f.byNo[no]; ok {
			out = append(out, assessment)
		}
	}
	return out, nil
}

func (f *fakeAssessmentRepo) FindByDisaster(ctx context.Context, disasterID string, status domain.AssessmentStatus, offset, limit int) ([]*domain.Assessment, int64, error) {
	var out []*domain.Assessment
	for _, assessment := range f.byNo {
		if assessment.DisasterID != disasterID {
			continue
		}
		if status != "" && assessment.Status != status {
			continue
		}
		out = append(out, assessment)
	}
	return out, int64(len(out)), nil
}

type fakeRequestRepo struct {
	byNo    map[string]*domain.AllocationRequest
	created []*domain.AllocationRequest
	updated []*domain.AllocationRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{byNo: make(map[string]*domain.AllocationRequest)}
}

func (f *fakeRequestRepo) Create(ctx context.Context, request *domain.AllocationRequest) error {
	f.byNo[request.RequestNo] = request
	f.created = append(f.created, request)
	return nil
}

func (f *fakeRequestRepo) Update(ctx context.Context, request *domain.AllocationRequest) error {
	f.byNo[request.RequestNo] = request
	f.updated = append(f.updated, request)
	return nil
}

func (f *fakeRequestRepo) FindByNo(ctx context.Context, requestNo string) (*domain.AllocationRequest, error) {
	request, ok := f.byNo[requestNo]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	return request, nil
}

func (f *fakeRequestRepo) FindByDisasterAndStatus(ctx context.Context, disasterID string, status domain.RequestStatus) ([]*domain.AllocationRequest, error) {
	var out []*domain.AllocationRequest
	for _, request := range f.byNo {
		if request.DisasterID == disasterID && request.Status == status {
			out = append(out, request)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) List(ctx context.Context, disasterID string, status domain.RequestStatus, offset, limit int) ([]*domain.AllocationRequest, int64, error) {
	var out []*domain.AllocationRequest
	for _, request := range f.byNo {
		if disasterID != "" && request.DisasterID != disasterID {
			continue
		}
		if status != "" && request.Status != status {
			continue
		}
		out = append(out, request)
	}
	return out, int64(len(out)), nil
}

type fakePlanRepo struct {
	byNo    map[string]*domain.AllocationPlan
	created []*domain.AllocationPlan
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{byNo: make(map[string]*domain.AllocationPlan)}
}

func (f *fakePlanRepo) Create(ctx context.Context, plan *domain.AllocationPlan) error {
	f.byNo[plan.PlanNo] = plan
	f.created = append(f.created, plan)
	return nil
}

func (f *fakePlanRepo) FindByNo(ctx context.Context, planNo string) (*domain.AllocationPlan, error) {
	plan, ok := f.byNo[planNo]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	return plan, nil
}

func (f *fakePlanRepo) FindByDisaster(ctx context.Context, disasterID string) ([]*domain.AllocationPlan, error) {
	var out []*domain.AllocationPlan
	for _, plan := range f.byNo {
		if plan.DisasterID == disasterID {
			out = append(out, plan)
		}
	}
	return out, nil
}

type fakeRecorder struct {
	commands []string
}

func (f *fakeRecorder) RecordCommand(ctx context.Context, action auditdomain.ActionType, entityType, entityID, summary string, before, after map[string]any) error {
	f.commands = append(f.commands, string(action)+" "+entityType)
	return nil
}

type fixture struct {
	svc         *Service
	mock        sqlmock.Sqlmock
	assessments *fakeAssessmentRepo
	requests    *fakeRequestRepo
	plans       *fakePlanRepo
	recorder    *fakeRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock := newTestDB(t)
	f := &fixture{
		mock:        mock,
		assessments: newFakeAssessmentRepo(),
		requests:    newFakeRequestRepo(),
		plans:       newFakePlanRepo(),
		recorder:    &fakeRecorder{},
	}
	f.svc = NewService(f.assessments, f.requests, f.plans, f.recorder, db)
	return f
}

func clerkCtx() context.Context {
	return actor.WithActor(context.Background(), actor.Actor{
		ID: "u3", Name: "Lineo K.", Role: actor.RoleDataClerk,
	})
}

func coordinatorCtx() context.Context {
	return actor.WithActor(context.Background(), actor.Actor{
		ID: "u4", Name: "Thabo M.", Role: actor.RoleCoordinator,
	})
}

// highVulnerabilityAssessment 干旱灾种：作物损失 60% 且供水受阻 → 损失等级 3；
// 老年女性户主、有幼儿、8 口之家、低收入 → 脆弱性 10 分，综合 13 分。
func highVulnerabilityAssessment(no string) *domain.Assessment {
	return &domain.Assessment{
		AssessmentNo:        no,
		DisasterID:          "D1",
		HouseholdID:         "HH-" + no,
		HeadName:            "Mamello T.",
		HeadAge:             70,
		HeadGender:          "Female",
		HouseholdSize:       8,
		ChildrenUnder5:      2,
		MonthlyIncome:       decimal.NewFromInt(2000),
		IncomeCategory:      domain.IncomeLow,
		DisasterType:        domain.DisasterDrought,
		CropLossPercentage:  60,
		WaterAccessImpacted: true,
		Status:              domain.AssessmentPendingReview,
	}
}

func TestCreateAssessment(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	assessment, err := f.svc.CreateAssessment(clerkCtx(), &CreateAssessmentCommand{
		DisasterID:    "D1",
		HouseholdID:   "HH1",
		HeadName:      "Mamello T.",
		HeadAge:       42,
		HeadGender:    "Female",
		HouseholdSize: 4,
		MonthlyIncome: decimal.NewFromInt(2500),
		DisasterType:  domain.DisasterDrought,
	})
	if err != nil {
		t.Fatalf("CreateAssessment() error = %v", err)
	}

	if !strings.HasPrefix(assessment.AssessmentNo, "HA") {
		t.Errorf("AssessmentNo = %q, want HA prefix", assessment.AssessmentNo)
	}
	if assessment.Status != domain.AssessmentPendingReview {
		t.Errorf("Status = %q, want %q", assessment.Status, domain.AssessmentPendingReview)
	}
	if assessment.IncomeCategory != domain.IncomeLow {
		t.Errorf("IncomeCategory = %q, want %q", assessment.IncomeCategory, domain.IncomeLow)
	}
	if assessment.RoofDamage != "None" {
		t.Errorf("RoofDamage = %q, want default None", assessment.RoofDamage)
	}
	if assessment.AssessedBy != "Lineo K." {
		t.Errorf("AssessedBy = %q, want Lineo K.", assessment.AssessedBy)
	}
	if len(f.recorder.commands) != 1 {
		t.Errorf("audit commands = %d, want 1", len(f.recorder.commands))
	}
}

func TestCreateAssessment_InvalidData(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateAssessment(clerkCtx(), &CreateAssessmentCommand{
		DisasterID:    "D1",
		HouseholdID:   "HH1",
		HeadName:      "Mamello T.",
		HeadAge:       15,
		HeadGender:    "Female",
		HouseholdSize: 4,
		DisasterType:  domain.DisasterDrought,
	})
	if !errors.Is(err, domain.ErrInvalidAssessment) {
		t.Fatalf("CreateAssessment() error = %v, want %v", err, domain.ErrInvalidAssessment)
	}
	if len(f.assessments.created) != 0 {
		t.Errorf("created = %d, want nothing persisted", len(f.assessments.created))
	}
}

func TestCalculateScore_NoSideEffects(t *testing.T) {
	f := newFixture(t)
	assessment := highVulnerabilityAssessment("HA1")
	f.assessments.byNo["HA1"] = assessment

	_, scoring, err := f.svc.CalculateScore(context.Background(), "HA1")
	if err != nil {
		t.Fatalf("CalculateScore() error = %v", err)
	}

	if scoring.DamageLevel != 3 {
		t.Errorf("DamageLevel = %d, want 3", scoring.DamageLevel)
	}
	if scoring.TotalVulnerability != 10 {
		t.Errorf("TotalVulnerability = %d, want 10", scoring.TotalVulnerability)
	}
	if scoring.CompositeScore != 13 {
		t.Errorf("CompositeScore = %d, want 13", scoring.CompositeScore)
	}
	if scoring.AidTier != domain.TierPriority {
		t.Errorf("AidTier = %q, want %q", scoring.AidTier, domain.TierPriority)
	}
	if assessment.Status != domain.AssessmentPendingReview {
		t.Errorf("Status = %q, scoring must not mutate the assessment", assessment.Status)
	}
	if len(f.assessments.updated) != 0 || len(f.recorder.commands) != 0 {
		t.Error("scoring must not persist or audit anything")
	}
}

func TestCreateRequest_SnapshotsScoreAndCosts(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	assessment := highVulnerabilityAssessment("HA1")
	f.assessments.byNo["HA1"] = assessment

	request, err := f.svc.CreateRequest(coordinatorCtx(), &CreateRequestCommand{AssessmentNo: "HA1"})
	if err != nil {
		t.Fatalf("CreateRequest() error = %v", err)
	}

	if !strings.HasPrefix(request.RequestNo, "AL") {
		t.Errorf("RequestNo = %q, want AL prefix", request.RequestNo)
	}
	if request.Status != domain.RequestProposed {
		t.Errorf("Status = %q, want %q", request.Status, domain.RequestProposed)
	}
	if request.CompositeScore != 13 || request.AidTier != domain.TierPriority {
		t.Errorf("snapshot = %d/%q, want 13/%q", request.CompositeScore, request.AidTier, domain.TierPriority)
	}
	if len(request.Lines) != 7 {
		t.Fatalf("lines = %d, want the 7 priority tier packages", len(request.Lines))
	}
	for _, line := range request.Lines {
		if line.Quantity != 2 {
			t.Errorf("line %s quantity = %d, want 2 for score >= 7", line.PackageID, line.Quantity)
		}
	}
	// (75000+6500+10000+3000+15000+12000+10000) × 2
	if got, want := request.TotalEstimatedCost, decimal.NewFromInt(263000); !got.Equal(want) {
		t.Errorf("TotalEstimatedCost = %s, want %s", got, want)
	}
	if request.CreatedBy != "Thabo M." {
		t.Errorf("CreatedBy = %q, want Thabo M.", request.CreatedBy)
	}
	if assessment.Status != domain.AssessmentAllocated {
		t.Errorf("assessment status = %q, want flipped to %q", assessment.Status, domain.AssessmentAllocated)
	}
	if len(f.assessments.updated) != 1 {
		t.Errorf("assessment updates = %d, want 1", len(f.assessments.updated))
	}
	if len(f.recorder.commands) != 1 {
		t.Errorf("audit commands = %d, want 1", len(f.recorder.commands))
	}
}

func TestCreateRequest_AllocatedAssessment(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	assessment := highVulnerabilityAssessment("HA1")
	assessment.Status = domain.AssessmentAllocated
	f.assessments.byNo["HA1"] = assessment

	_, err := f.svc.CreateRequest(coordinatorCtx(), &CreateRequestCommand{AssessmentNo: "HA1"})
	if !errors.Is(err, domain.ErrAssessmentAllocated) {
		t.Fatalf("CreateRequest() error = %v, want %v", err, domain.ErrAssessmentAllocated)
	}
}

func TestCreateRequest_OverrideGoesToPendingApproval(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	f.assessments.byNo["HA1"] = highVulnerabilityAssessment("HA1")

	request, err := f.svc.CreateRequest(coordinatorCtx(), &CreateRequestCommand{
		AssessmentNo:          "HA1",
		OverrideReason:        "household hosts two displaced families",
		OverrideJustification: "short",
	})
	if err != nil {
		t.Fatalf("CreateRequest() error = %v", err)
	}
	if !request.IsOverride {
		t.Error("IsOverride = false, want true")
	}
	if request.Status != domain.RequestPendingApproval {
		t.Errorf("Status = %q, want %q", request.Status, domain.RequestPendingApproval)
	}
}

func TestApproveRequest(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	f.requests.byNo["AL1"] = &domain.AllocationRequest{
		RequestNo: "AL1", DisasterID: "D1", Status: domain.RequestProposed,
		TotalEstimatedCost: decimal.NewFromInt(6500),
	}

	request, err := f.svc.ApproveRequest(coordinatorCtx(), "AL1", "score review confirmed")
	if err != nil {
		t.Fatalf("ApproveRequest() error = %v", err)
	}
	if request.Status != domain.RequestApproved {
		t.Errorf("Status = %q, want %q", request.Status, domain.RequestApproved)
	}
	if request.ApprovedBy != "Thabo M." || request.ApprovedAt == nil {
		t.Errorf("approval stamp = %q/%v, want Thabo M. with timestamp", request.ApprovedBy, request.ApprovedAt)
	}

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	if _, err := f.svc.ApproveRequest(coordinatorCtx(), "AL1", "again"); !errors.Is(err, domain.ErrRequestAlreadyApproved) {
		t.Fatalf("second approve error = %v, want %v", err, domain.ErrRequestAlreadyApproved)
	}
}

func TestRejectRequest_RequiresReason(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	f.requests.byNo["AL1"] = &domain.AllocationRequest{RequestNo: "AL1", Status: domain.RequestProposed}

	if _, err := f.svc.RejectRequest(coordinatorCtx(), "AL1", ""); !errors.Is(err, domain.ErrRejectReasonRequired) {
		t.Fatalf("RejectRequest() error = %v, want %v", err, domain.ErrRejectReasonRequired)
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	request, err := f.svc.RejectRequest(coordinatorCtx(), "AL1", "duplicate household entry")
	if err != nil {
		t.Fatalf("RejectRequest() error = %v", err)
	}
	if request.Status != domain.RequestRejected || request.RejectionReason == "" {
		t.Errorf("rejection = %q/%q, want Rejected with reason", request.Status, request.RejectionReason)
	}
}

func TestDisburseRequest_OnlyApproved(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	f.requests.byNo["AL1"] = &domain.AllocationRequest{RequestNo: "AL1", Status: domain.RequestProposed}

	_, err := f.svc.DisburseRequest(coordinatorCtx(), "AL1", decimal.NewFromInt(6500), "Mobile Money", "MM-001")
	if !errors.Is(err, domain.ErrRequestNotDisbursable) {
		t.Fatalf("DisburseRequest() error = %v, want %v", err, domain.ErrRequestNotDisbursable)
	}

	f.requests.byNo["AL1"].Status = domain.RequestApproved
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	request, err := f.svc.DisburseRequest(coordinatorCtx(), "AL1", decimal.NewFromInt(6500), "Mobile Money", "MM-001")
	if err != nil {
		t.Fatalf("DisburseRequest() error = %v", err)
	}
	if request.Status != domain.RequestDisbursed || request.DisbursedAt == nil {
		t.Errorf("disbursement = %q/%v, want Disbursed with timestamp", request.Status, request.DisbursedAt)
	}
	if !request.DisbursedAmount.Equal(decimal.NewFromInt(6500)) {
		t.Errorf("DisbursedAmount = %s, want 6500", request.DisbursedAmount)
	}
}

func TestVoidRequest_DisbursedIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	f.requests.byNo["AL1"] = &domain.AllocationRequest{RequestNo: "AL1", Status: domain.RequestDisbursed}

	if _, err := f.svc.VoidRequest(coordinatorCtx(), "AL1", "entered in error"); !errors.Is(err, domain.ErrRequestTerminal) {
		t.Fatalf("VoidRequest() error = %v, want %v", err, domain.ErrRequestTerminal)
	}

	f.requests.byNo["AL2"] = &domain.AllocationRequest{RequestNo: "AL2", Status: domain.RequestApproved}
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	request, err := f.svc.VoidRequest(coordinatorCtx(), "AL2", "entered in error")
	if err != nil {
		t.Fatalf("VoidRequest() error = %v", err)
	}
	if request.Status != domain.RequestVoided || request.VoidedBy != "Thabo M." {
		t.Errorf("void = %q/%q, want Voided by Thabo M.", request.Status, request.VoidedBy)
	}
}

func TestGeneratePlan(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	if _, err := f.svc.GeneratePlan(coordinatorCtx(), "D1", ""); !errors.Is(err, domain.ErrNoApprovedAllocations) {
		t.Fatalf("GeneratePlan() error = %v, want %v", err, domain.ErrNoApprovedAllocations)
	}

	for _, no := range []string{"HA1", "HA2"} {
		f.assessments.byNo[no] = highVulnerabilityAssessment(no)
	}
	f.requests.byNo["AL1"] = &domain.AllocationRequest{
		RequestNo: "AL1", AssessmentNo: "HA1", DisasterID: "D1", HouseholdID: "HH-HA1",
		CompositeScore: 13, AidTier: domain.TierPriority, Status: domain.RequestApproved,
		TotalEstimatedCost: decimal.NewFromInt(263000),
		Lines: []domain.AllocationLine{
			{RequestNo: "AL1", PackageID: "PKG_TENT_001", PackageName: "Emergency Tent", Quantity: 2, UnitCost: decimal.NewFromInt(6500), LineTotal: decimal.NewFromInt(13000)},
		},
	}
	f.requests.byNo["AL2"] = &domain.AllocationRequest{
		RequestNo: "AL2", AssessmentNo: "HA2", DisasterID: "D1", HouseholdID: "HH-HA2",
		CompositeScore: 5, AidTier: domain.TierShelterFood, Status: domain.RequestApproved,
		TotalEstimatedCost: decimal.NewFromInt(15000),
		Lines: []domain.AllocationLine{
			{RequestNo: "AL2", PackageID: "PKG_TENT_001", PackageName: "Emergency Tent", Quantity: 1, UnitCost: decimal.NewFromInt(6500), LineTotal: decimal.NewFromInt(6500)},
		},
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	plan, err := f.svc.GeneratePlan(coordinatorCtx(), "D1", "August Relief Round")
	if err != nil {
		t.Fatalf("GeneratePlan() error = %v", err)
	}

	if !strings.HasPrefix(plan.PlanNo, "PL") {
		t.Errorf("PlanNo = %q, want PL prefix", plan.PlanNo)
	}
	if plan.HouseholdsCovered != 2 {
		t.Errorf("HouseholdsCovered = %d, want 2", plan.HouseholdsCovered)
	}
	if got, want := plan.TotalBudgetRequired, decimal.NewFromInt(278000); !got.Equal(want) {
		t.Errorf("TotalBudgetRequired = %s, want %s", got, want)
	}
	if len(plan.Procurements) != 1 {
		t.Fatalf("procurement lines = %d, want packages merged by id", len(plan.Procurements))
	}
	if plan.Procurements[0].TotalQuantity != 3 {
		t.Errorf("tent quantity = %d, want 3", plan.Procurements[0].TotalQuantity)
	}
	if len(f.plans.created) != 1 {
		t.Errorf("plans created = %d, want 1", len(f.plans.created))
	}
}
