package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	auditdomain "github.com/wyfcoding/reliefledger/internal/audit/domain"
	"github.com/wyfcoding/reliefledger/internal/fund/domain"
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

type fakeFundRepo struct {
	byNo       map[string]*domain.IncidentFund
	byDisaster map[string]*domain.IncidentFund
	created    []*domain.IncidentFund
	updated    []*domain.IncidentFund
}

func newFakeFundRepo() *fakeFundRepo {
	return &fakeFundRepo{
		byNo:       make(map[string]*domain.IncidentFund),
		byDisaster: make(map[string]*domain.IncidentFund),
	}
}

func (f *fakeFundRepo) add(fund *domain.IncidentFund) {
	f.byNo[fund.FundNo] = fund
	f.byDisaster[fund.DisasterID] = fund
}

func (f *fakeFundRepo) Create(ctx context.Context, fund *domain.IncidentFund) error {
	f.add(fund)
	f.created = append(f.created, fund)
	return nil
}

func (f *fakeFundRepo) Update(ctx context.Context, fund *domain.IncidentFund) error {
	f.add(fund)
	f.updated = append(f.updated, fund)
	return nil
}

func (f *fakeFundRepo) FindByNo(ctx context.Context, fundNo string) (*domain.IncidentFund, error) {
	fund, ok := f.byNo[fundNo]
	if !ok {
		return nil, domain.ErrFundNotFound
	}
	return fund, nil
}

func (f *fakeFundRepo) FindByDisaster(ctx context.Context, disasterID string) (*domain.IncidentFund, error) {
	fund, ok := f.byDisaster[disasterID]
	if !ok {
		return nil, domain.ErrFundNotFound
	}
	return fund, nil
}

func (f *fakeFundRepo) List(ctx context.Context, disasterType domain.FundDisasterType, offset, limit int) ([]*domain.IncidentFund, int64, error) {
	var out []*domain.IncidentFund
	for _, fund := range f.byNo {
		if disasterType == "" || fund.DisasterType == disasterType {
			out = append(out, fund)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeFundRepo) Totals(ctx context.Context) (base, adjusted, committed, spent, remaining decimal.Decimal, err error) {
	base, adjusted, committed, spent, remaining = decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for _, fund := range f.byNo {
		base = base.Add(fund.BaseBudget)
		adjusted = adjusted.Add(fund.AdjustedBudget)
		committed = committed.Add(fund.Committed)
		spent = spent.Add(fund.Spent)
		remaining = remaining.Add(fund.Remaining)
	}
	return base, adjusted, committed, spent, remaining, nil
}

type fakeEnvelopeRepo struct {
	byType  map[domain.FundDisasterType]*domain.DisasterBudgetEnvelope
	created []*domain.DisasterBudgetEnvelope
}

func newFakeEnvelopeRepo() *fakeEnvelopeRepo {
	return &fakeEnvelopeRepo{byType: make(map[domain.FundDisasterType]*domain.DisasterBudgetEnvelope)}
}

func (f *fakeEnvelopeRepo) Create(ctx context.Context, envelope *domain.DisasterBudgetEnvelope) error {
	f.byType[envelope.DisasterType] = envelope
	f.created = append(f.created, envelope)
	return nil
}

func (f *fakeEnvelopeRepo) Update(ctx context.Context, envelope *domain.DisasterBudgetEnvelope) error {
	f.byType[envelope.DisasterType] = envelope
	return nil
}

func (f *fakeEnvelopeRepo) FindByType(ctx context.Context, disasterType domain.FundDisasterType) (*domain.DisasterBudgetEnvelope, error) {
	envelope, ok := f.byType[disasterType]
	if !ok {
		return nil, domain.ErrEnvelopeNotFound
	}
	return envelope, nil
}

func (f *fakeEnvelopeRepo) FindAll(ctx context.Context) ([]*domain.DisasterBudgetEnvelope, error) {
	var out []*domain.DisasterBudgetEnvelope
	for _, envelope := range f.byType {
		out = append(out, envelope)
	}
	return out, nil
}

type fakeAnnualRepo struct {
	latest *domain.AnnualBudget
}

func (f *fakeAnnualRepo) Save(ctx context.Context, budget *domain.AnnualBudget) error {
	f.latest = budget
	return nil
}

func (f *fakeAnnualRepo) FindLatest(ctx context.Context) (*domain.AnnualBudget, error) {
	if f.latest == nil {
		return nil, domain.ErrNoAnnualBudget
	}
	return f.latest, nil
}

type fakeExpenditureRepo struct {
	byNo     map[string]*domain.IncidentExpenditure
	approved map[string]decimal.Decimal // fundNo+"/"+category
	created  []*domain.IncidentExpenditure
}

func newFakeExpenditureRepo() *fakeExpenditureRepo {
	return &fakeExpenditureRepo{
		byNo:     make(map[string]*domain.IncidentExpenditure),
		approved: make(map[string]decimal.Decimal),
	}
}

func (f *fakeExpenditureRepo) Create(ctx context.Context, x *domain.IncidentExpenditure) error {
	f.byNo[x.ExpenditureNo] = x
	f.created = append(f.created, x)
	return nil
}

func (f *fakeExpenditureRepo) Update(ctx context.Context, x *domain.IncidentExpenditure) error {
	f.byNo[x.ExpenditureNo] = x
	return nil
}

func (f *fakeExpenditureRepo) FindByNo(ctx context.Context, expenditureNo string) (*domain.IncidentExpenditure, error) {
	x, ok := f.byNo[expenditureNo]
	if !ok {
		return nil, domain.ErrExpenditureNotFound
	}
	return x, nil
}

func (f *fakeExpenditureRepo) FindByFund(ctx context.Context, fundNo string) ([]*domain.IncidentExpenditure, error) {
	var out []*domain.IncidentExpenditure
	for _, x := range f.byNo {
		if x.FundNo == fundNo {
			out = append(out, x)
		}
	}
	return out, nil
}

func (f *fakeExpenditureRepo) SumApprovedByCategory(ctx context.Context, fundNo string, category domain.ExpenditureCategory) (decimal.Decimal, error) {
	sum, ok := f.approved[fundNo+"/"+string(category)]
	if !ok {
		return decimal.Zero, nil
	}
	return sum, nil
}

type fakeAdjustmentRepo struct {
	byNo map[string]*domain.BudgetAdjustmentRequest
}

func newFakeAdjustmentRepo() *fakeAdjustmentRepo {
	return &fakeAdjustmentRepo{byNo: make(map[string]*domain.BudgetAdjustmentRequest)}
}

func (f *fakeAdjustmentRepo) Create(ctx context.Context, r *domain.BudgetAdjustmentRequest) error {
	f.byNo[r.AdjustmentNo] = r
	return nil
}

func (f *fakeAdjustmentRepo) Update(ctx context.Context, r *domain.BudgetAdjustmentRequest) error {
	f.byNo[r.AdjustmentNo] = r
	return nil
}

func (f *fakeAdjustmentRepo) FindByNo(ctx context.Context, adjustmentNo string) (*domain.BudgetAdjustmentRequest, error) {
	r, ok := f.byNo[adjustmentNo]
	if !ok {
		return nil, domain.ErrAdjustmentNotFound
	}
	return r, nil
}

func (f *fakeAdjustmentRepo) List(ctx context.Context, offset, limit int) ([]*domain.BudgetAdjustmentRequest, int64, error) {
	var out []*domain.BudgetAdjustmentRequest
	for _, r := range f.byNo {
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

type fakeProfileRepo struct {
	cost    map[domain.FundDisasterType]*domain.DisasterCostProfile
	need    map[domain.FundDisasterType]*domain.NeedCostProfile
	impacts map[string]*domain.IncidentImpact
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{
		cost:    make(map[domain.FundDisasterType]*domain.DisasterCostProfile),
		need:    make(map[domain.FundDisasterType]*domain.NeedCostProfile),
		impacts: make(map[string]*domain.IncidentImpact),
	}
}

func (f *fakeProfileRepo) FindCostProfile(ctx context.Context, disasterType domain.FundDisasterType) (*domain.DisasterCostProfile, error) {
	p, ok := f.cost[disasterType]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeProfileRepo) FindNeedProfile(ctx context.Context, disasterType domain.FundDisasterType) (*domain.NeedCostProfile, error) {
	p, ok := f.need[disasterType]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeProfileRepo) FindHousingProfile(ctx context.Context) (*domain.HousingCostProfile, error) {
	return nil, domain.ErrProfileNotFound
}

func (f *fakeProfileRepo) FindImpact(ctx context.Context, disasterID string) (*domain.IncidentImpact, error) {
	impact, ok := f.impacts[disasterID]
	if !ok {
		return nil, domain.ErrImpactNotFound
	}
	return impact, nil
}

func (f *fakeProfileRepo) SaveImpact(ctx context.Context, impact *domain.IncidentImpact) error {
	f.impacts[impact.DisasterID] = impact
	return nil
}

type fakeRecorder struct {
	commands []string
}

func (f *fakeRecorder) RecordCommand(ctx context.Context, action auditdomain.ActionType, entityType, entityID, summary string, before, after map[string]any) error {
	f.commands = append(f.commands, string(action)+" "+entityType)
	return nil
}

type noopNotifier struct{}

func (noopNotifier) NotifyRefresh(ctx context.Context, event domain.ForecastRefreshEvent) error {
	return nil
}

type fixture struct {
	svc          *Service
	mock         sqlmock.Sqlmock
	funds        *fakeFundRepo
	envelopes    *fakeEnvelopeRepo
	annual       *fakeAnnualRepo
	expenditures *fakeExpenditureRepo
	adjustments  *fakeAdjustmentRepo
	profiles     *fakeProfileRepo
	recorder     *fakeRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock := newTestDB(t)
	f := &fixture{
		mock:         mock,
		funds:        newFakeFundRepo(),
		envelopes:    newFakeEnvelopeRepo(),
		annual:       &fakeAnnualRepo{},
		expenditures: newFakeExpenditureRepo(),
		adjustments:  newFakeAdjustmentRepo(),
		profiles:     newFakeProfileRepo(),
		recorder:     &fakeRecorder{},
	}
	f.svc = NewService(f.funds, f.envelopes, f.annual, f.expenditures, f.adjustments, f.profiles, f.recorder, noopNotifier{}, db)
	return f
}

func financeCtx() context.Context {
	return actor.WithActor(context.Background(), actor.Actor{
		ID: "u1", Name: "Palesa N.", Role: actor.RoleFinanceOfficer,
	})
}

func adminCtx() context.Context {
	return actor.WithActor(context.Background(), actor.Actor{
		ID: "u2", Name: "Thabo M.", Role: actor.RoleAdministrator,
	})
}

func droughtCostProfile() *domain.DisasterCostProfile {
	return &domain.DisasterCostProfile{
		DisasterType:            domain.FundDrought,
		CostPerHousehold:        decimal.NewFromInt(1500),
		CostPerPerson:           decimal.NewFromInt(300),
		CostPerLivestockUnit:    decimal.NewFromInt(200),
		CostPerFarmingHousehold: decimal.NewFromInt(1000),
	}
}

func TestCreateFund_DerivesBudgetFromProfiles(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	f.profiles.cost[domain.FundDrought] = droughtCostProfile()
	f.profiles.need[domain.FundDrought] = &domain.NeedCostProfile{
		DisasterType: domain.FundDrought,
		Needs: []domain.NeedCost{
			{Name: "Water trucking", CostPerHousehold: decimal.NewFromInt(50), CostPerPerson: decimal.NewFromInt(10)},
		},
	}
	f.envelopes.byType[domain.FundDrought] = domain.NewEnvelope(domain.FundDrought, decimal.NewFromInt(1000000))

	fund, err := f.svc.CreateFund(financeCtx(), &CreateFundCommand{
		DisasterID:         "D1",
		DisasterType:       domain.FundDrought,
		HouseholdsAffected: 100,
	})
	if err != nil {
		t.Fatalf("CreateFund() error = %v", err)
	}

	// 100×1500 + 500×300，人数缺省按每户 5 人推导
	if got, want := fund.BaseBudget, decimal.NewFromInt(300000); !got.Equal(want) {
		t.Errorf("BaseBudget = %s, want %s", got, want)
	}
	// 100×50 + 500×10
	if got, want := fund.NeedsCost, decimal.NewFromInt(10000); !got.Equal(want) {
		t.Errorf("NeedsCost = %s, want %s", got, want)
	}
	if got, want := fund.AdjustedBudget, decimal.NewFromInt(310000); !got.Equal(want) {
		t.Errorf("AdjustedBudget = %s, want %s", got, want)
	}
	if got, want := fund.HousingBaseCost, decimal.NewFromInt(150000); !got.Equal(want) {
		t.Errorf("HousingBaseCost = %s, want %s", got, want)
	}
	if !strings.HasPrefix(fund.FundNo, "FND") {
		t.Errorf("FundNo = %q, want FND prefix", fund.FundNo)
	}

	impact := f.profiles.impacts["D1"]
	if impact == nil || impact.IndividualsAffected != 500 {
		t.Errorf("impact = %+v, want individuals derived as 500", impact)
	}

	envelope := f.envelopes.byType[domain.FundDrought]
	if got, want := envelope.Committed, decimal.NewFromInt(310000); !got.Equal(want) {
		t.Errorf("envelope committed = %s, want %s", got, want)
	}
	if got, want := envelope.Remaining, decimal.NewFromInt(90000); !got.Equal(want) {
		t.Errorf("envelope remaining = %s, want %s", got, want)
	}
	if len(f.recorder.commands) != 1 {
		t.Errorf("audit commands = %d, want 1", len(f.recorder.commands))
	}
}

func TestCreateFund_DuplicateDisaster(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	f.profiles.cost[domain.FundDrought] = droughtCostProfile()
	f.funds.add(&domain.IncidentFund{FundNo: "FND1", DisasterID: "D1", DisasterType: domain.FundDrought})

	_, err := f.svc.CreateFund(financeCtx(), &CreateFundCommand{
		DisasterID:         "D1",
		DisasterType:       domain.FundDrought,
		HouseholdsAffected: 10,
	})
	if !errors.Is(err, domain.ErrFundExists) {
		t.Fatalf("CreateFund() error = %v, want %v", err, domain.ErrFundExists)
	}
}

func TestCreateFund_EnvelopeTooSmall(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	f.profiles.cost[domain.FundDrought] = droughtCostProfile()
	envelope := domain.NewEnvelope(domain.FundDrought, decimal.NewFromInt(100000))
	f.envelopes.byType[domain.FundDrought] = envelope

	_, err := f.svc.CreateFund(financeCtx(), &CreateFundCommand{
		DisasterID:         "D1",
		DisasterType:       domain.FundDrought,
		HouseholdsAffected: 100,
	})
	if !errors.Is(err, domain.ErrInsufficientPool) {
		t.Fatalf("CreateFund() error = %v, want %v", err, domain.ErrInsufficientPool)
	}
	if len(f.funds.created) != 0 {
		t.Error("no fund should be persisted when the pool cannot commit")
	}
}

func TestCreateFund_NoEnvelopeYet(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	f.profiles.cost[domain.FundDrought] = droughtCostProfile()

	fund, err := f.svc.CreateFund(financeCtx(), &CreateFundCommand{
		DisasterID:         "D1",
		DisasterType:       domain.FundDrought,
		HouseholdsAffected: 10,
	})
	if err != nil {
		t.Fatalf("CreateFund() error = %v", err)
	}
	if fund == nil || len(f.funds.created) != 1 {
		t.Fatal("fund must be created even before envelopes are provisioned")
	}
}

func TestUpdateAdjustments(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	fund := &domain.IncidentFund{
		FundNo:          "FND1",
		DisasterID:      "D1",
		DisasterType:    domain.FundDrought,
		BaseBudget:      decimal.NewFromInt(200000),
		HousingBaseCost: decimal.NewFromInt(100000),
		HouseTier:       domain.HouseTierA,
		Status:          domain.FundOpen,
	}
	fund.Recalculate()
	f.funds.add(fund)
	f.profiles.need[domain.FundDrought] = &domain.NeedCostProfile{
		DisasterType:   domain.FundDrought,
		CostPerHectare: decimal.NewFromInt(2500),
	}

	updated, err := f.svc.UpdateAdjustments(financeCtx(), "FND1", &UpdateAdjustmentsCommand{
		HouseTier:           domain.HouseTierB,
		DamagedLandHectares: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("UpdateAdjustments() error = %v", err)
	}
	// 100000×0.2 + 10×2500
	if got, want := updated.AdjustmentCost, decimal.NewFromInt(45000); !got.Equal(want) {
		t.Errorf("AdjustmentCost = %s, want %s", got, want)
	}
	if got, want := updated.AdjustedBudget, decimal.NewFromInt(245000); !got.Equal(want) {
		t.Errorf("AdjustedBudget = %s, want %s", got, want)
	}
}

func TestUpdateAdjustments_EmptyTierKeepsCurrent(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	fund := &domain.IncidentFund{
		FundNo:          "FND1",
		DisasterID:      "D1",
		DisasterType:    domain.FundStrongWinds,
		BaseBudget:      decimal.NewFromInt(50000),
		HousingBaseCost: decimal.NewFromInt(20000),
		HouseTier:       domain.HouseTierC,
		Status:          domain.FundOpen,
	}
	fund.Recalculate()
	f.funds.add(fund)

	updated, err := f.svc.UpdateAdjustments(financeCtx(), "FND1", &UpdateAdjustmentsCommand{})
	if err != nil {
		t.Fatalf("UpdateAdjustments() error = %v", err)
	}
	if updated.HouseTier != domain.HouseTierC {
		t.Errorf("HouseTier = %s, want %s", updated.HouseTier, domain.HouseTierC)
	}
}

func TestRecordExpenditure_CapBreachAndOverride(t *testing.T) {
	f := newFixture(t)
	fund := &domain.IncidentFund{
		FundNo:       "FND1",
		DisasterID:   "D1",
		DisasterType: domain.FundDrought,
		BaseBudget:   decimal.NewFromInt(100000),
		Status:       domain.FundOpen,
	}
	fund.Recalculate()
	f.funds.add(fund)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err := f.svc.RecordExpenditure(financeCtx(), "FND1", &RecordExpenditureCommand{
		Amount:      decimal.NewFromInt(72000),
		Category:    domain.CategoryDirectRelief,
		Description: "Emergency food distribution",
	})
	if !errors.Is(err, domain.ErrCategoryCapBreach) {
		t.Fatalf("RecordExpenditure() error = %v, want %v", err, domain.ErrCategoryCapBreach)
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	expenditure, err := f.svc.RecordExpenditure(financeCtx(), "FND1", &RecordExpenditureCommand{
		Amount:           decimal.NewFromInt(72000),
		Category:         domain.CategoryDirectRelief,
		Description:      "Emergency food distribution",
		OverrideApproved: true,
	})
	if err != nil {
		t.Fatalf("RecordExpenditure() with override error = %v", err)
	}
	if expenditure.Status != domain.ExpenditurePending {
		t.Errorf("Status = %s, want %s", expenditure.Status, domain.ExpenditurePending)
	}
	if expenditure.RecordedBy != "Palesa N." {
		t.Errorf("RecordedBy = %q, want Palesa N.", expenditure.RecordedBy)
	}
	if !strings.HasPrefix(expenditure.ExpenditureNo, "XPD") {
		t.Errorf("ExpenditureNo = %q, want XPD prefix", expenditure.ExpenditureNo)
	}
}

func TestApproveExpenditure_UpdatesFundAndEnvelope(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	fund := &domain.IncidentFund{
		FundNo:       "FND1",
		DisasterID:   "D1",
		DisasterType: domain.FundDrought,
		BaseBudget:   decimal.NewFromInt(100000),
		Status:       domain.FundOpen,
	}
	fund.Recalculate()
	f.funds.add(fund)
	f.envelopes.byType[domain.FundDrought] = domain.NewEnvelope(domain.FundDrought, decimal.NewFromInt(1000000))
	f.expenditures.byNo["XPD1"] = &domain.IncidentExpenditure{
		ExpenditureNo: "XPD1",
		FundNo:        "FND1",
		Category:      domain.CategoryDirectRelief,
		Amount:        decimal.NewFromInt(40000),
		Status:        domain.ExpenditurePending,
	}

	result, err := f.svc.ApproveExpenditure(adminCtx(), "XPD1")
	if err != nil {
		t.Fatalf("ApproveExpenditure() error = %v", err)
	}
	if result.Expenditure.Status != domain.ExpenditureApproved {
		t.Errorf("Status = %s, want %s", result.Expenditure.Status, domain.ExpenditureApproved)
	}
	if result.Expenditure.ApprovedBy != "Thabo M." {
		t.Errorf("ApprovedBy = %q, want Thabo M.", result.Expenditure.ApprovedBy)
	}
	if got, want := result.Fund.Spent, decimal.NewFromInt(40000); !got.Equal(want) {
		t.Errorf("fund spent = %s, want %s", got, want)
	}
	if got, want := result.Fund.Remaining, decimal.NewFromInt(60000); !got.Equal(want) {
		t.Errorf("fund remaining = %s, want %s", got, want)
	}
	if got, want := f.envelopes.byType[domain.FundDrought].Spent, decimal.NewFromInt(40000); !got.Equal(want) {
		t.Errorf("envelope spent = %s, want %s", got, want)
	}
}

func TestApproveExpenditure_Twice(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	fund := &domain.IncidentFund{
		FundNo:     "FND1",
		BaseBudget: decimal.NewFromInt(100000),
		Status:     domain.FundOpen,
	}
	fund.Recalculate()
	f.funds.add(fund)
	f.expenditures.byNo["XPD1"] = &domain.IncidentExpenditure{
		ExpenditureNo: "XPD1",
		FundNo:        "FND1",
		Amount:        decimal.NewFromInt(1000),
		Status:        domain.ExpenditureApproved,
	}

	_, err := f.svc.ApproveExpenditure(adminCtx(), "XPD1")
	if !errors.Is(err, domain.ErrExpenditureAlreadyApproved) {
		t.Fatalf("ApproveExpenditure() error = %v, want %v", err, domain.ErrExpenditureAlreadyApproved)
	}
}

func TestAdjustmentWorkflow_TwoRolesExecuteTransfer(t *testing.T) {
	f := newFixture(t)

	f.envelopes.byType[domain.FundDrought] = domain.NewEnvelope(domain.FundDrought, decimal.NewFromInt(1000000))
	f.envelopes.byType[domain.FundStrongWinds] = domain.NewEnvelope(domain.FundStrongWinds, decimal.NewFromInt(1000000))

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	request, err := f.svc.RequestAdjustment(financeCtx(), &RequestAdjustmentCommand{
		FromType: domain.FundDrought,
		ToType:   domain.FundStrongWinds,
		Amount:   decimal.NewFromInt(50000),
		Reason:   "Storm season forecast revised upward",
	})
	if err != nil {
		t.Fatalf("RequestAdjustment() error = %v", err)
	}
	if request.RequestedBy != "Palesa N." {
		t.Errorf("RequestedBy = %q, want Palesa N.", request.RequestedBy)
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	request, err = f.svc.ApproveAdjustment(financeCtx(), request.AdjustmentNo)
	if err != nil {
		t.Fatalf("first ApproveAdjustment() error = %v", err)
	}
	if request.Status != domain.AdjustmentPending {
		t.Fatalf("Status = %s after one role, want pending", request.Status)
	}
	if got, want := f.envelopes.byType[domain.FundDrought].TotalAllocated, decimal.NewFromInt(400000); !got.Equal(want) {
		t.Errorf("from envelope touched before execution: %s, want %s", got, want)
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	request, err = f.svc.ApproveAdjustment(adminCtx(), request.AdjustmentNo)
	if err != nil {
		t.Fatalf("second ApproveAdjustment() error = %v", err)
	}
	if request.Status != domain.AdjustmentApproved {
		t.Fatalf("Status = %s, want approved", request.Status)
	}
	if got, want := f.envelopes.byType[domain.FundDrought].TotalAllocated, decimal.NewFromInt(350000); !got.Equal(want) {
		t.Errorf("from envelope allocated = %s, want %s", got, want)
	}
	if got, want := f.envelopes.byType[domain.FundStrongWinds].TotalAllocated, decimal.NewFromInt(300000); !got.Equal(want) {
		t.Errorf("to envelope allocated = %s, want %s", got, want)
	}
}

func TestApproveAdjustment_SameRoleTwiceDoesNotExecute(t *testing.T) {
	f := newFixture(t)

	f.envelopes.byType[domain.FundDrought] = domain.NewEnvelope(domain.FundDrought, decimal.NewFromInt(1000000))
	f.envelopes.byType[domain.FundStrongWinds] = domain.NewEnvelope(domain.FundStrongWinds, decimal.NewFromInt(1000000))
	f.adjustments.byNo["ADJ1"] = &domain.BudgetAdjustmentRequest{
		AdjustmentNo: "ADJ1",
		FromType:     domain.FundDrought,
		ToType:       domain.FundStrongWinds,
		Amount:       decimal.NewFromInt(50000),
		Reason:       "Storm season forecast revised upward",
		Status:       domain.AdjustmentPending,
	}

	for i := 0; i < 2; i++ {
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
		request, err := f.svc.ApproveAdjustment(financeCtx(), "ADJ1")
		if err != nil {
			t.Fatalf("ApproveAdjustment() #%d error = %v", i+1, err)
		}
		if request.Status != domain.AdjustmentPending {
			t.Fatalf("Status = %s, want pending", request.Status)
		}
	}
	if got, want := f.envelopes.byType[domain.FundDrought].TotalAllocated, decimal.NewFromInt(400000); !got.Equal(want) {
		t.Errorf("from envelope allocated = %s, want %s", got, want)
	}
}

func TestRejectAdjustment_Terminal(t *testing.T) {
	f := newFixture(t)

	f.adjustments.byNo["ADJ1"] = &domain.BudgetAdjustmentRequest{
		AdjustmentNo: "ADJ1",
		FromType:     domain.FundDrought,
		ToType:       domain.FundStrongWinds,
		Amount:       decimal.NewFromInt(50000),
		Reason:       "Storm season forecast revised upward",
		Status:       domain.AdjustmentPending,
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	request, err := f.svc.RejectAdjustment(adminCtx(), "ADJ1")
	if err != nil {
		t.Fatalf("RejectAdjustment() error = %v", err)
	}
	if request.Status != domain.AdjustmentRejected {
		t.Fatalf("Status = %s, want rejected", request.Status)
	}

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	if _, err := f.svc.ApproveAdjustment(financeCtx(), "ADJ1"); !errors.Is(err, domain.ErrAdjustmentDecided) {
		t.Fatalf("ApproveAdjustment() error = %v, want %v", err, domain.ErrAdjustmentDecided)
	}
}

func TestAdjustmentVotes_RequireActorIdentity(t *testing.T) {
	f := newFixture(t)

	f.adjustments.byNo["ADJ1"] = &domain.BudgetAdjustmentRequest{
		AdjustmentNo: "ADJ1",
		FromType:     domain.FundDrought,
		ToType:       domain.FundStrongWinds,
		Amount:       decimal.NewFromInt(50000),
		Reason:       "Storm season forecast revised upward",
		Status:       domain.AdjustmentPending,
	}

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	if _, err := f.svc.ApproveAdjustment(context.Background(), "ADJ1"); !errors.Is(err, domain.ErrVoterUnknown) {
		t.Fatalf("ApproveAdjustment() error = %v, want %v", err, domain.ErrVoterUnknown)
	}

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	if _, err := f.svc.RejectAdjustment(context.Background(), "ADJ1"); !errors.Is(err, domain.ErrVoterUnknown) {
		t.Fatalf("RejectAdjustment() error = %v, want %v", err, domain.ErrVoterUnknown)
	}

	request := f.adjustments.byNo["ADJ1"]
	if len(request.Votes) != 0 || request.Status != domain.AdjustmentPending {
		t.Errorf("request = %d votes/%s, want untouched pending request", len(request.Votes), request.Status)
	}
}

func TestRefreshForecastRisk(t *testing.T) {
	tests := []struct {
		name        string
		spent       int64
		want        string
		wantUpdated bool
	}{
		{"high above 85 percent", 90000, "High", true},
		{"medium above 60 percent", 70000, "Medium", true},
		{"low stays untouched", 10000, "Low", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			fund := &domain.IncidentFund{
				FundNo:            "FND1",
				BaseBudget:        decimal.NewFromInt(100000),
				Spent:             decimal.NewFromInt(tt.spent),
				ForecastRiskLevel: "Low",
				Status:            domain.FundOpen,
			}
			fund.Recalculate()
			f.funds.add(fund)

			if err := f.svc.RefreshForecastRisk(context.Background(), "FND1"); err != nil {
				t.Fatalf("RefreshForecastRisk() error = %v", err)
			}
			if fund.ForecastRiskLevel != tt.want {
				t.Errorf("ForecastRiskLevel = %q, want %q", fund.ForecastRiskLevel, tt.want)
			}
			if updated := len(f.funds.updated) > 0; updated != tt.wantUpdated {
				t.Errorf("fund updated = %v, want %v", updated, tt.wantUpdated)
			}
		})
	}
}

func TestSetAnnualBudget(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.SetAnnualBudget(adminCtx(), "2026", decimal.Zero); !errors.Is(err, domain.ErrInvalidFundAmount) {
		t.Fatalf("SetAnnualBudget(0) error = %v, want %v", err, domain.ErrInvalidFundAmount)
	}

	budget, err := f.svc.SetAnnualBudget(adminCtx(), "2026", decimal.NewFromInt(1000000))
	if err != nil {
		t.Fatalf("SetAnnualBudget() error = %v", err)
	}
	if budget.FiscalYear != "2026" {
		t.Errorf("FiscalYear = %q, want 2026", budget.FiscalYear)
	}
}

func TestEnsureEnvelopes(t *testing.T) {
	f := newFixture(t)

	// 没有年度预算时什么也不建
	envelopes, err := f.svc.EnsureEnvelopes(context.Background())
	if err != nil {
		t.Fatalf("EnsureEnvelopes() error = %v", err)
	}
	if envelopes != nil {
		t.Fatalf("envelopes = %v, want nil without an annual budget", envelopes)
	}

	f.annual.latest = &domain.AnnualBudget{FiscalYear: "2026", TotalAllocated: decimal.NewFromInt(1000000)}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	envelopes, err = f.svc.EnsureEnvelopes(context.Background())
	if err != nil {
		t.Fatalf("EnsureEnvelopes() error = %v", err)
	}
	if len(envelopes) != 3 {
		t.Fatalf("len(envelopes) = %d, want 3", len(envelopes))
	}
	if len(f.envelopes.created) != 3 {
		t.Fatalf("created = %d, want 3", len(f.envelopes.created))
	}

	// 再跑一次是幂等的
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	if _, err := f.svc.EnsureEnvelopes(context.Background()); err != nil {
		t.Fatalf("EnsureEnvelopes() second run error = %v", err)
	}
	if len(f.envelopes.created) != 3 {
		t.Fatalf("created = %d after second run, want 3", len(f.envelopes.created))
	}
}

func TestGetOverview(t *testing.T) {
	f := newFixture(t)
	f.annual.latest = &domain.AnnualBudget{FiscalYear: "2026", TotalAllocated: decimal.NewFromInt(1000000)}
	f.envelopes.byType[domain.FundDrought] = domain.NewEnvelope(domain.FundDrought, decimal.NewFromInt(1000000))
	f.envelopes.byType[domain.FundHeavyRainfall] = domain.NewEnvelope(domain.FundHeavyRainfall, decimal.NewFromInt(1000000))
	f.envelopes.byType[domain.FundStrongWinds] = domain.NewEnvelope(domain.FundStrongWinds, decimal.NewFromInt(1000000))

	fund := &domain.IncidentFund{
		FundNo:       "FND1",
		DisasterID:   "D1",
		DisasterType: domain.FundDrought,
		BaseBudget:   decimal.NewFromInt(200000),
		Spent:        decimal.NewFromInt(50000),
		Status:       domain.FundOpen,
	}
	fund.Recalculate()
	f.funds.add(fund)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	overview, err := f.svc.GetOverview(context.Background())
	if err != nil {
		t.Fatalf("GetOverview() error = %v", err)
	}
	if got, want := overview.TotalAdjusted, decimal.NewFromInt(200000); !got.Equal(want) {
		t.Errorf("TotalAdjusted = %s, want %s", got, want)
	}
	if got, want := overview.TotalSpent, decimal.NewFromInt(50000); !got.Equal(want) {
		t.Errorf("TotalSpent = %s, want %s", got, want)
	}
	if got, want := overview.RiskIndex, decimal.NewFromFloat(0.2); !got.Equal(want) {
		t.Errorf("RiskIndex = %s, want %s", got, want)
	}
	if len(overview.Envelopes) != 3 {
		t.Errorf("len(Envelopes) = %d, want 3", len(overview.Envelopes))
	}
}
