package domain

import "context"

// AssessmentRepository 家庭评估仓储
type AssessmentRepository interface {
	Create(ctx context.Context, assessment *Assessment) error
	Update(ctx context.Context, assessment *Assessment) error
	FindByNo(ctx context.Context, assessmentNo string) (*Assessment, error)
	FindByNos(ctx context.Context, assessmentNos []string) ([]*Assessment, error)
	FindByDisaster(ctx context.Context, disasterID string, status AssessmentStatus, offset, limit int) ([]*Assessment, int64, error)
}

// RequestRepository 救助申请仓储
type RequestRepository interface {
	Create(ctx context.Context, request *AllocationRequest) error
	Update(ctx context.Context, request *AllocationRequest) error
	FindByNo(ctx context.Context, requestNo string) (*AllocationRequest, error)
	FindByDisasterAndStatus(ctx context.Context, disasterID string, status RequestStatus) ([]*AllocationRequest, error)
	List(ctx context.Context, disasterID string, status RequestStatus, offset, limit int) ([]*AllocationRequest, int64, error)
}

// PlanRepository 发放计划仓储。计划生成后不可变，不提供更新。
type PlanRepository interface {
	Create(ctx context.Context, plan *AllocationPlan) error
	FindByNo(ctx context.Context, planNo string) (*AllocationPlan, error)
	FindByDisaster(ctx context.Context, disasterID string) ([]*AllocationPlan, error)
}
