package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/response"
	"github.com/wyfcoding/reliefledger/internal/allocation/application"
	"github.com/wyfcoding/reliefledger/internal/allocation/domain"
	"github.com/wyfcoding/reliefledger/pkg/actor"
)

// Handler 救助分配接口
type Handler struct {
	svc    *application.Service
	logger *slog.Logger
}

// NewHandler 创建救助分配处理器
func NewHandler(svc *application.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	assessments := rg.Group("/assessments", actor.RequireRoles(actor.RoleDataClerk, actor.RoleCoordinator, actor.RoleAdministrator))
	{
		assessments.POST("", h.CreateAssessment)
		assessments.GET("/:no", h.GetAssessment)
		assessments.GET("", h.ListAssessments)
	}

	alloc := rg.Group("/allocation")
	{
		alloc.POST("/calculate-score",
			actor.RequireRoles(actor.RoleFinanceOfficer, actor.RoleCoordinator, actor.RoleAdministrator),
			h.CalculateScore)
		alloc.GET("/packages", h.ListPackages)

		finance := alloc.Group("", actor.RequireRoles(actor.RoleFinanceOfficer, actor.RoleAdministrator))
		{
			finance.POST("/create-request", h.CreateRequest)
			finance.GET("/requests", h.ListRequests)
			finance.GET("/requests/:no", h.GetRequest)
			finance.PUT("/requests/:no/approve", h.ApproveRequest)
			finance.PUT("/requests/:no/reject", h.RejectRequest)
			finance.PUT("/requests/:no/disburse", h.DisburseRequest)
			finance.POST("/plans", h.GeneratePlan)
			finance.GET("/plans/:no", h.GetPlan)
			finance.GET("/plans", h.ListPlans)
		}

		alloc.PUT("/requests/:no/void",
			actor.RequireRoles(actor.RoleAdministrator),
			h.VoidRequest)
	}
}

func (h *Handler) replyError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrAssessmentNotFound),
		errors.Is(err, domain.ErrRequestNotFound),
		errors.Is(err, domain.ErrPlanNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAssessment),
		errors.Is(err, domain.ErrVoidReasonRequired),
		errors.Is(err, domain.ErrRejectReasonRequired),
		errors.Is(err, domain.ErrNoApprovedAllocations):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRequestAlreadyApproved),
		errors.Is(err, domain.ErrRequestNotApprovable),
		errors.Is(err, domain.ErrRequestNotRejectable),
		errors.Is(err, domain.ErrRequestNotDisbursable),
		errors.Is(err, domain.ErrRequestAlreadyVoided),
		errors.Is(err, domain.ErrRequestTerminal),
		errors.Is(err, domain.ErrAssessmentAllocated):
		status = http.StatusConflict
	default:
		h.logger.Error("allocation request failed", "error", err)
	}
	response.ErrorWithStatus(c, status, err.Error(), "")
}

// CreateAssessment 登记家庭评估
func (h *Handler) CreateAssessment(c *gin.Context) {
	var cmd application.CreateAssessmentCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	assessment, err := h.svc.CreateAssessment(c.Request.Context(), &cmd)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, assessment)
}

// GetAssessment 查询评估
func (h *Handler) GetAssessment(c *gin.Context) {
	assessment, err := h.svc.GetAssessment(c.Request.Context(), c.Param("no"))
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, assessment)
}

// ListAssessments 分页查询评估
func (h *Handler) ListAssessments(c *gin.Context) {
	page, size := pagination(c)
	assessments, total, err := h.svc.ListAssessments(c.Request.Context(),
		c.Query("disaster_id"), domain.AssessmentStatus(c.Query("status")), page, size)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, gin.H{"assessments": assessments, "total": total, "page": page, "size": size})
}

type calculateScoreRequest struct {
	AssessmentNo string `json:"assessment_no" binding:"required"`
}

// CalculateScore 运行评分引擎，只读
func (h *Handler) CalculateScore(c *gin.Context) {
	var req calculateScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	assessment, scoring, err := h.svc.CalculateScore(c.Request.Context(), req.AssessmentNo)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, gin.H{
		"assessment_no":   assessment.AssessmentNo,
		"household_id":    assessment.HouseholdID,
		"head_name":       assessment.HeadName,
		"disaster_type":   assessment.DisasterType,
		"assessment_date": assessment.AssessmentDate,
		"scoring":         scoring,
	})
}

// ListPackages 返回物资包登记表
func (h *Handler) ListPackages(c *gin.Context) {
	response.Success(c, h.svc.Packages())
}

// CreateRequest 创建救助申请
func (h *Handler) CreateRequest(c *gin.Context) {
	var cmd application.CreateRequestCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	request, err := h.svc.CreateRequest(c.Request.Context(), &cmd)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, request)
}

// GetRequest 查询救助申请
func (h *Handler) GetRequest(c *gin.Context) {
	request, err := h.svc.GetRequest(c.Request.Context(), c.Param("no"))
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, request)
}

// ListRequests 分页查询救助申请
func (h *Handler) ListRequests(c *gin.Context) {
	page, size := pagination(c)
	requests, total, err := h.svc.ListRequests(c.Request.Context(),
		c.Query("disaster_id"), domain.RequestStatus(c.Query("status")), page, size)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, gin.H{"requests": requests, "total": total, "page": page, "size": size})
}

type approveRequestBody struct {
	Justification string `json:"justification"`
}

// ApproveRequest 批准救助申请
func (h *Handler) ApproveRequest(c *gin.Context) {
	// 请求体可选：理由仅在偏离评分建议时要求
	var body approveRequestBody
	_ = c.ShouldBindJSON(&body)
	request, err := h.svc.ApproveRequest(c.Request.Context(), c.Param("no"), body.Justification)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, request)
}

type reasonBody struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectRequest 驳回救助申请
func (h *Handler) RejectRequest(c *gin.Context) {
	var body reasonBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	request, err := h.svc.RejectRequest(c.Request.Context(), c.Param("no"), body.Reason)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, request)
}

type disburseBody struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Method string          `json:"method" binding:"required"`
	Ref    string          `json:"ref"`
}

// DisburseRequest 登记发放
func (h *Handler) DisburseRequest(c *gin.Context) {
	var body disburseBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	request, err := h.svc.DisburseRequest(c.Request.Context(), c.Param("no"), body.Amount, body.Method, body.Ref)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, request)
}

// VoidRequest 管理员作废申请
func (h *Handler) VoidRequest(c *gin.Context) {
	var body reasonBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	request, err := h.svc.VoidRequest(c.Request.Context(), c.Param("no"), body.Reason)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, request)
}

type generatePlanBody struct {
	DisasterID string `json:"disaster_id" binding:"required"`
	PlanName   string `json:"plan_name"`
}

// GeneratePlan 生成发放计划
func (h *Handler) GeneratePlan(c *gin.Context) {
	var body generatePlanBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	plan, err := h.svc.GeneratePlan(c.Request.Context(), body.DisasterID, body.PlanName)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, plan)
}

// GetPlan 查询发放计划
func (h *Handler) GetPlan(c *gin.Context) {
	plan, err := h.svc.GetPlan(c.Request.Context(), c.Param("no"))
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, plan)
}

// ListPlans 查询某灾害的发放计划
func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.svc.ListPlans(c.Request.Context(), c.Query("disaster_id"))
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, plans)
}

func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 200 {
		size = 20
	}
	return page, size
}
