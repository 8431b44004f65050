package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/response"
	"github.com/wyfcoding/reliefledger/internal/fund/application"
	"github.com/wyfcoding/reliefledger/internal/fund/domain"
	"github.com/wyfcoding/reliefledger/pkg/actor"
)

// Handler 事件资金接口
type Handler struct {
	svc    *application.Service
	logger *slog.Logger
}

// NewHandler 创建事件资金处理器
func NewHandler(svc *application.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes 注册路由。资金与调拨的变更仅限财务专员与管理员，
// 总览对协调员开放。
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	funds := rg.Group("/incident-funds", actor.RequireRoles(actor.RoleFinanceOfficer, actor.RoleAdministrator))
	{
		funds.POST("", h.CreateFund)
		funds.GET("", h.ListFunds)
		funds.GET("/:no", h.GetFund)
		funds.PUT("/:no/adjustments", h.UpdateAdjustments)
		funds.POST("/:no/expenditures", h.RecordExpenditure)
	}

	expenditures := rg.Group("/incident-expenditures", actor.RequireRoles(actor.RoleFinanceOfficer, actor.RoleAdministrator))
	{
		expenditures.PUT("/:no/approve", h.ApproveExpenditure)
		expenditures.PUT("/:no/reject", h.RejectExpenditure)
	}

	adjustments := rg.Group("/adjustments", actor.RequireRoles(actor.RoleFinanceOfficer, actor.RoleCoordinator, actor.RoleAdministrator))
	{
		adjustments.POST("", h.RequestAdjustment)
		adjustments.GET("", h.ListAdjustments)
		// 表决的角色门禁在应用层：非必需角色的批准票是 403
		adjustments.PUT("/:no/approve", h.ApproveAdjustment)
		adjustments.PUT("/:no/reject", h.RejectAdjustment)
	}

	overview := rg.Group("/finance-v2", actor.RequireRoles(actor.RoleFinanceOfficer, actor.RoleCoordinator, actor.RoleAdministrator))
	{
		overview.GET("/overview", h.Overview)
		overview.GET("/envelopes", h.Envelopes)
		overview.PUT("/annual-budget",
			actor.RequireRoles(actor.RoleFinanceOfficer, actor.RoleAdministrator), h.SetAnnualBudget)
	}
}

func (h *Handler) replyError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrFundNotFound),
		errors.Is(err, domain.ErrEnvelopeNotFound),
		errors.Is(err, domain.ErrExpenditureNotFound),
		errors.Is(err, domain.ErrAdjustmentNotFound),
		errors.Is(err, domain.ErrProfileNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidFundAmount),
		errors.Is(err, domain.ErrUnknownHouseTier),
		errors.Is(err, domain.ErrInvalidHousingCost),
		errors.Is(err, domain.ErrAdjustmentBadRequest),
		errors.Is(err, domain.ErrFundOverrun),
		errors.Is(err, domain.ErrCategoryCapBreach),
		errors.Is(err, domain.ErrNoAnnualBudget):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrFundExists),
		errors.Is(err, domain.ErrFundClosed),
		errors.Is(err, domain.ErrInsufficientPool),
		errors.Is(err, domain.ErrExpenditureAlreadyApproved),
		errors.Is(err, domain.ErrExpenditureNotPending),
		errors.Is(err, domain.ErrAdjustmentDecided):
		status = http.StatusConflict
	default:
		h.logger.Error("incident fund request failed", "error", err)
	}
	response.ErrorWithStatus(c, status, err.Error(), "")
}

// CreateFund 建立事件资金
func (h *Handler) CreateFund(c *gin.Context) {
	var cmd application.CreateFundCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	fund, err := h.svc.CreateFund(c.Request.Context(), &cmd)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, fund)
}

// ListFunds 分页查询事件资金
func (h *Handler) ListFunds(c *gin.Context) {
	page, size := pagination(c)
	funds, total, err := h.svc.ListFunds(c.Request.Context(),
		domain.FundDisasterType(c.Query("disaster_type")), page, size)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, gin.H{"funds": funds, "total": total, "page": page, "size": size})
}

// GetFund 查询事件资金及其支出
func (h *Handler) GetFund(c *gin.Context) {
	fund, expenditures, err := h.svc.GetFund(c.Request.Context(), c.Param("no"))
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, gin.H{"fund": fund, "expenditures": expenditures})
}

// UpdateAdjustments 调整住房层级与受损耕地
func (h *Handler) UpdateAdjustments(c *gin.Context) {
	var cmd application.UpdateAdjustmentsCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	fund, err := h.svc.UpdateAdjustments(c.Request.Context(), c.Param("no"), &cmd)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, fund)
}

// RecordExpenditure 登记事件支出
func (h *Handler) RecordExpenditure(c *gin.Context) {
	var cmd application.RecordExpenditureCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	expenditure, err := h.svc.RecordExpenditure(c.Request.Context(), c.Param("no"), &cmd)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, expenditure)
}

// ApproveExpenditure 批准事件支出，返回重算后的资金
func (h *Handler) ApproveExpenditure(c *gin.Context) {
	result, err := h.svc.ApproveExpenditure(c.Request.Context(), c.Param("no"))
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, result)
}

// RejectExpenditure 驳回事件支出
func (h *Handler) RejectExpenditure(c *gin.Context) {
	expenditure, err := h.svc.RejectExpenditure(c.Request.Context(), c.Param("no"))
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, expenditure)
}

// RequestAdjustment 发起信封调拨申请
func (h *Handler) RequestAdjustment(c *gin.Context) {
	var cmd application.RequestAdjustmentCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	request, err := h.svc.RequestAdjustment(c.Request.Context(), &cmd)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, request)
}

// ListAdjustments 分页查询调拨申请
func (h *Handler) ListAdjustments(c *gin.Context) {
	page, size := pagination(c)
	requests, total, err := h.svc.ListAdjustments(c.Request.Context(), page, size)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, gin.H{"adjustments": requests, "total": total, "page": page, "size": size})
}

// ApproveAdjustment 投一票批准调拨
func (h *Handler) ApproveAdjustment(c *gin.Context) {
	a, _ := actor.FromContext(c.Request.Context())
	if !isRequiredApprovalRole(string(a.Role)) {
		response.ErrorWithStatus(c, http.StatusForbidden, "approval requires Finance Officer or Administrator", "")
		return
	}
	request, err := h.svc.ApproveAdjustment(c.Request.Context(), c.Param("no"))
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, request)
}

// RejectAdjustment 驳回调拨申请
func (h *Handler) RejectAdjustment(c *gin.Context) {
	a, _ := actor.FromContext(c.Request.Context())
	if !isRequiredApprovalRole(string(a.Role)) {
		response.ErrorWithStatus(c, http.StatusForbidden, "rejection requires Finance Officer or Administrator", "")
		return
	}
	request, err := h.svc.RejectAdjustment(c.Request.Context(), c.Param("no"))
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, request)
}

func isRequiredApprovalRole(role string) bool {
	for _, required := range domain.RequiredApprovalRoles() {
		if role == required {
			return true
		}
	}
	return false
}

// Overview 资金总览
func (h *Handler) Overview(c *gin.Context) {
	overview, err := h.svc.GetOverview(c.Request.Context())
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, overview)
}

// Envelopes 查询灾种信封，缺失的按最新年度预算补齐
func (h *Handler) Envelopes(c *gin.Context) {
	envelopes, err := h.svc.EnsureEnvelopes(c.Request.Context())
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, envelopes)
}

type annualBudgetBody struct {
	FiscalYear     string          `json:"fiscal_year" binding:"required"`
	TotalAllocated decimal.Decimal `json:"total_allocated" binding:"required"`
}

// SetAnnualBudget 设置年度预算
func (h *Handler) SetAnnualBudget(c *gin.Context) {
	var body annualBudgetBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	budget, err := h.svc.SetAnnualBudget(c.Request.Context(), body.FiscalYear, body.TotalAllocated)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, budget)
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
