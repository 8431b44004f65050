package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/response"
	"github.com/wyfcoding/reliefledger/internal/finance/application"
	"github.com/wyfcoding/reliefledger/internal/finance/domain"
	"github.com/wyfcoding/reliefledger/pkg/actor"
)

// Handler 财务台账接口
type Handler struct {
	budgets  *application.BudgetService
	expenses *application.ExpenseService
	logger   *slog.Logger
}

// NewHandler 创建财务台账处理器
func NewHandler(budgets *application.BudgetService, expenses *application.ExpenseService, logger *slog.Logger) *Handler {
	return &Handler{budgets: budgets, expenses: expenses, logger: logger}
}

// RegisterRoutes 注册路由。预算与支出的变更仅限财务专员与管理员。
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	budgets := rg.Group("/budgets", actor.RequireRoles(actor.RoleFinanceOfficer, actor.RoleAdministrator))
	{
		budgets.POST("", h.CreateBudget)
		budgets.GET("", h.ListBudgets)
		budgets.GET("/:no", h.GetBudget)
		budgets.PUT("/:no/approve", h.ApproveBudget)
		budgets.PUT("/:no/reject", h.RejectBudget)
		budgets.PUT("/:no/void", h.VoidBudget)
	}

	expenses := rg.Group("/expenses", actor.RequireRoles(actor.RoleFinanceOfficer, actor.RoleAdministrator))
	{
		expenses.POST("", h.CreateExpense)
		expenses.GET("", h.ListExpenses)
		expenses.GET("/:no", h.GetExpense)
		expenses.PUT("/:no/approve", h.ApproveExpense)
		expenses.PUT("/:no/reject", h.RejectExpense)
		expenses.PUT("/:no/void", h.VoidExpense)
	}

	rg.GET("/finance/utilization/:disasterId",
		actor.RequireRoles(actor.RoleFinanceOfficer, actor.RoleCoordinator, actor.RoleAdministrator),
		h.BudgetUtilization)
}

func (h *Handler) replyError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrBudgetNotFound),
		errors.Is(err, domain.ErrExpenseNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidCategory),
		errors.Is(err, domain.ErrReasonRequired),
		errors.Is(err, domain.ErrNoApprovedBudget),
		errors.Is(err, domain.ErrBudgetExceeded),
		errors.Is(err, domain.ErrDocumentRequired):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrBudgetExists),
		errors.Is(err, domain.ErrBudgetAlreadyApproved),
		errors.Is(err, domain.ErrBudgetAlreadyVoided),
		errors.Is(err, domain.ErrBudgetFrozen),
		errors.Is(err, domain.ErrDuplicateInvoice),
		errors.Is(err, domain.ErrExpenseAlreadyApproved),
		errors.Is(err, domain.ErrExpenseAlreadyVoided),
		errors.Is(err, domain.ErrExpenseNotPending):
		status = http.StatusConflict
	default:
		h.logger.Error("finance request failed", "error", err)
	}
	response.ErrorWithStatus(c, status, err.Error(), "")
}

type reasonBody struct {
	Reason string `json:"reason" binding:"required"`
}

// CreateBudget 创建预算分配
func (h *Handler) CreateBudget(c *gin.Context) {
	var cmd application.CreateBudgetCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	budget, err := h.budgets.CreateBudget(c.Request.Context(), &cmd)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, budget)
}

// ListBudgets 分页查询预算
func (h *Handler) ListBudgets(c *gin.Context) {
	page, size := pagination(c)
	budgets, total, err := h.budgets.ListBudgets(c.Request.Context(),
		c.Query("disaster_id"), domain.ApprovalStatus(c.Query("status")), page, size)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, gin.H{"budgets": budgets, "total": total, "page": page, "size": size})
}

// GetBudget 查询预算
func (h *Handler) GetBudget(c *gin.Context) {
	budget, err := h.budgets.GetBudget(c.Request.Context(), c.Param("no"))
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, budget)
}

// ApproveBudget 批准预算
func (h *Handler) ApproveBudget(c *gin.Context) {
	budget, err := h.budgets.ApproveBudget(c.Request.Context(), c.Param("no"))
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, budget)
}

// RejectBudget 驳回预算
func (h *Handler) RejectBudget(c *gin.Context) {
	var body reasonBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	budget, err := h.budgets.RejectBudget(c.Request.Context(), c.Param("no"), body.Reason)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, budget)
}

// VoidBudget 作废预算
func (h *Handler) VoidBudget(c *gin.Context) {
	var body reasonBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	budget, err := h.budgets.VoidBudget(c.Request.Context(), c.Param("no"), body.Reason)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, budget)
}

// CreateExpense 登记支出
func (h *Handler) CreateExpense(c *gin.Context) {
	var cmd application.CreateExpenseCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	expense, err := h.expenses.CreateExpense(c.Request.Context(), &cmd)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, expense)
}

// ListExpenses 分页查询支出
func (h *Handler) ListExpenses(c *gin.Context) {
	page, size := pagination(c)
	expenses, total, err := h.expenses.ListExpenses(c.Request.Context(),
		c.Query("disaster_id"), c.Query("category"), domain.ApprovalStatus(c.Query("status")), page, size)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, gin.H{"expenses": expenses, "total": total, "page": page, "size": size})
}

// GetExpense 查询支出
func (h *Handler) GetExpense(c *gin.Context) {
	expense, err := h.expenses.GetExpense(c.Request.Context(), c.Param("no"))
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, expense)
}

// ApproveExpense 批准支出，返回重算后的剩余预算
func (h *Handler) ApproveExpense(c *gin.Context) {
	result, err := h.expenses.ApproveExpense(c.Request.Context(), c.Param("no"))
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, result)
}

// RejectExpense 驳回支出
func (h *Handler) RejectExpense(c *gin.Context) {
	var body reasonBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	expense, err := h.expenses.RejectExpense(c.Request.Context(), c.Param("no"), body.Reason)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, expense)
}

// VoidExpense 作废支出
func (h *Handler) VoidExpense(c *gin.Context) {
	var body reasonBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	expense, err := h.expenses.VoidExpense(c.Request.Context(), c.Param("no"), body.Reason)
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, expense)
}

// BudgetUtilization 某灾害各科目预算执行情况
func (h *Handler) BudgetUtilization(c *gin.Context) {
	summaries, err := h.expenses.BudgetUtilization(c.Request.Context(), c.Param("disasterId"))
	if err != nil {
		h.replyError(c, err)
		return
	}
	response.Success(c, summaries)
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
