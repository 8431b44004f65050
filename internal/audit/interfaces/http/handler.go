package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/response"
	"github.com/wyfcoding/reliefledger/internal/audit/application"
	"github.com/wyfcoding/reliefledger/internal/audit/domain"
	"github.com/wyfcoding/reliefledger/pkg/actor"
)

// Handler 审计查询接口
type Handler struct {
	svc    *application.Service
	logger *slog.Logger
}

// NewHandler 创建审计处理器
func NewHandler(svc *application.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes 注册路由。审计轨迹仅限财务专员与管理员查看。
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	audit := rg.Group("/auditlogs", actor.RequireRoles(actor.RoleFinanceOfficer, actor.RoleAdministrator))
	{
		audit.GET("", h.ListEntries)
		audit.GET("/:disasterId", h.GetDisasterTrail)
		audit.GET("/entity/:id/:type", h.GetEntityTrail)
		audit.GET("/actor/:id", h.GetActorTrail)
	}
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

// ListEntries 分页查询审计条目
func (h *Handler) ListEntries(c *gin.Context) {
	page, size := pagination(c)
	action := domain.ActionType(c.Query("action"))
	entityType := c.Query("entity_type")

	entries, total, err := h.svc.ListEntries(c.Request.Context(), action, entityType, page, size)
	if err != nil {
		h.logger.Error("failed to list audit entries", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, gin.H{"entries": entries, "total": total, "page": page, "size": size})
}

// GetDisasterTrail 查询某灾害事件的审计轨迹
func (h *Handler) GetDisasterTrail(c *gin.Context) {
	page, size := pagination(c)
	entries, total, err := h.svc.GetDisasterTrail(c.Request.Context(), c.Param("disasterId"), page, size)
	if err != nil {
		h.logger.Error("failed to get disaster trail", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, gin.H{"entries": entries, "total": total, "page": page, "size": size})
}

// GetEntityTrail 查询某实体的审计轨迹
func (h *Handler) GetEntityTrail(c *gin.Context) {
	page, size := pagination(c)
	entries, total, err := h.svc.GetEntityTrail(c.Request.Context(), c.Param("type"), c.Param("id"), page, size)
	if err != nil {
		h.logger.Error("failed to get entity trail", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, gin.H{"entries": entries, "total": total, "page": page, "size": size})
}

// GetActorTrail 查询某操作者的审计轨迹
func (h *Handler) GetActorTrail(c *gin.Context) {
	page, size := pagination(c)
	entries, total, err := h.svc.GetActorTrail(c.Request.Context(), c.Param("id"), page, size)
	if err != nil {
		h.logger.Error("failed to get actor trail", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, gin.H{"entries": entries, "total": total, "page": page, "size": size})
}
