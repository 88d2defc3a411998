package handler

import (
	"net/http"

	"cuentas/internal/middleware"
	"cuentas/internal/service"
	"cuentas/pkg/pagination"
	"cuentas/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/audit", middleware.RequireAuth(), h.ListLogs)
}

// ListLogs returns a paginated audit trail of ledger mutations
// @Summary      List audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        entity_id  query  string  false  "Scope to one ledger entry"
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Paged}
// @Failure      500    {object}  response.Response
// @Router       /api/audit [get]
func (h *AuditHandler) ListLogs(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.auditService.ListLogs(c.Request.Context(), c.Query("entity_id"), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Paged{
		Items: logs,
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
	}))
}
