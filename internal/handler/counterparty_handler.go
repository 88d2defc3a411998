package handler

import (
	"net/http"

	"cuentas/internal/middleware"
	"cuentas/internal/service"
	"cuentas/pkg/pagination"
	"cuentas/pkg/response"

	"github.com/gin-gonic/gin"
)

type CounterpartyHandler struct {
	counterpartyService service.CounterpartyService
}

func NewCounterpartyHandler(counterpartyService service.CounterpartyService) *CounterpartyHandler {
	return &CounterpartyHandler{counterpartyService: counterpartyService}
}

func (h *CounterpartyHandler) RegisterRoutes(router *gin.RouterGroup) {
	counterparties := router.Group("/api/counterparties")
	{
		counterparties.POST("", middleware.RequireAuth(), h.CreateCounterparty)
		counterparties.GET("", middleware.OptionalAuth(), h.ListCounterparties)
		counterparties.PUT("/:id", middleware.RequireAuth(), h.UpdateCounterparty)
		counterparties.DELETE("/:id", middleware.RequireAuth(), h.DeleteCounterparty)
	}
}

// CreateCounterparty creates a supplier or customer
// @Summary      Create counterparty
// @Tags         counterparties
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateCounterpartyRequest  true  "Create Counterparty Payload"
// @Success      201      {object}  response.Response{data=service.CounterpartyResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/counterparties [post]
func (h *CounterpartyHandler) CreateCounterparty(c *gin.Context) {
	var req service.CreateCounterpartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	cp, err := h.counterpartyService.CreateCounterparty(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, cp))
}

// ListCounterparties returns a paginated list of counterparties
// @Summary      List counterparties
// @Tags         counterparties
// @Produce      json
// @Param        type    query     string  false  "CUSTOMER, SUPPLIER or BOTH"
// @Param        search  query     string  false  "Match on name, tax id or email"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=response.Paged}
// @Failure      500     {object}  response.Response
// @Router       /api/counterparties [get]
func (h *CounterpartyHandler) ListCounterparties(c *gin.Context) {
	params := pagination.Parse(c)

	cps, total, err := h.counterpartyService.GetCounterparties(
		c.Request.Context(), c.Query("type"), c.Query("search"), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Paged{
		Items: cps,
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
	}))
}

// UpdateCounterparty updates an existing counterparty
// @Summary      Update counterparty
// @Tags         counterparties
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                             true  "Counterparty ID"
// @Param        payload  body      service.UpdateCounterpartyRequest  true  "Update Counterparty Payload"
// @Success      200      {object}  response.Response{data=service.CounterpartyResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/counterparties/{id} [put]
func (h *CounterpartyHandler) UpdateCounterparty(c *gin.Context) {
	var req service.UpdateCounterpartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	cp, err := h.counterpartyService.UpdateCounterparty(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, cp))
}

// DeleteCounterparty soft-deletes a counterparty
// @Summary      Delete counterparty
// @Tags         counterparties
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Counterparty ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/counterparties/{id} [delete]
func (h *CounterpartyHandler) DeleteCounterparty(c *gin.Context) {
	if err := h.counterpartyService.DeleteCounterparty(c.Request.Context(), c.Param("id")); err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, nil))
}
