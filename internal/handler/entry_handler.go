package handler

import (
	"net/http"

	"cuentas/internal/middleware"
	"cuentas/internal/service"
	"cuentas/pkg/pagination"
	"cuentas/pkg/response"

	"github.com/gin-gonic/gin"
)

type EntryHandler struct {
	entryService service.EntryService
}

func NewEntryHandler(entryService service.EntryService) *EntryHandler {
	return &EntryHandler{entryService: entryService}
}

func (h *EntryHandler) RegisterRoutes(router *gin.RouterGroup) {
	entries := router.Group("/api/entries")
	{
		entries.POST("", middleware.RequireAuth(), h.CreateEntry)
		entries.GET("", middleware.OptionalAuth(), h.ListEntries)
		entries.GET("/:id", middleware.OptionalAuth(), h.GetEntry)
		entries.POST("/:id/pay", middleware.RequireAuth(), h.PayEntry)
		entries.POST("/:id/collect", middleware.RequireAuth(), h.CollectEntry)
		entries.POST("/:id/void", middleware.RequireAuth(), h.VoidEntry)
		entries.PUT("/:id/invoice", middleware.RequireAuth(), h.SaveInvoiceFields)
		entries.POST("/check-duplicate", middleware.OptionalAuth(), h.CheckDuplicate)
	}
}

func userIDFromContext(c *gin.Context) string {
	userID, _ := c.Get("userID")
	userIDStr, _ := userID.(string)
	return userIDStr
}

// CreateEntry creates a new accounts-payable or accounts-receivable entry
// @Summary      Create ledger entry
// @Description  Creates a CXP or CXC entry with status OPEN and balance equal to the amount
// @Tags         entries
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateEntryRequest  true  "Create Entry Payload"
// @Success      201      {object}  response.Response{data=service.EntryResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/entries [post]
func (h *EntryHandler) CreateEntry(c *gin.Context) {
	var req service.CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	entry, err := h.entryService.CreateEntry(c.Request.Context(), userIDFromContext(c), req)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, entry))
}

// ListEntries returns a paginated list of ledger entries
// @Summary      List ledger entries
// @Description  Retrieves entries filtered by direction, status and counterparty
// @Tags         entries
// @Produce      json
// @Param        direction        query     string  false  "CXP or CXC"
// @Param        status           query     string  false  "OPEN, SETTLED or VOID"
// @Param        counterparty_id  query     string  false  "Counterparty UUID"
// @Param        page             query     int     false  "Page number (default 1)"
// @Param        limit            query     int     false  "Items per page (default 20)"
// @Success      200              {object}  response.Response{data=response.Paged}
// @Failure      500              {object}  response.Response
// @Router       /api/entries [get]
func (h *EntryHandler) ListEntries(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.EntryFilter{
		Direction:      c.Query("direction"),
		Status:         c.Query("status"),
		CounterpartyID: c.Query("counterparty_id"),
		Page:           params.Page,
		Limit:          params.Limit,
	}

	entries, total, err := h.entryService.ListEntries(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Paged{
		Items: entries,
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
	}))
}

// GetEntry returns a single ledger entry
// @Summary      Get ledger entry
// @Tags         entries
// @Produce      json
// @Param        id   path      string  true  "Entry ID"
// @Success      200  {object}  response.Response{data=service.EntryResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/entries/{id} [get]
func (h *EntryHandler) GetEntry(c *gin.Context) {
	entry, err := h.entryService.GetEntry(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, entry))
}

// PayEntry applies a payment to an open payable
// @Summary      Pay entry
// @Description  Reduces the balance of an OPEN CXP entry; settles it when the balance reaches zero
// @Tags         entries
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Entry ID"
// @Param        payload  body      service.SettleEntryRequest  true  "Payment Payload"
// @Success      200      {object}  response.Response{data=service.EntryResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/entries/{id}/pay [post]
func (h *EntryHandler) PayEntry(c *gin.Context) {
	var req service.SettleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	entry, err := h.entryService.Pay(c.Request.Context(), c.Param("id"), userIDFromContext(c), req)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, entry))
}

// CollectEntry applies a collection to an open receivable
// @Summary      Collect entry
// @Description  Reduces the balance of an OPEN CXC entry; settles it when the balance reaches zero
// @Tags         entries
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Entry ID"
// @Param        payload  body      service.SettleEntryRequest  true  "Collection Payload"
// @Success      200      {object}  response.Response{data=service.EntryResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/entries/{id}/collect [post]
func (h *EntryHandler) CollectEntry(c *gin.Context) {
	var req service.SettleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	entry, err := h.entryService.Collect(c.Request.Context(), c.Param("id"), userIDFromContext(c), req)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, entry))
}

// VoidEntry voids an open entry, keeping its balance for the audit trail
// @Summary      Void entry
// @Tags         entries
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Entry ID"
// @Success      200  {object}  response.Response{data=service.EntryResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/entries/{id}/void [post]
func (h *EntryHandler) VoidEntry(c *gin.Context) {
	entry, err := h.entryService.Void(c.Request.Context(), c.Param("id"), userIDFromContext(c))
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, entry))
}

// SaveInvoiceFields edits the supplier-invoice fields of a payable entry
// @Summary      Save supplier invoice fields
// @Description  Updates number, date, observations and exchange-rate fields; runs the duplicate guard on the number
// @Tags         entries
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Entry ID"
// @Param        payload  body      service.SaveInvoiceRequest  true  "Invoice Fields Payload"
// @Success      200      {object}  response.Response{data=service.EntryResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/entries/{id}/invoice [put]
func (h *EntryHandler) SaveInvoiceFields(c *gin.Context) {
	var req service.SaveInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	entry, err := h.entryService.SaveInvoiceFields(c.Request.Context(), c.Param("id"), userIDFromContext(c), req)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, entry))
}

// CheckDuplicate runs the advisory duplicate-invoice lookup
// @Summary      Check duplicate invoice
// @Description  Reports whether another active payable of the counterparty already uses the invoice number
// @Tags         entries
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CheckDuplicateRequest  true  "Check Payload"
// @Success      200      {object}  response.Response{data=service.DuplicateResult}
// @Failure      400      {object}  response.Response
// @Router       /api/entries/check-duplicate [post]
func (h *EntryHandler) CheckDuplicate(c *gin.Context) {
	var req service.CheckDuplicateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.entryService.CheckDuplicate(c.Request.Context(), req)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
