package handler

import (
	"net/http"

	"cuentas/internal/middleware"
	"cuentas/internal/service"
	"cuentas/pkg/response"

	"github.com/gin-gonic/gin"
)

type RateHandler struct {
	rateService service.RateService
}

func NewRateHandler(rateService service.RateService) *RateHandler {
	return &RateHandler{rateService: rateService}
}

func (h *RateHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/rates/current", middleware.OptionalAuth(), h.GetCurrentRate)
	router.POST("/api/convert", middleware.OptionalAuth(), h.Convert)
}

// GetCurrentRate returns the day's reference exchange rate
// @Summary      Get current exchange rate
// @Description  Fetches the daily GTQ/USD rate from the feed, cached; pass force=true to bypass the cache
// @Tags         rates
// @Produce      json
// @Param        force  query     bool  false  "Bypass the cached rate"
// @Success      200    {object}  response.Response{data=service.RateResponse}
// @Failure      502    {object}  response.Response
// @Router       /api/rates/current [get]
func (h *RateHandler) GetCurrentRate(c *gin.Context) {
	force := c.Query("force") == "true"

	rate, err := h.rateService.CurrentRate(c.Request.Context(), force)
	if err != nil {
		c.JSON(http.StatusBadGateway, response.Error(http.StatusBadGateway, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rate))
}

// Convert converts a monetary value between GTQ and USD
// @Summary      Convert amount
// @Description  Best-effort conversion using the day's reference rate; conversion_applied=false means the value passed through unconverted
// @Tags         rates
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ConvertRequest  true  "Convert Payload"
// @Success      200      {object}  response.Response{data=service.ConvertResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/convert [post]
func (h *RateHandler) Convert(c *gin.Context) {
	var req service.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.rateService.Convert(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
