package handler

import (
	"context"
	"time"

	appfx "github.com/finadmin/backend/internal/application/fx"
	"github.com/finadmin/backend/internal/domain/fx"
	"github.com/finadmin/backend/internal/domain/shared"
	"github.com/finadmin/backend/internal/domain/shared/valueobject"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// RateLookup resolves single rates and full rate tables
type RateLookup interface {
	GetRate(ctx context.Context, base, quote valueobject.Currency, asOf time.Time) (fx.Quote, error)
	GetExchangeRates(ctx context.Context, base valueobject.Currency) (*appfx.ExchangeRates, error)
}

// Converter converts amounts between currencies
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to valueobject.Currency) (*appfx.Conversion, error)
}

// RateRefresher runs the daily rate refresh
type RateRefresher interface {
	Refresh(ctx context.Context, force bool) (*appfx.RefreshResult, error)
}

// FXHandler handles exchange rate endpoints
type FXHandler struct {
	BaseHandler
	rates     RateLookup
	converter Converter
	refresher RateRefresher
}

// NewFXHandler creates a new FXHandler
func NewFXHandler(rates RateLookup, converter Converter, refresher RateRefresher) *FXHandler {
	return &FXHandler{
		rates:     rates,
		converter: converter,
		refresher: refresher,
	}
}

// RateQuery selects one rate
type RateQuery struct {
	Base  string `form:"base" binding:"required,iso4217"`
	Quote string `form:"quote" binding:"required,iso4217"`
	Date  string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// ConvertRequest converts an amount between two currencies
type ConvertRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	From   string          `json:"from" binding:"required,iso4217"`
	To     string          `json:"to" binding:"required,iso4217"`
}

// GetRates godoc
// @Summary      Get the rate table for a base currency
// @Tags         fx
// @Produce      json
// @Param        base query string false "Base currency" default(USD)
// @Success      200 {object} dto.Response{data=appfx.ExchangeRates}
// @Router       /fx/rates [get]
func (h *FXHandler) GetRates(c *gin.Context) {
	base := valueobject.USD
	if raw := c.Query("base"); raw != "" {
		parsed, err := valueobject.ParseCurrency(raw)
		if err != nil {
			h.HandleError(c, shared.ErrInvalidCurrency)
			return
		}
		base = parsed
	}

	rates, err := h.rates.GetExchangeRates(c.Request.Context(), base)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rates)
}

// GetRate godoc
// @Summary      Get one exchange rate
// @Tags         fx
// @Produce      json
// @Param        base  query string true  "Base currency"
// @Param        quote query string true  "Quote currency"
// @Param        date  query string false "Rate date (YYYY-MM-DD), default today"
// @Success      200 {object} dto.Response{data=fx.Quote}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /fx/rate [get]
func (h *FXHandler) GetRate(c *gin.Context) {
	var q RateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	asOf := time.Now().UTC()
	if q.Date != "" {
		asOf, _ = time.Parse(time.DateOnly, q.Date)
	}
	base, _ := valueobject.ParseCurrency(q.Base)
	quote, _ := valueobject.ParseCurrency(q.Quote)

	rate, err := h.rates.GetRate(c.Request.Context(), base, quote, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rate)
}

// Convert godoc
// @Summary      Convert an amount between currencies at today's rate
// @Tags         fx
// @Accept       json
// @Produce      json
// @Param        request body ConvertRequest true "Conversion"
// @Success      200 {object} dto.Response{data=appfx.Conversion}
// @Router       /fx/convert [post]
func (h *FXHandler) Convert(c *gin.Context) {
	var req ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	from, _ := valueobject.ParseCurrency(req.From)
	to, _ := valueobject.ParseCurrency(req.To)

	conversion, err := h.converter.Convert(c.Request.Context(), req.Amount, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, conversion)
}

// Refresh godoc
// @Summary      Refresh today's rates from the rate API
// @Description  Idempotent: a no-op when today's rates are already stored unless force=true
// @Tags         fx
// @Produce      json
// @Param        force query bool false "Refetch even if today's rates exist"
// @Success      200 {object} dto.Response{data=appfx.RefreshResult}
// @Router       /fx/refresh [post]
func (h *FXHandler) Refresh(c *gin.Context) {
	force := c.Query("force") == "true"
	result, err := h.refresher.Refresh(c.Request.Context(), force)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
