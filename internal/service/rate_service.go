package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"cuentas/internal/model"
	"cuentas/internal/repository"

	"github.com/shopspring/decimal"
)

// RateGateway is the boundary to the external exchange-rate feed. The core
// consumes its result shape and never mutates it.
type RateGateway interface {
	FetchDaily(ctx context.Context) (*model.ExchangeRate, error)
}

type httpRateGateway struct {
	feedURL string
	client  *http.Client
}

// NewHTTPRateGateway talks to the configured daily-rate feed.
func NewHTTPRateGateway(feedURL string) RateGateway {
	return &httpRateGateway{
		feedURL: feedURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type rateFeedPayload struct {
	ReferenceRate string `json:"reference_rate"`
	BuyRate       string `json:"buy_rate"`
	SellRate      string `json:"sell_rate"`
	AsOfDate      string `json:"as_of_date"`
	Source        string `json:"source"`
}

func (g *httpRateGateway) FetchDaily(ctx context.Context) (*model.ExchangeRate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rate request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rate feed unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate feed returned status %d", resp.StatusCode)
	}

	var payload rateFeedPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("malformed rate payload: %w", err)
	}

	reference, err := decimal.NewFromString(payload.ReferenceRate)
	if err != nil {
		return nil, fmt.Errorf("malformed reference_rate: %w", err)
	}
	if reference.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("reference_rate must be greater than 0")
	}

	asOf, err := time.Parse("2006-01-02", payload.AsOfDate)
	if err != nil {
		return nil, fmt.Errorf("malformed as_of_date: %w", err)
	}

	rate := &model.ExchangeRate{
		ReferenceRate: reference,
		AsOfDate:      asOf,
		Source:        payload.Source,
	}
	if payload.BuyRate != "" {
		if buy, parseErr := decimal.NewFromString(payload.BuyRate); parseErr == nil {
			rate.BuyRate = decimal.NewNullDecimal(buy)
		}
	}
	if payload.SellRate != "" {
		if sell, parseErr := decimal.NewFromString(payload.SellRate); parseErr == nil {
			rate.SellRate = decimal.NewNullDecimal(sell)
		}
	}
	return rate, nil
}

// --- DTOs ---

type RateResponse struct {
	ReferenceRate string  `json:"reference_rate"`
	BuyRate       *string `json:"buy_rate"`
	SellRate      *string `json:"sell_rate"`
	AsOfDate      string  `json:"as_of_date"`
	Source        string  `json:"source"`
}

type ConvertRequest struct {
	Value string `json:"value" binding:"required"`
	From  string `json:"from" binding:"required,oneof=GTQ USD"`
	To    string `json:"to" binding:"required,oneof=GTQ USD"`
}

// ConvertResponse reports the outcome of a best-effort conversion. When
// ConversionApplied is false the value passed through untouched (missing
// rate or non-positive value) and the console should warn without blocking.
type ConvertResponse struct {
	Value             string `json:"value"`
	Currency          string `json:"currency"`
	ConversionApplied bool   `json:"conversion_applied"`
	ReferenceRate     string `json:"reference_rate,omitempty"`
	RateSource        string `json:"rate_source,omitempty"`
	RateDate          string `json:"rate_date,omitempty"`
}

// --- Interface ---

type RateService interface {
	CurrentRate(ctx context.Context, force bool) (RateResponse, error)
	Convert(ctx context.Context, req ConvertRequest) (ConvertResponse, error)
}

type rateService struct {
	gateway  RateGateway
	rateRepo repository.RateRepository

	mu       sync.Mutex
	cached   *model.ExchangeRate
	cachedAt time.Time
}

const rateCacheTTL = time.Hour

func NewRateService(gateway RateGateway, rateRepo repository.RateRepository) RateService {
	return &rateService{gateway: gateway, rateRepo: rateRepo}
}

// --- Implementation ---

func (s *rateService) CurrentRate(ctx context.Context, force bool) (RateResponse, error) {
	rate, err := s.currentRate(ctx, force)
	if err != nil {
		return RateResponse{}, err
	}
	return toRateResponse(rate), nil
}

func (s *rateService) currentRate(ctx context.Context, force bool) (*model.ExchangeRate, error) {
	s.mu.Lock()
	if !force && s.cached != nil && time.Since(s.cachedAt) < rateCacheTTL {
		cached := s.cached
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	rate, err := s.gateway.FetchDaily(ctx)
	if err != nil {
		// Feed down: the last persisted rate beats no rate at all.
		if fallback, repoErr := s.rateRepo.FindLatest(ctx); repoErr == nil {
			return fallback, nil
		}
		return nil, fmt.Errorf("exchange rate unavailable: %w", err)
	}

	if err := s.rateRepo.Upsert(ctx, rate); err != nil {
		return nil, fmt.Errorf("failed to store rate: %w", err)
	}

	s.mu.Lock()
	s.cached = rate
	s.cachedAt = time.Now()
	s.mu.Unlock()

	return rate, nil
}

func (s *rateService) Convert(ctx context.Context, req ConvertRequest) (ConvertResponse, error) {
	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		return ConvertResponse{}, fmt.Errorf("invalid value: %w", err)
	}
	amount, err := model.NewMoneyAmount(value, req.From)
	if err != nil {
		return ConvertResponse{}, err
	}

	// Best-effort: a missing rate must never block data entry.
	rate, _ := s.currentRate(ctx, false)

	converted, applied := model.Convert(amount, req.To, rate)
	resp := ConvertResponse{
		Value:             converted.Display(),
		Currency:          converted.Currency,
		ConversionApplied: applied,
	}
	if applied && rate != nil {
		resp.ReferenceRate = rate.ReferenceRate.StringFixed(6)
		resp.RateSource = rate.Source
		resp.RateDate = rate.AsOfDate.Format("2006-01-02")
	}
	return resp, nil
}

// --- Mapping ---

func toRateResponse(rate *model.ExchangeRate) RateResponse {
	resp := RateResponse{
		ReferenceRate: rate.ReferenceRate.StringFixed(6),
		AsOfDate:      rate.AsOfDate.Format("2006-01-02"),
		Source:        rate.Source,
	}
	if rate.BuyRate.Valid {
		buy := rate.BuyRate.Decimal.StringFixed(6)
		resp.BuyRate = &buy
	}
	if rate.SellRate.Valid {
		sell := rate.SellRate.Decimal.StringFixed(6)
		resp.SellRate = &sell
	}
	return resp
}
