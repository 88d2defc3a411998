package service

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"cuentas/internal/model"
	"cuentas/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateCounterpartyRequest struct {
	Name          string `json:"name" binding:"required"`
	Type          string `json:"type" binding:"required,oneof=CUSTOMER SUPPLIER BOTH"`
	TaxID         string `json:"tax_id"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
}

type UpdateCounterpartyRequest struct {
	Name          *string `json:"name"`
	Type          *string `json:"type"`
	TaxID         *string `json:"tax_id"`
	ContactPerson *string `json:"contact_person"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	IsActive      *bool   `json:"is_active"`
}

type CounterpartyResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	TaxID         string    `json:"tax_id"`
	ContactPerson string    `json:"contact_person"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// --- Interface ---

type CounterpartyService interface {
	CreateCounterparty(ctx context.Context, req CreateCounterpartyRequest) (CounterpartyResponse, error)
	UpdateCounterparty(ctx context.Context, id string, req UpdateCounterpartyRequest) (CounterpartyResponse, error)
	DeleteCounterparty(ctx context.Context, id string) error
	GetCounterparties(ctx context.Context, cpType, search string, page, limit int) ([]CounterpartyResponse, int64, error)
}

type counterpartyService struct {
	counterpartyRepo repository.CounterpartyRepository
}

func NewCounterpartyService(counterpartyRepo repository.CounterpartyRepository) CounterpartyService {
	return &counterpartyService{counterpartyRepo: counterpartyRepo}
}

// --- Validation helpers ---

var validCounterpartyTypes = map[string]bool{
	model.CounterpartyCustomer: true,
	model.CounterpartySupplier: true,
	model.CounterpartyBoth:     true,
}

func validateCounterpartyEmail(email string) error {
	if email == "" {
		return nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}
	return nil
}

// --- Implementation ---

func (s *counterpartyService) CreateCounterparty(ctx context.Context, req CreateCounterpartyRequest) (CounterpartyResponse, error) {
	if err := validateCounterpartyEmail(req.Email); err != nil {
		return CounterpartyResponse{}, err
	}

	cp := model.Counterparty{
		Name:          req.Name,
		Type:          req.Type,
		TaxID:         req.TaxID,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		IsActive:      true,
	}
	if err := s.counterpartyRepo.Create(ctx, &cp); err != nil {
		return CounterpartyResponse{}, fmt.Errorf("failed to create counterparty: %w", err)
	}
	return toCounterpartyResponse(cp), nil
}

func (s *counterpartyService) UpdateCounterparty(ctx context.Context, id string, req UpdateCounterpartyRequest) (CounterpartyResponse, error) {
	cpID, err := uuid.Parse(id)
	if err != nil {
		return CounterpartyResponse{}, fmt.Errorf("invalid counterparty id: %w", err)
	}

	cp, err := s.counterpartyRepo.FindByID(ctx, cpID)
	if err != nil {
		return CounterpartyResponse{}, fmt.Errorf("counterparty not found: %w", err)
	}

	if req.Type != nil {
		if !validCounterpartyTypes[*req.Type] {
			return CounterpartyResponse{}, fmt.Errorf("type must be one of: CUSTOMER, SUPPLIER, BOTH")
		}
		cp.Type = *req.Type
	}
	if req.Name != nil {
		cp.Name = *req.Name
	}
	if req.TaxID != nil {
		cp.TaxID = *req.TaxID
	}
	if req.ContactPerson != nil {
		cp.ContactPerson = *req.ContactPerson
	}
	if req.Phone != nil {
		cp.Phone = *req.Phone
	}
	if req.Email != nil {
		if err := validateCounterpartyEmail(*req.Email); err != nil {
			return CounterpartyResponse{}, err
		}
		cp.Email = *req.Email
	}
	if req.IsActive != nil {
		cp.IsActive = *req.IsActive
	}

	if err := s.counterpartyRepo.Update(ctx, cp); err != nil {
		return CounterpartyResponse{}, fmt.Errorf("failed to update counterparty: %w", err)
	}
	return toCounterpartyResponse(*cp), nil
}

func (s *counterpartyService) DeleteCounterparty(ctx context.Context, id string) error {
	cpID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid counterparty id: %w", err)
	}
	if _, err := s.counterpartyRepo.FindByID(ctx, cpID); err != nil {
		return fmt.Errorf("counterparty not found: %w", err)
	}
	return s.counterpartyRepo.Delete(ctx, cpID)
}

func (s *counterpartyService) GetCounterparties(ctx context.Context, cpType, search string, page, limit int) ([]CounterpartyResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	cps, total, err := s.counterpartyRepo.List(ctx, cpType, search, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch counterparties: %w", err)
	}

	result := make([]CounterpartyResponse, 0, len(cps))
	for _, cp := range cps {
		result = append(result, toCounterpartyResponse(cp))
	}
	return result, total, nil
}

// --- Mapping ---

func toCounterpartyResponse(cp model.Counterparty) CounterpartyResponse {
	return CounterpartyResponse{
		ID:            cp.ID,
		Name:          cp.Name,
		Type:          cp.Type,
		TaxID:         cp.TaxID,
		ContactPerson: cp.ContactPerson,
		Phone:         cp.Phone,
		Email:         cp.Email,
		IsActive:      cp.IsActive,
		CreatedAt:     cp.CreatedAt,
		UpdatedAt:     cp.UpdatedAt,
	}
}
