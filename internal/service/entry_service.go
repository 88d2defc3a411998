package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cuentas/internal/model"
	"cuentas/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrDuplicateInvoice signals that another active payable for the same
// supplier already carries the invoice number being saved.
var ErrDuplicateInvoice = errors.New("duplicate supplier invoice number")

// --- DTOs ---

type CreateEntryRequest struct {
	Direction        string `json:"direction" binding:"required,oneof=CXP CXC"`
	CounterpartyID   string `json:"counterparty_id" binding:"required"`
	LinkedDocumentID string `json:"linked_document_id"` // purchase order / sales invoice
	DueDate          string `json:"due_date" binding:"required"` // YYYY-MM-DD
	Currency         string `json:"currency" binding:"required,oneof=GTQ USD"`
	Amount           string `json:"amount" binding:"required"`
}

type SettleEntryRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// SaveInvoiceRequest edits the supplier-invoice fields of a payable.
// Pointer fields distinguish "not sent" from "clear".
type SaveInvoiceRequest struct {
	Number           *string `json:"number"`
	Date             *string `json:"date"` // YYYY-MM-DD
	AttachmentURL    *string `json:"attachment_url"`
	Observations     *string `json:"observations"`
	ExchangeRateUsed *string `json:"exchange_rate_used"`
}

type CheckDuplicateRequest struct {
	EntryID        string `json:"entry_id"`
	CounterpartyID string `json:"counterparty_id" binding:"required"`
	InvoiceNumber  string `json:"invoice_number"`
}

type EntryFilter struct {
	Direction      string
	Status         string
	CounterpartyID string
	Page           int
	Limit          int
}

type SupplierInvoiceResponse struct {
	Number             string  `json:"number"`
	Date               *string `json:"date"`
	AttachmentURL      string  `json:"attachment_url"`
	Observations       string  `json:"observations"`
	ExchangeRateUsed   string  `json:"exchange_rate_used"`
	ExchangeRateSource string  `json:"exchange_rate_source"`
	ExchangeRateDate   *string `json:"exchange_rate_date"`
}

type EntryResponse struct {
	ID               string                   `json:"id"`
	Direction        string                   `json:"direction"`
	CounterpartyID   string                   `json:"counterparty_id"`
	CounterpartyName string                   `json:"counterparty_name,omitempty"`
	LinkedDocumentID *string                  `json:"linked_document_id"`
	DueDate          string                   `json:"due_date"`
	Currency         string                   `json:"currency"`
	Amount           string                   `json:"amount"`
	Balance          string                   `json:"balance"`
	Status           string                   `json:"status"`
	Invoice          *SupplierInvoiceResponse `json:"invoice,omitempty"`
	CreatedAt        string                   `json:"created_at"`
}

// --- Interface ---

type EntryService interface {
	CreateEntry(ctx context.Context, userID string, req CreateEntryRequest) (EntryResponse, error)
	GetEntry(ctx context.Context, id string) (EntryResponse, error)
	ListEntries(ctx context.Context, filter EntryFilter) ([]EntryResponse, int64, error)
	Pay(ctx context.Context, id, userID string, req SettleEntryRequest) (EntryResponse, error)
	Collect(ctx context.Context, id, userID string, req SettleEntryRequest) (EntryResponse, error)
	Void(ctx context.Context, id, userID string) (EntryResponse, error)
	SaveInvoiceFields(ctx context.Context, id, userID string, req SaveInvoiceRequest) (EntryResponse, error)
	CheckDuplicate(ctx context.Context, req CheckDuplicateRequest) (DuplicateResult, error)
}

type entryService struct {
	entryRepo        repository.EntryRepository
	counterpartyRepo repository.CounterpartyRepository
	rateRepo         repository.RateRepository
	auditRepo        repository.AuditRepository
	txManager        repository.TransactionManager
}

func NewEntryService(
	entryRepo repository.EntryRepository,
	counterpartyRepo repository.CounterpartyRepository,
	rateRepo repository.RateRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) EntryService {
	return &entryService{
		entryRepo:        entryRepo,
		counterpartyRepo: counterpartyRepo,
		rateRepo:         rateRepo,
		auditRepo:        auditRepo,
		txManager:        txManager,
	}
}

// --- Implementation ---

func (s *entryService) CreateEntry(ctx context.Context, userID string, req CreateEntryRequest) (EntryResponse, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return EntryResponse{}, fmt.Errorf("invalid amount: %w", err)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return EntryResponse{}, fmt.Errorf("amount must be greater than zero")
	}

	counterpartyID, err := uuid.Parse(req.CounterpartyID)
	if err != nil {
		return EntryResponse{}, fmt.Errorf("invalid counterparty_id: %w", err)
	}
	if _, err := s.counterpartyRepo.FindByID(ctx, counterpartyID); err != nil {
		return EntryResponse{}, fmt.Errorf("counterparty not found: %w", err)
	}

	var linkedID *uuid.UUID
	if req.LinkedDocumentID != "" {
		parsed, parseErr := uuid.Parse(req.LinkedDocumentID)
		if parseErr != nil {
			return EntryResponse{}, fmt.Errorf("invalid linked_document_id: %w", parseErr)
		}
		linkedID = &parsed
	}

	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		return EntryResponse{}, fmt.Errorf("invalid due_date: %w", err)
	}

	entry := model.LedgerEntry{
		Direction:        req.Direction,
		CounterpartyID:   counterpartyID,
		LinkedDocumentID: linkedID,
		DueDate:          dueDate,
		Currency:         req.Currency,
		Amount:           amount.Round(2),
		Balance:          amount.Round(2),
		Status:           model.EntryStatusOpen,
	}

	if err := s.entryRepo.Create(ctx, &entry); err != nil {
		return EntryResponse{}, fmt.Errorf("failed to create entry: %w", err)
	}

	s.writeAudit(ctx, userID, model.ActionCreateEntry, &entry, map[string]string{
		"direction": entry.Direction,
		"amount":    entry.Amount.StringFixed(2),
		"currency":  entry.Currency,
	})

	reloaded, err := s.entryRepo.FindByIDWithCounterparty(ctx, entry.ID)
	if err != nil {
		return EntryResponse{}, fmt.Errorf("failed to reload entry: %w", err)
	}
	return toEntryResponse(*reloaded), nil
}

func (s *entryService) GetEntry(ctx context.Context, id string) (EntryResponse, error) {
	entryID, err := uuid.Parse(id)
	if err != nil {
		return EntryResponse{}, fmt.Errorf("invalid entry id: %w", err)
	}
	entry, err := s.entryRepo.FindByIDWithCounterparty(ctx, entryID)
	if err != nil {
		return EntryResponse{}, fmt.Errorf("entry not found: %w", err)
	}
	return toEntryResponse(*entry), nil
}

func (s *entryService) ListEntries(ctx context.Context, filter EntryFilter) ([]EntryResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	repoFilter := repository.EntryListFilter{
		Direction: filter.Direction,
		Status:    filter.Status,
		Page:      filter.Page,
		Limit:     filter.Limit,
	}
	if filter.CounterpartyID != "" {
		parsed, err := uuid.Parse(filter.CounterpartyID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid counterparty_id: %w", err)
		}
		repoFilter.CounterpartyID = &parsed
	}

	entries, total, err := s.entryRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch entries: %w", err)
	}

	result := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		result = append(result, toEntryResponse(e))
	}
	return result, total, nil
}

func (s *entryService) Pay(ctx context.Context, id, userID string, req SettleEntryRequest) (EntryResponse, error) {
	return s.settle(ctx, id, userID, req, model.DirectionPayable, model.ActionPayEntry)
}

func (s *entryService) Collect(ctx context.Context, id, userID string, req SettleEntryRequest) (EntryResponse, error) {
	return s.settle(ctx, id, userID, req, model.DirectionReceivable, model.ActionCollectEntry)
}

// settle applies a payment (CXP) or collection (CXC) inside a transaction so
// the status gate and balance update commit atomically.
func (s *entryService) settle(ctx context.Context, id, userID string, req SettleEntryRequest, direction, action string) (EntryResponse, error) {
	entryID, err := uuid.Parse(id)
	if err != nil {
		return EntryResponse{}, fmt.Errorf("invalid entry id: %w", err)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return EntryResponse{}, fmt.Errorf("invalid amount: %w", err)
	}

	var entry *model.LedgerEntry
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		entry, findErr = s.entryRepo.FindByID(txCtx, entryID)
		if findErr != nil {
			return fmt.Errorf("entry not found: %w", findErr)
		}

		if entry.Direction != direction {
			return fmt.Errorf("action not applicable to %s entry", entry.Direction)
		}

		if applyErr := ApplyPayment(entry, amount); applyErr != nil {
			return applyErr
		}

		if updateErr := s.entryRepo.Update(txCtx, entry); updateErr != nil {
			return fmt.Errorf("failed to update entry: %w", updateErr)
		}

		s.writeAudit(txCtx, userID, action, entry, map[string]string{
			"amount":  amount.StringFixed(2),
			"balance": entry.Balance.StringFixed(2),
			"status":  entry.Status,
		})
		return nil
	})
	if err != nil {
		return EntryResponse{}, err
	}

	reloaded, err := s.entryRepo.FindByIDWithCounterparty(ctx, entry.ID)
	if err != nil {
		return EntryResponse{}, fmt.Errorf("failed to reload entry: %w", err)
	}
	return toEntryResponse(*reloaded), nil
}

func (s *entryService) Void(ctx context.Context, id, userID string) (EntryResponse, error) {
	entryID, err := uuid.Parse(id)
	if err != nil {
		return EntryResponse{}, fmt.Errorf("invalid entry id: %w", err)
	}

	var entry *model.LedgerEntry
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		entry, findErr = s.entryRepo.FindByID(txCtx, entryID)
		if findErr != nil {
			return fmt.Errorf("entry not found: %w", findErr)
		}

		if applyErr := ApplyVoid(entry); applyErr != nil {
			return applyErr
		}

		if updateErr := s.entryRepo.Update(txCtx, entry); updateErr != nil {
			return fmt.Errorf("failed to update entry: %w", updateErr)
		}

		s.writeAudit(txCtx, userID, model.ActionVoidEntry, entry, map[string]string{
			"balance": entry.Balance.StringFixed(2),
		})
		return nil
	})
	if err != nil {
		return EntryResponse{}, err
	}

	reloaded, err := s.entryRepo.FindByIDWithCounterparty(ctx, entry.ID)
	if err != nil {
		return EntryResponse{}, fmt.Errorf("failed to reload entry: %w", err)
	}
	return toEntryResponse(*reloaded), nil
}

func (s *entryService) SaveInvoiceFields(ctx context.Context, id, userID string, req SaveInvoiceRequest) (EntryResponse, error) {
	entryID, err := uuid.Parse(id)
	if err != nil {
		return EntryResponse{}, fmt.Errorf("invalid entry id: %w", err)
	}

	var entry *model.LedgerEntry
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		entry, findErr = s.entryRepo.FindByID(txCtx, entryID)
		if findErr != nil {
			return fmt.Errorf("entry not found: %w", findErr)
		}

		if entry.Direction != model.DirectionPayable {
			return fmt.Errorf("only payable entries carry a supplier invoice")
		}
		if entry.Terminal() {
			return fmt.Errorf("entry is %s: %w", entry.Status, ErrInvalidTransition)
		}

		if req.Number != nil {
			number := *req.Number
			if NormalizeInvoiceNumber(number) != "" {
				siblings, listErr := s.entryRepo.ListActivePayables(txCtx, entry.CounterpartyID)
				if listErr != nil {
					return fmt.Errorf("failed to check for duplicates: %w", listErr)
				}
				result := FindDuplicate(siblings, DuplicateCandidate{
					EntryID:        entry.ID,
					CounterpartyID: entry.CounterpartyID,
					InvoiceNumber:  number,
				})
				if result.Duplicate {
					return fmt.Errorf("invoice %q already used by entry %s: %w",
						number, result.ConflictingEntryID, ErrDuplicateInvoice)
				}
			}
			entry.Invoice.Number = number
		}
		if req.Date != nil {
			if *req.Date == "" {
				entry.Invoice.Date = nil
			} else {
				parsed, parseErr := time.Parse("2006-01-02", *req.Date)
				if parseErr != nil {
					return fmt.Errorf("invalid invoice date: %w", parseErr)
				}
				entry.Invoice.Date = &parsed
			}
		}
		if req.AttachmentURL != nil {
			entry.Invoice.AttachmentURL = *req.AttachmentURL
		}
		if req.Observations != nil {
			entry.Invoice.Observations = *req.Observations
		}
		if req.ExchangeRateUsed != nil && *req.ExchangeRateUsed != "" {
			rate, parseErr := decimal.NewFromString(*req.ExchangeRateUsed)
			if parseErr != nil {
				return fmt.Errorf("invalid exchange_rate_used: %w", parseErr)
			}
			entry.Invoice.ExchangeRateUsed = rate
			// Stamp where and when the rate came from; without a persisted
			// rate the figure stands alone.
			if latest, rateErr := s.rateRepo.FindLatest(txCtx); rateErr == nil {
				entry.Invoice.ExchangeRateSource = latest.Source
				asOf := latest.AsOfDate
				entry.Invoice.ExchangeRateDate = &asOf
			}
		}

		if updateErr := s.entryRepo.Update(txCtx, entry); updateErr != nil {
			return fmt.Errorf("failed to update entry: %w", updateErr)
		}

		s.writeAudit(txCtx, userID, model.ActionSaveInvoice, entry, map[string]string{
			"invoice_number": entry.Invoice.Number,
		})
		return nil
	})
	if err != nil {
		return EntryResponse{}, err
	}

	reloaded, err := s.entryRepo.FindByIDWithCounterparty(ctx, entry.ID)
	if err != nil {
		return EntryResponse{}, fmt.Errorf("failed to reload entry: %w", err)
	}
	return toEntryResponse(*reloaded), nil
}

// CheckDuplicate is the advisory pre-submission lookup. It always queries the
// database rather than trusting a client-side cache, so a finance panel
// opened straight into the invoice modal still gets a real answer.
func (s *entryService) CheckDuplicate(ctx context.Context, req CheckDuplicateRequest) (DuplicateResult, error) {
	counterpartyID, err := uuid.Parse(req.CounterpartyID)
	if err != nil {
		return DuplicateResult{}, fmt.Errorf("invalid counterparty_id: %w", err)
	}

	candidate := DuplicateCandidate{
		CounterpartyID: counterpartyID,
		InvoiceNumber:  req.InvoiceNumber,
	}
	if req.EntryID != "" {
		entryID, parseErr := uuid.Parse(req.EntryID)
		if parseErr != nil {
			return DuplicateResult{}, fmt.Errorf("invalid entry_id: %w", parseErr)
		}
		candidate.EntryID = entryID
	}

	if NormalizeInvoiceNumber(req.InvoiceNumber) == "" {
		return DuplicateResult{}, nil
	}

	entries, err := s.entryRepo.ListActivePayables(ctx, counterpartyID)
	if err != nil {
		return DuplicateResult{}, fmt.Errorf("failed to fetch entries: %w", err)
	}
	return FindDuplicate(entries, candidate), nil
}

// --- Helpers ---

func (s *entryService) writeAudit(ctx context.Context, userID, action string, entry *model.LedgerEntry, details map[string]string) {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}
	payload, _ := json.Marshal(details)
	// Audit is best-effort; a failed log never blocks the ledger action.
	_ = s.auditRepo.Log(ctx, &model.AuditLog{
		UserID:   uid,
		Action:   action,
		EntityID: entry.ID.String(),
		Details:  string(payload),
	})
}

// --- Mapping ---

func toEntryResponse(e model.LedgerEntry) EntryResponse {
	resp := EntryResponse{
		ID:             e.ID.String(),
		Direction:      e.Direction,
		CounterpartyID: e.CounterpartyID.String(),
		DueDate:        e.DueDate.Format("2006-01-02"),
		Currency:       e.Currency,
		Amount:         e.Amount.StringFixed(2),
		Balance:        e.Balance.StringFixed(2),
		Status:         e.Status,
		CreatedAt:      e.CreatedAt.Format(time.RFC3339),
	}

	if e.Counterparty != nil {
		resp.CounterpartyName = e.Counterparty.Name
	}
	if e.LinkedDocumentID != nil {
		s := e.LinkedDocumentID.String()
		resp.LinkedDocumentID = &s
	}
	if e.Direction == model.DirectionPayable {
		inv := SupplierInvoiceResponse{
			Number:             e.Invoice.Number,
			AttachmentURL:      e.Invoice.AttachmentURL,
			Observations:       e.Invoice.Observations,
			ExchangeRateUsed:   e.Invoice.ExchangeRateUsed.StringFixed(6),
			ExchangeRateSource: e.Invoice.ExchangeRateSource,
		}
		if e.Invoice.Date != nil {
			d := e.Invoice.Date.Format("2006-01-02")
			inv.Date = &d
		}
		if e.Invoice.ExchangeRateDate != nil {
			d := e.Invoice.ExchangeRateDate.Format("2006-01-02")
			inv.ExchangeRateDate = &d
		}
		resp.Invoice = &inv
	}

	return resp
}
