package service

import (
	"context"
	"testing"
	"time"

	"cuentas/internal/model"
	"cuentas/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&model.User{},
		&model.Counterparty{},
		&model.LedgerEntry{},
		&model.ExchangeRate{},
		&model.AuditLog{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func seedCounterparty(t *testing.T, db *gorm.DB, name, cpType string) *model.Counterparty {
	t.Helper()
	cp := &model.Counterparty{Name: name, Type: cpType, IsActive: true}
	if err := db.Create(cp).Error; err != nil {
		t.Fatalf("failed to seed counterparty: %v", err)
	}
	return cp
}

func newEntryTestService(db *gorm.DB) EntryService {
	return NewEntryService(
		repository.NewEntryRepository(db),
		repository.NewCounterpartyRepository(db),
		repository.NewRateRepository(db),
		repository.NewAuditRepository(db),
		repository.NewTransactionManager(db),
	)
}

func createPayable(t *testing.T, svc EntryService, supplier *model.Counterparty, amount string) EntryResponse {
	t.Helper()
	resp, err := svc.CreateEntry(context.Background(), "", CreateEntryRequest{
		Direction:      model.DirectionPayable,
		CounterpartyID: supplier.ID.String(),
		DueDate:        "2026-10-15",
		Currency:       model.CurrencyGTQ,
		Amount:         amount,
	})
	if err != nil {
		t.Fatalf("failed to create entry: %v", err)
	}
	return resp
}

func TestCreateEntryStartsOpenWithFullBalance(t *testing.T) {
	db := newTestDB(t)
	svc := newEntryTestService(db)
	supplier := seedCounterparty(t, db, "Ferretería El Tornillo", model.CounterpartySupplier)

	resp := createPayable(t, svc, supplier, "1500.50")

	parsed, err := uuid.Parse(resp.ID)
	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, parsed)

	assert.Equal(t, model.EntryStatusOpen, resp.Status)
	assert.Equal(t, "1500.50", resp.Amount)
	assert.Equal(t, "1500.50", resp.Balance)
	assert.Equal(t, supplier.Name, resp.CounterpartyName)
	assert.NotNil(t, resp.Invoice)
}

func TestCreateEntryRejectsBadInput(t *testing.T) {
	db := newTestDB(t)
	svc := newEntryTestService(db)
	supplier := seedCounterparty(t, db, "Proveedor SA", model.CounterpartySupplier)

	cases := []CreateEntryRequest{
		{Direction: model.DirectionPayable, CounterpartyID: supplier.ID.String(), DueDate: "2026-10-15", Currency: model.CurrencyGTQ, Amount: "0"},
		{Direction: model.DirectionPayable, CounterpartyID: supplier.ID.String(), DueDate: "2026-10-15", Currency: model.CurrencyGTQ, Amount: "-20"},
		{Direction: model.DirectionPayable, CounterpartyID: supplier.ID.String(), DueDate: "15/10/2026", Currency: model.CurrencyGTQ, Amount: "100"},
		{Direction: model.DirectionPayable, CounterpartyID: uuid.New().String(), DueDate: "2026-10-15", Currency: model.CurrencyGTQ, Amount: "100"},
	}
	for _, req := range cases {
		_, err := svc.CreateEntry(context.Background(), "", req)
		assert.Error(t, err)
	}
}

func TestPayPartialThenSettleThenReject(t *testing.T) {
	db := newTestDB(t)
	svc := newEntryTestService(db)
	supplier := seedCounterparty(t, db, "Proveedor SA", model.CounterpartySupplier)
	entry := createPayable(t, svc, supplier, "100.00")

	resp, err := svc.Pay(context.Background(), entry.ID, "", SettleEntryRequest{Amount: "60"})
	assert.NoError(t, err)
	assert.Equal(t, model.EntryStatusOpen, resp.Status)
	assert.Equal(t, "40.00", resp.Balance)

	resp, err = svc.Pay(context.Background(), entry.ID, "", SettleEntryRequest{Amount: "40"})
	assert.NoError(t, err)
	assert.Equal(t, model.EntryStatusSettled, resp.Status)
	assert.Equal(t, "0.00", resp.Balance)

	_, err = svc.Pay(context.Background(), entry.ID, "", SettleEntryRequest{Amount: "1"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPayRejectsReceivableAndViceVersa(t *testing.T) {
	db := newTestDB(t)
	svc := newEntryTestService(db)
	customer := seedCounterparty(t, db, "Cliente SA", model.CounterpartyCustomer)

	resp, err := svc.CreateEntry(context.Background(), "", CreateEntryRequest{
		Direction:      model.DirectionReceivable,
		CounterpartyID: customer.ID.String(),
		DueDate:        "2026-11-01",
		Currency:       model.CurrencyUSD,
		Amount:         "300",
	})
	assert.NoError(t, err)

	_, err = svc.Pay(context.Background(), resp.ID, "", SettleEntryRequest{Amount: "300"})
	assert.Error(t, err)

	// Collect is the right verb for a receivable.
	collected, err := svc.Collect(context.Background(), resp.ID, "", SettleEntryRequest{Amount: "300"})
	assert.NoError(t, err)
	assert.Equal(t, model.EntryStatusSettled, collected.Status)
}

func TestVoidPreservesBalanceAndIsTerminal(t *testing.T) {
	db := newTestDB(t)
	svc := newEntryTestService(db)
	supplier := seedCounterparty(t, db, "Proveedor SA", model.CounterpartySupplier)
	entry := createPayable(t, svc, supplier, "100.00")

	_, err := svc.Pay(context.Background(), entry.ID, "", SettleEntryRequest{Amount: "30"})
	assert.NoError(t, err)

	resp, err := svc.Void(context.Background(), entry.ID, "")
	assert.NoError(t, err)
	assert.Equal(t, model.EntryStatusVoid, resp.Status)
	assert.Equal(t, "70.00", resp.Balance)

	_, err = svc.Void(context.Background(), entry.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Pay(context.Background(), entry.ID, "", SettleEntryRequest{Amount: "70"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSaveInvoiceFieldsRejectsDuplicateNumber(t *testing.T) {
	db := newTestDB(t)
	svc := newEntryTestService(db)
	supplier := seedCounterparty(t, db, "Proveedor SA", model.CounterpartySupplier)

	first := createPayable(t, svc, supplier, "100")
	second := createPayable(t, svc, supplier, "200")

	number := "F-100"
	_, err := svc.SaveInvoiceFields(context.Background(), first.ID, "", SaveInvoiceRequest{Number: &number})
	assert.NoError(t, err)

	// Same number, different casing and padding, same supplier.
	clash := "  f-100 "
	_, err = svc.SaveInvoiceFields(context.Background(), second.ID, "", SaveInvoiceRequest{Number: &clash})
	assert.ErrorIs(t, err, ErrDuplicateInvoice)

	// Re-saving the number on its own entry is not a conflict.
	_, err = svc.SaveInvoiceFields(context.Background(), first.ID, "", SaveInvoiceRequest{Number: &number})
	assert.NoError(t, err)
}

func TestSaveInvoiceFieldsAllowsReuseAfterVoid(t *testing.T) {
	db := newTestDB(t)
	svc := newEntryTestService(db)
	supplier := seedCounterparty(t, db, "Proveedor SA", model.CounterpartySupplier)

	first := createPayable(t, svc, supplier, "100")
	number := "F-500"
	_, err := svc.SaveInvoiceFields(context.Background(), first.ID, "", SaveInvoiceRequest{Number: &number})
	assert.NoError(t, err)
	_, err = svc.Void(context.Background(), first.ID, "")
	assert.NoError(t, err)

	second := createPayable(t, svc, supplier, "100")
	_, err = svc.SaveInvoiceFields(context.Background(), second.ID, "", SaveInvoiceRequest{Number: &number})
	assert.NoError(t, err)
}

func TestSaveInvoiceFieldsStampsRateProvenance(t *testing.T) {
	db := newTestDB(t)
	svc := newEntryTestService(db)
	supplier := seedCounterparty(t, db, "Proveedor SA", model.CounterpartySupplier)
	entry := createPayable(t, svc, supplier, "100")

	rateRepo := repository.NewRateRepository(db)
	err := rateRepo.Upsert(context.Background(), &model.ExchangeRate{
		ReferenceRate: decimal.RequireFromString("7.812345"),
		AsOfDate:      time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Source:        "banguat",
	})
	assert.NoError(t, err)

	used := "7.812345"
	resp, err := svc.SaveInvoiceFields(context.Background(), entry.ID, "", SaveInvoiceRequest{ExchangeRateUsed: &used})
	assert.NoError(t, err)
	if assert.NotNil(t, resp.Invoice) {
		assert.Equal(t, "7.812345", resp.Invoice.ExchangeRateUsed)
		assert.Equal(t, "banguat", resp.Invoice.ExchangeRateSource)
		if assert.NotNil(t, resp.Invoice.ExchangeRateDate) {
			assert.Equal(t, "2026-09-01", *resp.Invoice.ExchangeRateDate)
		}
	}

	var stored model.LedgerEntry
	assert.NoError(t, db.First(&stored, "id = ?", entry.ID).Error)
	assert.Equal(t, "banguat", stored.Invoice.ExchangeRateSource)
	assert.NotNil(t, stored.Invoice.ExchangeRateDate)
}

func TestSaveInvoiceFieldsWithoutStoredRateLeavesProvenanceEmpty(t *testing.T) {
	db := newTestDB(t)
	svc := newEntryTestService(db)
	supplier := seedCounterparty(t, db, "Proveedor SA", model.CounterpartySupplier)
	entry := createPayable(t, svc, supplier, "100")

	used := "7.80"
	resp, err := svc.SaveInvoiceFields(context.Background(), entry.ID, "", SaveInvoiceRequest{ExchangeRateUsed: &used})

	assert.NoError(t, err)
	if assert.NotNil(t, resp.Invoice) {
		assert.Equal(t, "7.800000", resp.Invoice.ExchangeRateUsed)
		assert.Empty(t, resp.Invoice.ExchangeRateSource)
		assert.Nil(t, resp.Invoice.ExchangeRateDate)
	}
}

func TestSaveInvoiceFieldsRejectsTerminalEntries(t *testing.T) {
	db := newTestDB(t)
	svc := newEntryTestService(db)
	supplier := seedCounterparty(t, db, "Proveedor SA", model.CounterpartySupplier)
	entry := createPayable(t, svc, supplier, "50")

	_, err := svc.Pay(context.Background(), entry.ID, "", SettleEntryRequest{Amount: "50"})
	assert.NoError(t, err)

	number := "F-900"
	_, err = svc.SaveInvoiceFields(context.Background(), entry.ID, "", SaveInvoiceRequest{Number: &number})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCheckDuplicateQueriesDatabase(t *testing.T) {
	db := newTestDB(t)
	svc := newEntryTestService(db)
	supplier := seedCounterparty(t, db, "Proveedor SA", model.CounterpartySupplier)
	other := seedCounterparty(t, db, "Otro Proveedor", model.CounterpartySupplier)

	entry := createPayable(t, svc, supplier, "100")
	number := "F-777"
	_, err := svc.SaveInvoiceFields(context.Background(), entry.ID, "", SaveInvoiceRequest{Number: &number})
	assert.NoError(t, err)

	res, err := svc.CheckDuplicate(context.Background(), CheckDuplicateRequest{
		CounterpartyID: supplier.ID.String(),
		InvoiceNumber:  "f-777",
	})
	assert.NoError(t, err)
	assert.True(t, res.Duplicate)

	res, err = svc.CheckDuplicate(context.Background(), CheckDuplicateRequest{
		CounterpartyID: other.ID.String(),
		InvoiceNumber:  "f-777",
	})
	assert.NoError(t, err)
	assert.False(t, res.Duplicate)

	res, err = svc.CheckDuplicate(context.Background(), CheckDuplicateRequest{
		CounterpartyID: supplier.ID.String(),
		InvoiceNumber:  "   ",
	})
	assert.NoError(t, err)
	assert.False(t, res.Duplicate)
}

func TestLedgerMutationsAreAudited(t *testing.T) {
	db := newTestDB(t)
	svc := newEntryTestService(db)
	supplier := seedCounterparty(t, db, "Proveedor SA", model.CounterpartySupplier)
	entry := createPayable(t, svc, supplier, "100")

	other := createPayable(t, svc, supplier, "50")

	_, err := svc.Pay(context.Background(), entry.ID, "", SettleEntryRequest{Amount: "100"})
	assert.NoError(t, err)

	auditRepo := repository.NewAuditRepository(db)
	logs, total, err := auditRepo.List(context.Background(), entry.ID, 1, 20)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)

	actions := make([]string, 0, len(logs))
	for _, l := range logs {
		actions = append(actions, l.Action)
	}
	assert.ElementsMatch(t, []string{model.ActionCreateEntry, model.ActionPayEntry}, actions)

	// Unscoped listing sees the other entry's trail too.
	_, total, err = auditRepo.List(context.Background(), "", 1, 20)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), total)
	_, total, err = auditRepo.List(context.Background(), other.ID, 1, 20)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
