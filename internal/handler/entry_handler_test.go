package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cuentas/internal/middleware"
	"cuentas/internal/model"
	"cuentas/internal/repository"
	"cuentas/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
}

func newHandlerTestDB(t *testing.T) *gorm.DB {
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

func newEntryRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newHandlerTestDB(t)
	svc := service.NewEntryService(
		repository.NewEntryRepository(db),
		repository.NewCounterpartyRepository(db),
		repository.NewRateRepository(db),
		repository.NewAuditRepository(db),
		repository.NewTransactionManager(db),
	)

	router := gin.New()
	NewEntryHandler(svc).RegisterRoutes(router.Group(""))
	return router, db
}

func bearerToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  uuid.New().String(),
		"role": model.RoleFinance,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(middleware.GetJWTSecret())
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, payload interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("failed to encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func seedSupplier(t *testing.T, db *gorm.DB) *model.Counterparty {
	t.Helper()
	cp := &model.Counterparty{Name: "Proveedor SA", Type: model.CounterpartySupplier, IsActive: true}
	if err := db.Create(cp).Error; err != nil {
		t.Fatalf("failed to seed counterparty: %v", err)
	}
	return cp
}

func createEntryReq(counterpartyID, direction, currency, amount string) service.CreateEntryRequest {
	return service.CreateEntryRequest{
		Direction:      direction,
		CounterpartyID: counterpartyID,
		DueDate:        "2026-10-15",
		Currency:       currency,
		Amount:         amount,
	}
}

func TestCreateEntryEndpoint(t *testing.T) {
	router, db := newEntryRouter(t)
	supplier := seedSupplier(t, db)
	token := bearerToken(t)

	w, env := doJSON(t, router, http.MethodPost, "/api/entries", token,
		createEntryReq(supplier.ID.String(), model.DirectionPayable, model.CurrencyGTQ, "1500.50"))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "success", env.Status)

	var entry service.EntryResponse
	assert.NoError(t, json.Unmarshal(env.Data, &entry))
	assert.Equal(t, model.EntryStatusOpen, entry.Status)
	assert.Equal(t, "1500.50", entry.Balance)
	assert.Equal(t, supplier.Name, entry.CounterpartyName)
}

func TestCreateEntryRequiresAuth(t *testing.T) {
	router, db := newEntryRouter(t)
	supplier := seedSupplier(t, db)

	w, env := doJSON(t, router, http.MethodPost, "/api/entries", "",
		createEntryReq(supplier.ID.String(), model.DirectionPayable, model.CurrencyGTQ, "100"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "error", env.Status)
}

func TestCreateEntryValidationErrors(t *testing.T) {
	router, db := newEntryRouter(t)
	supplier := seedSupplier(t, db)
	token := bearerToken(t)

	// binding: oneof rejections never reach the service
	w, _ := doJSON(t, router, http.MethodPost, "/api/entries", token,
		createEntryReq(supplier.ID.String(), "SOMETHING", model.CurrencyGTQ, "100"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, router, http.MethodPost, "/api/entries", token,
		createEntryReq(supplier.ID.String(), model.DirectionPayable, "EUR", "100"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, router, http.MethodPost, "/api/entries", token,
		createEntryReq(supplier.ID.String(), model.DirectionPayable, model.CurrencyGTQ, "-5"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaySettleAndConflict(t *testing.T) {
	router, db := newEntryRouter(t)
	supplier := seedSupplier(t, db)
	token := bearerToken(t)

	_, created := doJSON(t, router, http.MethodPost, "/api/entries", token,
		createEntryReq(supplier.ID.String(), model.DirectionPayable, model.CurrencyGTQ, "100.00"))
	var entry service.EntryResponse
	assert.NoError(t, json.Unmarshal(created.Data, &entry))

	payPath := fmt.Sprintf("/api/entries/%s/pay", entry.ID)

	w, env := doJSON(t, router, http.MethodPost, payPath, token, service.SettleEntryRequest{Amount: "60"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, json.Unmarshal(env.Data, &entry))
	assert.Equal(t, model.EntryStatusOpen, entry.Status)
	assert.Equal(t, "40.00", entry.Balance)

	w, env = doJSON(t, router, http.MethodPost, payPath, token, service.SettleEntryRequest{Amount: "40"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, json.Unmarshal(env.Data, &entry))
	assert.Equal(t, model.EntryStatusSettled, entry.Status)

	// A stale pay against a settled entry maps to 409.
	w, env = doJSON(t, router, http.MethodPost, payPath, token, service.SettleEntryRequest{Amount: "1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "error", env.Status)
}

func TestVoidEndpointIsTerminal(t *testing.T) {
	router, db := newEntryRouter(t)
	supplier := seedSupplier(t, db)
	token := bearerToken(t)

	_, created := doJSON(t, router, http.MethodPost, "/api/entries", token,
		createEntryReq(supplier.ID.String(), model.DirectionPayable, model.CurrencyGTQ, "100.00"))
	var entry service.EntryResponse
	assert.NoError(t, json.Unmarshal(created.Data, &entry))

	w, env := doJSON(t, router, http.MethodPost, "/api/entries/"+entry.ID+"/void", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, json.Unmarshal(env.Data, &entry))
	assert.Equal(t, model.EntryStatusVoid, entry.Status)
	assert.Equal(t, "100.00", entry.Balance)

	w, _ = doJSON(t, router, http.MethodPost, "/api/entries/"+entry.ID+"/pay", token, service.SettleEntryRequest{Amount: "100"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSaveInvoiceDuplicateMapsToConflict(t *testing.T) {
	router, db := newEntryRouter(t)
	supplier := seedSupplier(t, db)
	token := bearerToken(t)

	var first, second service.EntryResponse
	_, created := doJSON(t, router, http.MethodPost, "/api/entries", token,
		createEntryReq(supplier.ID.String(), model.DirectionPayable, model.CurrencyGTQ, "100"))
	assert.NoError(t, json.Unmarshal(created.Data, &first))
	_, created = doJSON(t, router, http.MethodPost, "/api/entries", token,
		createEntryReq(supplier.ID.String(), model.DirectionPayable, model.CurrencyGTQ, "200"))
	assert.NoError(t, json.Unmarshal(created.Data, &second))

	w, _ := doJSON(t, router, http.MethodPut, "/api/entries/"+first.ID+"/invoice", token,
		map[string]string{"number": "F-100"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := doJSON(t, router, http.MethodPut, "/api/entries/"+second.ID+"/invoice", token,
		map[string]string{"number": " f-100 "})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "error", env.Status)
}

func TestCheckDuplicateEndpoint(t *testing.T) {
	router, db := newEntryRouter(t)
	supplier := seedSupplier(t, db)
	token := bearerToken(t)

	_, created := doJSON(t, router, http.MethodPost, "/api/entries", token,
		createEntryReq(supplier.ID.String(), model.DirectionPayable, model.CurrencyGTQ, "100"))
	var entry service.EntryResponse
	assert.NoError(t, json.Unmarshal(created.Data, &entry))

	w, _ := doJSON(t, router, http.MethodPut, "/api/entries/"+entry.ID+"/invoice", token,
		map[string]string{"number": "F-777"})
	assert.Equal(t, http.StatusOK, w.Code)

	// The lookup is read-only and works without a credential.
	w, env := doJSON(t, router, http.MethodPost, "/api/entries/check-duplicate", "",
		service.CheckDuplicateRequest{CounterpartyID: supplier.ID.String(), InvoiceNumber: "f-777"})
	assert.Equal(t, http.StatusOK, w.Code)

	var result service.DuplicateResult
	assert.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Duplicate)

	w, env = doJSON(t, router, http.MethodPost, "/api/entries/check-duplicate", "",
		service.CheckDuplicateRequest{CounterpartyID: supplier.ID.String(), InvoiceNumber: "F-999"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, json.Unmarshal(env.Data, &result))
	assert.False(t, result.Duplicate)
}

func TestGetEntryNotFound(t *testing.T) {
	router, _ := newEntryRouter(t)

	w, env := doJSON(t, router, http.MethodGet, "/api/entries/"+uuid.New().String(), "", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "error", env.Status)
}

func TestListEntriesFiltersByStatus(t *testing.T) {
	router, db := newEntryRouter(t)
	supplier := seedSupplier(t, db)
	token := bearerToken(t)

	_, created := doJSON(t, router, http.MethodPost, "/api/entries", token,
		createEntryReq(supplier.ID.String(), model.DirectionPayable, model.CurrencyGTQ, "100"))
	var entry service.EntryResponse
	assert.NoError(t, json.Unmarshal(created.Data, &entry))
	doJSON(t, router, http.MethodPost, "/api/entries", token,
		createEntryReq(supplier.ID.String(), model.DirectionPayable, model.CurrencyGTQ, "200"))

	w, _ := doJSON(t, router, http.MethodPost, "/api/entries/"+entry.ID+"/void", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := doJSON(t, router, http.MethodGet, "/api/entries?status=OPEN", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Items []service.EntryResponse `json:"items"`
		Total int64                   `json:"total"`
	}
	assert.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(1), page.Total)
	if assert.Len(t, page.Items, 1) {
		assert.Equal(t, model.EntryStatusOpen, page.Items[0].Status)
	}
}
