package invoices

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/colisflow/colisflow/internal/pricing"
	"github.com/colisflow/colisflow/internal/shared"
	"github.com/colisflow/colisflow/internal/shipments"
)

func newTestHandler(svc *Service) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, svc, nil)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, tenantID uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if tenantID != uuid.Nil {
		req.Header.Set(shared.TenantHeader, tenantID.String())
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func generatedInvoiceFixture(t *testing.T) (http.Handler, uuid.UUID, GenerateResult) {
	t.Helper()
	tenantID := uuid.New()
	repo := newMemoryInvoiceRepo()
	src := &memoryShipmentSource{shipments: []shipments.Shipment{okShipment("Colissimo", 200, 4.50)}}
	rules := []pricing.Rule{{
		ID: uuid.New(), TenantID: tenantID, Carrier: "Colissimo",
		WeightMinGrams: 0, WeightMaxGrams: 500, UnitPriceEUR: 4.50, Active: true,
	}}
	svc := newTestService(repo, src, rules, defaultTenants())
	res, err := svc.Generate(context.Background(), tenantID, GenerateInput{Month: "2025-06"})
	require.NoError(t, err)
	return newTestHandler(svc), tenantID, res
}

func TestHandlerGenerate(t *testing.T) {
	tenantID := uuid.New()
	svc := newTestService(newMemoryInvoiceRepo(), &memoryShipmentSource{}, nil, defaultTenants())
	router := newTestHandler(svc)

	rec := doJSON(t, router, http.MethodPost, "/invoices/generate", tenantID, `{"month":"2025-06"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool            `json:"success"`
		Invoice *GenerateResult `json:"invoice"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotNil(t, resp.Invoice)
	require.Equal(t, "2025-06", resp.Invoice.Month)
}

func TestHandlerGenerateInvalidMonth(t *testing.T) {
	svc := newTestService(newMemoryInvoiceRepo(), &memoryShipmentSource{}, nil, defaultTenants())
	router := newTestHandler(svc)

	rec := doJSON(t, router, http.MethodPost, "/invoices/generate", uuid.New(), `{"month":"juin"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Format mois invalide (YYYY-MM)")
	require.Contains(t, rec.Body.String(), `"success":false`)
}

func TestHandlerGenerateRequiresTenant(t *testing.T) {
	svc := newTestService(newMemoryInvoiceRepo(), &memoryShipmentSource{}, nil, defaultTenants())
	router := newTestHandler(svc)

	rec := doJSON(t, router, http.MethodPost, "/invoices/generate", uuid.Nil, `{"month":"2025-06"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerGetAndStatus(t *testing.T) {
	router, tenantID, res := generatedInvoiceFixture(t)

	rec := doJSON(t, router, http.MethodGet, "/invoices/"+res.InvoiceID.String(), tenantID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var inv InvoiceWithLines
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	require.Equal(t, res.InvoiceNumber, inv.InvoiceNumber)
	require.Len(t, inv.Lines, res.LineCount)

	rec = doJSON(t, router, http.MethodGet, "/invoices/"+uuid.New().String(), tenantID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPatch, "/invoices/"+res.InvoiceID.String()+"/status", tenantID, `{"status":"sent"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPatch, "/invoices/"+res.InvoiceID.String()+"/status", tenantID, `{"status":"void"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerExport(t *testing.T) {
	router, tenantID, res := generatedInvoiceFixture(t)

	rec := doJSON(t, router, http.MethodGet, "/invoices/"+res.InvoiceID.String()+"/export?format=fec", tenantID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), "123456789FEC")
	require.True(t, strings.HasPrefix(rec.Body.String(), "JournalCode|"))

	rec = doJSON(t, router, http.MethodGet, "/invoices/"+res.InvoiceID.String()+"/export?format=sage", tenantID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), "export_sage_2025-06.csv")
	require.True(t, strings.HasPrefix(rec.Body.String(), "Date;Journal;"))

	rec = doJSON(t, router, http.MethodGet, "/invoices/"+res.InvoiceID.String()+"/export?format=xml", tenantID, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/invoices/"+uuid.New().String()+"/export?format=fec", tenantID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
