package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AdrianPopi/acont/internal/chronology"
	clientdomain "github.com/AdrianPopi/acont/internal/client/domain"
	clientrepository "github.com/AdrianPopi/acont/internal/client/repository"
	clientservice "github.com/AdrianPopi/acont/internal/client/service"
	"github.com/AdrianPopi/acont/internal/clock"
	"github.com/AdrianPopi/acont/internal/config"
	creditnotedomain "github.com/AdrianPopi/acont/internal/creditnote/domain"
	creditnoterepository "github.com/AdrianPopi/acont/internal/creditnote/repository"
	creditnoteservice "github.com/AdrianPopi/acont/internal/creditnote/service"
	"github.com/AdrianPopi/acont/internal/document"
	invoicedomain "github.com/AdrianPopi/acont/internal/invoice/domain"
	invoicerepository "github.com/AdrianPopi/acont/internal/invoice/repository"
	invoiceservice "github.com/AdrianPopi/acont/internal/invoice/service"
	"github.com/AdrianPopi/acont/internal/observability"
	productdomain "github.com/AdrianPopi/acont/internal/product/domain"
	productrepository "github.com/AdrianPopi/acont/internal/product/repository"
	productservice "github.com/AdrianPopi/acont/internal/product/service"
	"github.com/AdrianPopi/acont/internal/providers/pdf"
	sequencedomain "github.com/AdrianPopi/acont/internal/sequence/domain"
	sequencerepository "github.com/AdrianPopi/acont/internal/sequence/repository"
	sequenceservice "github.com/AdrianPopi/acont/internal/sequence/service"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubPDF struct {
	rendered []pdf.Document
}

func (s *stubPDF) Render(ctx context.Context, doc pdf.Document) ([]byte, error) {
	s.rendered = append(s.rendered, doc)
	return []byte("%PDF-1.3 stub"), nil
}

type testServer struct {
	engine *gin.Engine
	pdf    *stubPDF
	clock  *clock.FakeClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.AutoMigrate(
		&creditnotedomain.CreditNote{},
		&creditnotedomain.CreditNoteItem{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
		&sequencedomain.Counter{},
		&clientdomain.Client{},
		&productdomain.Product{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	cfg := config.Config{
		DocumentLockTimeout: time.Second,
		Seller:              config.SellerConfig{Name: "Acont SRL", IBAN: "BE68539007547034"},
	}

	clients := clientservice.New(clientservice.Params{Log: log, GenID: node, Clock: fake, Repo: clientrepository.Provide(conn)})
	products := productservice.New(productservice.Params{Log: log, GenID: node, Clock: fake, Repo: productrepository.Provide(conn)})
	allocator := sequenceservice.New(sequenceservice.Params{
		DB:        conn,
		Log:       log,
		Cfg:       cfg,
		Clock:     fake,
		Repo:      sequencerepository.Provide(),
		Numbering: config.NewStaticNumberingHolder(config.DefaultNumberingConfig()),
	})
	validator := chronology.New(fake)
	invoiceRepo := invoicerepository.Provide()
	invoices := invoiceservice.New(invoiceservice.Params{
		DB:         conn,
		Log:        log,
		GenID:      node,
		Clock:      fake,
		Repo:       invoiceRepo,
		Allocator:  allocator,
		Chronology: validator,
		Clients:    clients,
		Products:   products,
	})
	creditNotes := creditnoteservice.New(creditnoteservice.Params{
		DB:          conn,
		Log:         log,
		GenID:       node,
		Clock:       fake,
		Repo:        creditnoterepository.Provide(),
		InvoiceRepo: invoiceRepo,
		Invoices:    invoices,
		Allocator:   allocator,
		Chronology:  validator,
	})

	renderer := &stubPDF{}
	engine := NewEngine(observability.Config{}, nil)
	NewServer(ServerParams{
		Gin:           engine,
		Cfg:           cfg,
		Log:           log,
		InvoiceSvc:    invoices,
		CreditNoteSvc: creditNotes,
		ClientSvc:     clients,
		ProductSvc:    products,
		PDF:           renderer,
	})

	return &testServer{engine: engine, pdf: renderer, clock: fake}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderMerchant, "1")
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error errorPayload    `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

type invoiceDetail struct {
	Invoice struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		InvoiceNo string `json:"invoice_no"`
	} `json:"invoice"`
	DisplayNumber string `json:"display_number"`
	Totals        struct {
		TotalGross string `json:"total_gross"`
	} `json:"totals"`
}

func (ts *testServer) createInvoice(t *testing.T, body map[string]any) invoiceDetail {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/invoices", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var detail invoiceDetail
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &detail))
	return detail
}

func invoiceBody(extra map[string]any) map[string]any {
	body := map[string]any{
		"client_name": "Atelier Dupont",
		"items": []map[string]any{
			{"description": "Consulting", "quantity": "2", "unit_price": "100", "vat_rate": "21"},
		},
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

func TestMerchantHeaderRequired(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "merchant_required", decode(t, rec).Error.Type)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInvoiceIssueAndMeta(t *testing.T) {
	ts := newTestServer(t)

	detail := ts.createInvoice(t, invoiceBody(nil))
	assert.Equal(t, "issued", detail.Invoice.Status)
	assert.Equal(t, "000001", detail.DisplayNumber)
	assert.Equal(t, "242.00", detail.Totals.TotalGross)

	rec := ts.do(t, http.MethodGet, "/api/invoices/meta?issue_date=2025-03-10", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var meta invoicedomain.Meta
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &meta))
	assert.Equal(t, "000002", meta.NextNumber)
	require.NotNil(t, meta.LastIssuedDate)
	assert.Equal(t, "2025-03-10", *meta.LastIssuedDate)

	rec = ts.do(t, http.MethodGet, "/api/invoices/meta?issue_date=10-03-2025", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvoiceChronologyViolation(t *testing.T) {
	ts := newTestServer(t)
	ts.createInvoice(t, invoiceBody(nil))

	rec := ts.do(t, http.MethodPost, "/api/invoices", invoiceBody(map[string]any{"issue_date": "2025-03-01"}))

	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	env := decode(t, rec)
	assert.Equal(t, "chronology_violation", env.Error.Type)
	assert.Equal(t, string(document.RuleBeforeLastIssued), env.Error.Rule)
	assert.Equal(t, "2025-03-10", env.Error.Date)
	assert.Contains(t, env.Error.Message, "2025-03-10")
}

func TestInvoiceValidationError(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/invoices", map[string]any{
		"client_name": "Atelier Dupont",
		"items": []map[string]any{
			{"description": "Consulting", "quantity": "two", "unit_price": "100", "vat_rate": "21"},
		},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	env := decode(t, rec)
	assert.Equal(t, "validation_error", env.Error.Type)
	require.Len(t, env.Error.Errors, 1)
	assert.Equal(t, "request", env.Error.Errors[0].Field)

	rec = ts.do(t, http.MethodPost, "/api/invoices", map[string]any{
		"client_name": "Atelier Dupont",
		"items": []map[string]any{
			{"description": "Rebate", "quantity": "1", "unit_price": "-20", "vat_rate": "21"},
			{"description": "Sample", "quantity": "0", "unit_price": "100", "vat_rate": "21"},
		},
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/invoices", "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvoiceLifecycle(t *testing.T) {
	ts := newTestServer(t)

	draft := ts.createInvoice(t, invoiceBody(map[string]any{"issue_now": false}))
	assert.Equal(t, "draft", draft.Invoice.Status)
	assert.Equal(t, "DRAFT", draft.DisplayNumber)

	rec := ts.do(t, http.MethodPost, "/api/invoices/"+draft.Invoice.ID+"/pay", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decode(t, rec).Error.Type)

	rec = ts.do(t, http.MethodPost, "/api/invoices/"+draft.Invoice.ID+"/issue", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/invoices/"+draft.Invoice.ID+"/issue", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/invoices/"+draft.Invoice.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/invoices/"+draft.Invoice.ID+"/void", map[string]any{"reason": "duplicate"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var voided invoiceDetail
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &voided))
	assert.Equal(t, "void", voided.Invoice.Status)

	other := ts.createInvoice(t, invoiceBody(map[string]any{"issue_now": false}))
	rec = ts.do(t, http.MethodDelete, "/api/invoices/"+other.Invoice.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/invoices/"+other.Invoice.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvoiceList(t *testing.T) {
	ts := newTestServer(t)
	ts.createInvoice(t, invoiceBody(nil))
	ts.createInvoice(t, invoiceBody(map[string]any{"issue_now": false}))

	rec := ts.do(t, http.MethodGet, "/api/invoices?status=issued&year=2025", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var list invoicedomain.ListResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &list))
	require.Len(t, list.Invoices, 1)
	assert.Equal(t, "000001", list.Invoices[0].DisplayNumber)

	rec = ts.do(t, http.MethodGet, "/api/invoices?year=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreditNoteFlowAndPDF(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/clients", map[string]any{"name": "Atelier Dupont", "email": "hello@dupont.be"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var client clientdomain.Client
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &client))

	inv := ts.createInvoice(t, invoiceBody(map[string]any{"client_id": client.ID.String()}))

	rec = ts.do(t, http.MethodGet, "/api/credit-notes/eligible-invoices?client_id="+client.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var eligible []invoicedomain.Summary
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &eligible))
	require.Len(t, eligible, 1)
	assert.Equal(t, inv.Invoice.ID, eligible[0].ID)

	rec = ts.do(t, http.MethodGet, "/api/credit-notes/eligible-invoices", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/credit-notes/source-invoice/"+inv.Invoice.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/credit-notes", map[string]any{"invoice_id": inv.Invoice.ID, "issue_date": "2025-03-09"})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	env := decode(t, rec)
	assert.Equal(t, "chronology_violation", env.Error.Type)
	assert.Equal(t, "Credit note date cannot be before invoice issue date (2025-03-10)", env.Error.Message)

	rec = ts.do(t, http.MethodPost, "/api/credit-notes", map[string]any{"invoice_id": inv.Invoice.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cn struct {
		CreditNote struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"credit_note"`
		DisplayNumber string `json:"display_number"`
		InvoiceNo     string `json:"invoice_no"`
		Totals        struct {
			TotalGross string `json:"total_gross"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &cn))
	assert.Equal(t, "issued", cn.CreditNote.Status)
	assert.Equal(t, "000001", cn.DisplayNumber)
	assert.Equal(t, "-242.00", cn.Totals.TotalGross)

	rec = ts.do(t, http.MethodGet, "/api/credit-notes/"+cn.CreditNote.ID+"/pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".pdf")
	require.Len(t, ts.pdf.rendered, 1)
	assert.Equal(t, "Acont SRL", ts.pdf.rendered[0].Seller.Name)

	rec = ts.do(t, http.MethodGet, "/api/credit-notes/meta", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var meta creditnotedomain.Meta
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &meta))
	assert.Equal(t, "000002", meta.NextNumber)

	rec = ts.do(t, http.MethodPost, "/api/credit-notes/"+cn.CreditNote.ID+"/void", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/credit-notes?status=void", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var list creditnotedomain.ListResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &list))
	assert.Len(t, list.CreditNotes, 1)
}

func TestInvoicePDF(t *testing.T) {
	ts := newTestServer(t)
	inv := ts.createInvoice(t, invoiceBody(nil))

	rec := ts.do(t, http.MethodGet, "/api/invoices/"+inv.Invoice.ID+"/pdf", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `attachment; filename="facture-000001-atelier-dupont.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{"not found", document.ErrNotFound, http.StatusNotFound, "not_found"},
		{"wrapped not found", invoicedomain.ErrClientNotFound, http.StatusNotFound, "not_found"},
		{"client not found", clientdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"not draft", document.ErrNotDraft, http.StatusConflict, "not_draft"},
		{"transition", &document.TransitionError{From: document.StatusDraft, To: document.StatusPaid}, http.StatusConflict, "invalid_transition"},
		{"timeout", document.ErrConcurrencyTimeout, http.StatusServiceUnavailable, "concurrency_timeout"},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{"issue in progress", ErrIssueInProgress, http.StatusConflict, "issue_in_progress"},
		{"product validation", productdomain.ErrInvalidVATRate, http.StatusBadRequest, "validation_error"},
		{"document validation", document.ErrUnsupportedCurrency, http.StatusBadRequest, "validation_error"},
		{"merchant", document.ErrInvalidMerchant, http.StatusUnauthorized, "merchant_required"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.typ, payload.Type)
		})
	}
}

func TestClassifyErrorForLog(t *testing.T) {
	typ, code := classifyErrorForLog(&document.ChronologyViolation{
		Rule:    document.RuleFutureDate,
		Message: "Issue date cannot be in the future",
	})
	assert.Equal(t, "chronology_violation", typ)
	assert.Equal(t, "future_date", code)

	typ, code = classifyErrorForLog(productdomain.ErrInvalidName)
	assert.Equal(t, "validation_error", typ)
	assert.Equal(t, "invalid_name", code)
}
