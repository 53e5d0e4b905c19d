package transport_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ziflex/lecho/v3"

	"github.com/escrowhub/escrowhub.go/ledger"
	"github.com/escrowhub/escrowhub.go/lib/service"
	"github.com/escrowhub/escrowhub.go/lib/tokens"
	"github.com/escrowhub/escrowhub.go/lib/transport"
	"github.com/escrowhub/escrowhub.go/wallet"
)

const (
	testSecret     = "test-secret"
	testAdminToken = "test-admin-token"
)

func setupServer(t *testing.T) (*echo.Echo, *service.EscrowService) {
	cfg := &service.Config{
		JWTSecret:            []byte(testSecret),
		JWTAccessTokenExpiry: 3600,
		AdminToken:           testAdminToken,
		DefaultRateLimit:     1000,
		StrictRateLimit:      1000,
		BurstRateLimit:       100,
	}
	logger := lecho.New(io.Discard)
	svc := &service.EscrowService{
		Config:        cfg,
		Logger:        logger,
		EventLog:      service.NewEventLog(),
		InvoicePubSub: service.NewPubsub(logger),
	}
	escrowLedger, err := ledger.New(ledger.NewMemoryStore(), wallet.NewMemoryBook(), "carol", ledger.WithEmitter(svc))
	require.NoError(t, err)
	svc.Ledger = escrowLedger

	e := transport.InitEcho(cfg, svc.Logger)
	logMw := transport.CreateLoggingMiddleware(svc.Logger)
	strictRateLimitMiddleware := transport.CreateRateLimitMiddleware(cfg.StrictRateLimit, cfg.BurstRateLimit)

	secured := e.Group("", tokens.Middleware(cfg.JWTSecret), logMw)
	securedWithStrictRateLimit := e.Group("", tokens.Middleware(cfg.JWTSecret), strictRateLimitMiddleware, logMw)

	transport.RegisterV2Endpoints(svc, e, secured, securedWithStrictRateLimit, strictRateLimitMiddleware, tokens.AdminTokenMiddleware(cfg.AdminToken), logMw)
	return e, svc
}

func accessToken(t *testing.T, principal string) string {
	token, err := tokens.GenerateAccessToken([]byte(testSecret), time.Hour, ledger.Identity(principal))
	require.NoError(t, err)
	return token
}

func doRequest(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthEndpoint(t *testing.T) {
	e, _ := setupServer(t)

	rec := doRequest(e, http.MethodGet, "/v2/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", decodeBody(t, rec)["result"])
}

func TestEndpointsRequireToken(t *testing.T) {
	e, _ := setupServer(t)

	rec := doRequest(e, http.MethodPost, "/v2/invoices", "", `{"freelancer":"bob","amount":"100","description":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(e, http.MethodGet, "/v2/invoices/0", "garbage-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInvoiceLifecycleOverHTTP(t *testing.T) {
	e, _ := setupServer(t)
	alice := accessToken(t, "alice")
	bob := accessToken(t, "bob")

	rec := doRequest(e, http.MethodPost, "/v2/invoices", alice, `{"freelancer":"bob","amount":"1200","description":"logo design"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decodeBody(t, rec)["id"])

	// wrong amount is rejected and does not change state
	rec = doRequest(e, http.MethodPost, "/v2/invoices/0/fund", alice, `{"amount":"1199"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(e, http.MethodPost, "/v2/invoices/0/fund", alice, `{"amount":"1200"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(ledger.StatusFunded), decodeBody(t, rec)["status"])

	// only the freelancer can mark completed
	rec = doRequest(e, http.MethodPost, "/v2/invoices/0/complete", alice, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(e, http.MethodPost, "/v2/invoices/0/complete", bob, "")
	require.Equal(t, http.StatusOK, rec.Code)

	// only the client can release
	rec = doRequest(e, http.MethodPost, "/v2/invoices/0/release", bob, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(e, http.MethodPost, "/v2/invoices/0/release", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(ledger.StatusPaid), body["status"])
	assert.Equal(t, "paid", body["status_label"])

	rec = doRequest(e, http.MethodGet, "/v2/invoices/0/status", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decodeBody(t, rec)["status"])

	rec = doRequest(e, http.MethodGet, "/v2/invoices/count", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["count"])

	rec = doRequest(e, http.MethodGet, "/v2/invoices/0/events", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events struct {
		Events []ledger.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events.Events, 4)
	assert.Equal(t, ledger.EventTypeInvoiceReleased, events.Events[3].Type)
}

func TestUnknownInvoiceReturns404(t *testing.T) {
	e, _ := setupServer(t)
	alice := accessToken(t, "alice")

	rec := doRequest(e, http.MethodGet, "/v2/invoices/42", alice, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(e, http.MethodPost, "/v2/invoices/42/release", alice, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelConflictsAfterFunding(t *testing.T) {
	e, _ := setupServer(t)
	alice := accessToken(t, "alice")

	rec := doRequest(e, http.MethodPost, "/v2/invoices", alice, `{"freelancer":"bob","amount":"300","description":"banner"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(e, http.MethodPost, "/v2/invoices/0/fund", alice, `{"amount":"300"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(e, http.MethodPost, "/v2/invoices/0/cancel", alice, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDisputeResolutionOverHTTP(t *testing.T) {
	e, _ := setupServer(t)
	alice := accessToken(t, "alice")
	carol := accessToken(t, "carol")

	rec := doRequest(e, http.MethodPost, "/v2/invoices", alice, `{"freelancer":"bob","amount":"800","description":"research"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(e, http.MethodPost, "/v2/invoices/0/fund", alice, `{"amount":"800"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// a non-arbiter verdict is rejected
	rec = doRequest(e, http.MethodPost, "/v2/admin/disputes/0/resolve", alice, `{"release_to_freelancer":false}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(e, http.MethodPost, "/v2/admin/disputes/0/resolve", carol, `{"release_to_freelancer":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(ledger.StatusCancelled), decodeBody(t, rec)["status"])
}

func TestTransferArbiterOverHTTP(t *testing.T) {
	e, svc := setupServer(t)
	carol := accessToken(t, "carol")

	rec := doRequest(e, http.MethodPost, "/v2/admin/arbiter", carol, `{"arbiter":"dave"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dave", decodeBody(t, rec)["arbiter"])
	assert.Equal(t, ledger.Identity("dave"), svc.Ledger.Arbiter())

	// carol no longer holds the role
	rec = doRequest(e, http.MethodPost, "/v2/admin/arbiter", carol, `{"arbiter":"erin"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthEndpointRequiresAdminToken(t *testing.T) {
	e, _ := setupServer(t)

	rec := doRequest(e, http.MethodPost, "/auth", "wrong-admin-token", `{"principal":"alice"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(e, http.MethodPost, "/auth", testAdminToken, `{"principal":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	issued := decodeBody(t, rec)["access_token"].(string)
	require.NotEmpty(t, issued)

	// the issued token works against secured endpoints
	rec = doRequest(e, http.MethodPost, "/v2/invoices", issued, `{"freelancer":"bob","amount":"100","description":"sketch"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}
