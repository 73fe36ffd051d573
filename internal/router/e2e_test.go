//go:build integration

package router_test

// End-to-end tests against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/funkypatns/Progym-sub001/internal/config"
	"github.com/funkypatns/Progym-sub001/internal/infra"
	"github.com/funkypatns/Progym-sub001/internal/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Suite setup ──────────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
	token  string // admin JWT
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("progym_test"),
		tcPostgres.WithUsername("progym"),
		tcPostgres.WithPassword("progym"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:               8000,
		Env:                "test",
		JWTSecret:          "test-secret-key",
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
		DatabaseURL:        pgURL,
		RedisURL:           rdURL,
		WorkerPoolSize:     1,
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	// Seed admin user
	hash, err := bcrypt.GenerateFromPassword([]byte("progym2026"), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, db.Exec(`INSERT INTO users (username, name, password_hash, role)
		VALUES ('admin@e2e.test', 'Admin E2E', ?, 'admin')
		ON CONFLICT DO NOTHING`, string(hash)).Error)

	r := router.New(cfg, db, rdb)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	loginResp := do(t, srv, "POST", "/v1/auth/login",
		jsonBody(t, map[string]string{"username": "admin@e2e.test", "password": "progym2026"}),
		"",
	)
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	var loginBody struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, loginResp, &loginBody)
	require.NotEmpty(t, loginBody.AccessToken)

	return &testEnv{server: srv, token: loginBody.AccessToken}
}

func createRegister(t *testing.T, env *testEnv, name string) string {
	t.Helper()
	resp := do(t, env.server, "POST", "/v1/registers",
		jsonBody(t, map[string]string{"name": name}), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var reg struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &reg)
	return reg.ID
}

// ── Tests ────────────────────────────────────────────────────────────────────

// Full drawer cycle: open shift, record a cash payment, close balanced.
func TestE2E_FullShiftCycle(t *testing.T) {
	env := setupTestEnv(t)
	regID := createRegister(t, env, "Front Desk")

	openResp := do(t, env.server, "POST", "/v1/shifts",
		jsonBody(t, map[string]any{"register_id": regID, "opening_cash": "100.00"}),
		env.token)
	require.Equal(t, http.StatusCreated, openResp.StatusCode)
	var shift struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeJSON(t, openResp, &shift)
	assert.Equal(t, "open", shift.Status)

	payResp := do(t, env.server, "POST", "/v1/payments",
		jsonBody(t, map[string]any{
			"amount":   "250.00",
			"method":   "cash",
			"concept":  "monthly membership",
			"shift_id": shift.ID,
		}), env.token)
	require.Equal(t, http.StatusCreated, payResp.StatusCode)

	// expected drawer = 100 opening float + 250 cash
	closeResp := do(t, env.server, "POST", "/v1/shifts/"+shift.ID+"/close",
		jsonBody(t, map[string]any{"closing_cash": "350.00"}), env.token)
	require.Equal(t, http.StatusOK, closeResp.StatusCode)
	var closed struct {
		Status           string `json:"status"`
		ExpectedCash     string `json:"expected_cash"`
		CashDifference   string `json:"cash_difference"`
		DifferenceStatus string `json:"difference_status"`
	}
	decodeJSON(t, closeResp, &closed)
	assert.Equal(t, "closed", closed.Status)
	assert.Equal(t, "350", closed.ExpectedCash)
	assert.Equal(t, "0", closed.CashDifference)
	assert.Equal(t, "balanced", closed.DifferenceStatus)
}

// The partial unique index on open shifts must surface as a structured
// conflict carrying the blocking shift's id.
func TestE2E_ShiftConflictCarriesBlockingShift(t *testing.T) {
	env := setupTestEnv(t)
	regID := createRegister(t, env, "Front Desk")

	first := do(t, env.server, "POST", "/v1/shifts",
		jsonBody(t, map[string]any{"register_id": regID, "opening_cash": "50.00"}),
		env.token)
	require.Equal(t, http.StatusCreated, first.StatusCode)
	var opened struct {
		ID string `json:"id"`
	}
	decodeJSON(t, first, &opened)

	second := do(t, env.server, "POST", "/v1/shifts",
		jsonBody(t, map[string]any{"register_id": regID, "opening_cash": "50.00"}),
		env.token)
	require.Equal(t, http.StatusConflict, second.StatusCode)
	var conflict struct {
		Code string            `json:"code"`
		Meta map[string]string `json:"meta"`
	}
	decodeJSON(t, second, &conflict)
	assert.Equal(t, "SHIFT_CONFLICT", conflict.Code)
	assert.Equal(t, opened.ID, conflict.Meta["shift_id"])
	assert.Equal(t, regID, conflict.Meta["register_id"])
}

// Consecutive closings must tile without gap or overlap, and figures must
// reflect only the ledger rows inside each window.
func TestE2E_ClosingsAreContiguous(t *testing.T) {
	env := setupTestEnv(t)
	regID := createRegister(t, env, "Front Desk")

	openResp := do(t, env.server, "POST", "/v1/shifts",
		jsonBody(t, map[string]any{"register_id": regID, "opening_cash": "0.00"}),
		env.token)
	require.Equal(t, http.StatusCreated, openResp.StatusCode)
	var shift struct {
		ID string `json:"id"`
	}
	decodeJSON(t, openResp, &shift)

	for _, amt := range []string{"120.00", "80.00"} {
		payResp := do(t, env.server, "POST", "/v1/payments",
			jsonBody(t, map[string]any{
				"amount":   amt,
				"method":   "cash",
				"concept":  "day pass",
				"shift_id": shift.ID,
			}), env.token)
		require.Equal(t, http.StatusCreated, payResp.StatusCode)
	}

	firstResp := do(t, env.server, "POST", "/v1/closings",
		jsonBody(t, map[string]any{
			"period_type":              "manual",
			"declared_cash_amount":     "200.00",
			"declared_non_cash_amount": "0.00",
		}), env.token)
	require.Equal(t, http.StatusCreated, firstResp.StatusCode)
	var first struct {
		Range struct {
			StartAt string `json:"start_at"`
			EndAt   string `json:"end_at"`
		} `json:"range"`
		ExpectedCashAmount string `json:"expected_cash_amount"`
		Status             string `json:"status"`
		PaymentCount       int    `json:"payment_count"`
	}
	decodeJSON(t, firstResp, &first)
	assert.Equal(t, "200", first.ExpectedCashAmount)
	assert.Equal(t, "balanced", first.Status)
	assert.Equal(t, 2, first.PaymentCount)

	// Empty follow-up period is rejected; record one more payment first.
	payResp := do(t, env.server, "POST", "/v1/payments",
		jsonBody(t, map[string]any{
			"amount":   "40.00",
			"method":   "card",
			"concept":  "personal training",
			"shift_id": shift.ID,
		}), env.token)
	require.Equal(t, http.StatusCreated, payResp.StatusCode)

	secondResp := do(t, env.server, "POST", "/v1/closings",
		jsonBody(t, map[string]any{
			"period_type":              "manual",
			"declared_cash_amount":     "0.00",
			"declared_non_cash_amount": "40.00",
		}), env.token)
	require.Equal(t, http.StatusCreated, secondResp.StatusCode)
	var second struct {
		Range struct {
			StartAt string `json:"start_at"`
		} `json:"range"`
		ExpectedNonCashAmount string `json:"expected_non_cash_amount"`
	}
	decodeJSON(t, secondResp, &second)
	assert.Equal(t, first.Range.EndAt, second.Range.StartAt)
	assert.Equal(t, "40", second.ExpectedNonCashAmount)
}

// Refunding a cash payment reduces the expected drawer on close.
func TestE2E_RefundReducesExpectedDrawer(t *testing.T) {
	env := setupTestEnv(t)
	regID := createRegister(t, env, "Front Desk")

	openResp := do(t, env.server, "POST", "/v1/shifts",
		jsonBody(t, map[string]any{"register_id": regID, "opening_cash": "0.00"}),
		env.token)
	require.Equal(t, http.StatusCreated, openResp.StatusCode)
	var shift struct {
		ID string `json:"id"`
	}
	decodeJSON(t, openResp, &shift)

	payResp := do(t, env.server, "POST", "/v1/payments",
		jsonBody(t, map[string]any{
			"amount":   "100.00",
			"method":   "cash",
			"concept":  "monthly membership",
			"shift_id": shift.ID,
		}), env.token)
	require.Equal(t, http.StatusCreated, payResp.StatusCode)
	var payment struct {
		ID string `json:"id"`
	}
	decodeJSON(t, payResp, &payment)

	refundResp := do(t, env.server, "POST", "/v1/payments/"+payment.ID+"/refund",
		jsonBody(t, map[string]any{"amount": "30.00", "reason": "member cancelled"}),
		env.token)
	require.Equal(t, http.StatusOK, refundResp.StatusCode)

	closeResp := do(t, env.server, "POST", "/v1/shifts/"+shift.ID+"/close",
		jsonBody(t, map[string]any{"closing_cash": "70.00"}), env.token)
	require.Equal(t, http.StatusOK, closeResp.StatusCode)
	var closed struct {
		ExpectedCash     string `json:"expected_cash"`
		DifferenceStatus string `json:"difference_status"`
	}
	decodeJSON(t, closeResp, &closed)
	assert.Equal(t, "70", closed.ExpectedCash)
	assert.Equal(t, "balanced", closed.DifferenceStatus)
}
