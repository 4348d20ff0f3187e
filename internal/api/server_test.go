package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-trading-agent/internal/auth"
	"solana-trading-agent/internal/engine"
	"solana-trading-agent/internal/market"
	"solana-trading-agent/internal/regime"
	"solana-trading-agent/internal/strategy"
)

// stubAgent implements AgentAPI with canned data.
type stubAgent struct {
	candles map[string][]market.Candle
}

func newStubAgent() *stubAgent {
	candles := make([]market.Candle, 250)
	for i := range candles {
		candles[i] = market.Candle{
			Timestamp: int64(i) * 60_000,
			Open:      100, High: 100.5, Low: 99.5, Close: 100,
			Volume: 1000,
		}
	}
	return &stubAgent{candles: map[string][]market.Candle{"SOLUSDT": candles}}
}

func (a *stubAgent) Candles(symbol string) []market.Candle { return a.candles[symbol] }
func (a *stubAgent) CurrentPrice(symbol string) float64    { return 105 }
func (a *stubAgent) Capital() float64                      { return 10_000 }

func (a *stubAgent) CurrentRegime(symbol string) (regime.Regime, float64) {
	return regime.RiskOn, 100
}

func (a *stubAgent) Decide(ctx context.Context, symbol string) (*engine.Decision, error) {
	return &engine.Decision{
		CycleID: "test-cycle",
		Symbol:  symbol,
		Signal: engine.SizedSignal{
			Signal: strategy.Signal{Action: strategy.ActionBuy, EntryPrice: 105},
		},
		Analysis: &engine.TechnicalAnalysis{RSI: 55},
	}, nil
}

func (a *stubAgent) Symbols() []string { return []string{"SOLUSDT"} }

func testServer(jwtManager *auth.JWTManager) *Server {
	return testServerWithOperator(jwtManager, nil)
}

func testServerWithOperator(jwtManager *auth.JWTManager, operator *auth.OperatorAuth) *Server {
	cfg := ServerConfig{Port: 0, Host: "127.0.0.1", ProductionMode: true}
	return NewServer(cfg, nil, newStubAgent(), jwtManager, operator, zerolog.Nop())
}

func doRequest(s *Server, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func doJSONRequest(s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(nil)

	w := doRequest(s, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
}

func TestSymbolsEndpoint(t *testing.T) {
	s := testServer(nil)

	w := doRequest(s, http.MethodGet, "/api/symbols", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Symbols []string `json:"symbols"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, []string{"SOLUSDT"}, response.Symbols)
}

func TestRegimeEndpoint(t *testing.T) {
	s := testServer(nil)

	w := doRequest(s, http.MethodGet, "/api/regime/SOLUSDT", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "RISK_ON", response["regime"])
	assert.Equal(t, 100.0, response["trend_line"])
}

func TestAnalysisEndpoint(t *testing.T) {
	s := testServer(nil)

	w := doRequest(s, http.MethodGet, "/api/analysis/SOLUSDT", nil)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestAnalysisUnknownSymbol(t *testing.T) {
	s := testServer(nil)

	w := doRequest(s, http.MethodGet, "/api/analysis/DOGEUSDT", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDecideEndpoint(t *testing.T) {
	s := testServer(nil)

	w := doRequest(s, http.MethodPost, "/api/decide/SOLUSDT", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var decision engine.Decision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.Equal(t, "test-cycle", decision.CycleID)
	assert.Equal(t, strategy.ActionBuy, decision.Signal.Action)
}

func TestPersistenceEndpointsWithoutDatabase(t *testing.T) {
	s := testServer(nil)

	for _, path := range []string{
		"/api/decisions/SOLUSDT",
		"/api/positions",
		"/api/trades/SOLUSDT",
		"/api/regime-events/SOLUSDT",
	} {
		w := doRequest(s, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}

	for _, path := range []string{"/api/trades", "/api/trades/close"} {
		w := doJSONRequest(s, http.MethodPost, path, `{}`, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
}

func testOperator(jwtManager *auth.JWTManager, password string) *auth.OperatorAuth {
	passwords := auth.NewPasswordManager(4)
	hash, err := passwords.HashPassword(password)
	if err != nil {
		panic(err)
	}
	return auth.NewOperatorAuth("operator", hash, passwords, jwtManager)
}

func TestLoginIssuesUsableToken(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret-at-least-32-bytes-long!!", 15*time.Minute, time.Hour)
	s := testServerWithOperator(jwtManager, testOperator(jwtManager, "correct-horse"))

	w := doJSONRequest(s, http.MethodPost, "/api/auth/login",
		`{"username":"operator","password":"correct-horse"}`, nil)

	require.Equal(t, http.StatusOK, w.Code)

	var pair auth.TokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
	assert.Equal(t, "Bearer", pair.TokenType)
	require.NotEmpty(t, pair.AccessToken)

	// The issued token opens protected endpoints.
	w = doRequest(s, http.MethodGet, "/api/symbols", map[string]string{
		"Authorization": "Bearer " + pair.AccessToken,
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret-at-least-32-bytes-long!!", 15*time.Minute, time.Hour)
	s := testServerWithOperator(jwtManager, testOperator(jwtManager, "correct-horse"))

	w := doJSONRequest(s, http.MethodPost, "/api/auth/login",
		`{"username":"operator","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSONRequest(s, http.MethodPost, "/api/auth/login",
		`{"username":"intruder","password":"correct-horse"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshRotatesTokens(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret-at-least-32-bytes-long!!", 15*time.Minute, time.Hour)
	s := testServerWithOperator(jwtManager, testOperator(jwtManager, "correct-horse"))

	w := doJSONRequest(s, http.MethodPost, "/api/auth/login",
		`{"username":"operator","password":"correct-horse"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var first auth.TokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))

	w = doJSONRequest(s, http.MethodPost, "/api/auth/refresh",
		`{"refresh_token":"`+first.RefreshToken+`"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var second auth.TokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The consumed refresh token is dead.
	w = doJSONRequest(s, http.MethodPost, "/api/auth/refresh",
		`{"refresh_token":"`+first.RefreshToken+`"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginNotMountedWithoutOperator(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret-at-least-32-bytes-long!!", 15*time.Minute, time.Hour)
	s := testServer(jwtManager)

	w := doJSONRequest(s, http.MethodPost, "/api/auth/login",
		`{"username":"operator","password":"correct-horse"}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthRequiredWhenEnabled(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret-at-least-32-bytes-long!!", 15*time.Minute, time.Hour)
	s := testServer(jwtManager)

	// No token: rejected.
	w := doRequest(s, http.MethodGet, "/api/symbols", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Health stays public.
	w = doRequest(s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// A valid bearer token passes.
	token, err := jwtManager.GenerateAccessToken(auth.UserClaims{UserID: "op-1"})
	require.NoError(t, err)

	w = doRequest(s, http.MethodGet, "/api/symbols", map[string]string{
		"Authorization": "Bearer " + token,
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRejectsMalformedHeader(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret-at-least-32-bytes-long!!", 15*time.Minute, time.Hour)
	s := testServer(jwtManager)

	w := doRequest(s, http.MethodGet, "/api/symbols", map[string]string{
		"Authorization": "Token abc123",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	assert.True(t, rl.Allow("/api/test"))
	assert.True(t, rl.Allow("/api/test"))
	assert.True(t, rl.Allow("/api/test"))
	assert.False(t, rl.Allow("/api/test"))

	// Other keys have their own budgets.
	assert.True(t, rl.Allow("/api/other"))
}
