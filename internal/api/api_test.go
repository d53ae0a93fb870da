package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zappabad/coinsim/internal/admin"
	"github.com/zappabad/coinsim/internal/market"
	"github.com/zappabad/coinsim/internal/market/core"
	"github.com/zappabad/coinsim/internal/market/service"
	marketview "github.com/zappabad/coinsim/internal/market/view"
	"github.com/zappabad/coinsim/internal/metrics"
)

// testEnv bundles the router and the service behind it.
type testEnv struct {
	router http.Handler
	svc    *service.MarketService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := metrics.NewRecorder()

	svc, err := service.NewMarketService(context.Background(), market.DefaultRegistry(), service.DefaultConfig(), service.Deps{
		Logger:  logger,
		Metrics: rec,
		Rand:    rand.New(rand.NewPCG(1, 2)),
	})
	if err != nil {
		t.Fatalf("NewMarketService: %v", err)
	}
	t.Cleanup(svc.Close)

	gate, err := admin.NewGate(admin.DefaultConfig(), svc, logger)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	return &testEnv{
		router: NewRouter(DefaultConfig(), svc, gate, rec.Handler(), logger),
		svc:    svc,
	}
}

// doJSON sends a JSON request and returns the recorder.
func (env *testEnv) doJSON(t *testing.T, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.doJSON(t, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestBuyAndState(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/assets/LTC/buy", map[string]float64{"amount": 10}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	report := decode[core.TradeReport](t, rec)
	if report.Filled != 10 || report.Value != 700 {
		t.Fatalf("unexpected report %+v", report)
	}

	rec = env.doJSON(t, http.MethodGet, "/state", nil, nil)
	snap := decode[marketview.GameSnapshot](t, rec)
	if snap.Cash != 99300 {
		t.Fatalf("expected cash 99300, got %v", snap.Cash)
	}
	ltc, ok := snap.Quote("LTC")
	if !ok || ltc.Held != 10 {
		t.Fatalf("unexpected LTC quote %+v", ltc)
	}
}

func TestTradeErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown asset", "/assets/DOGE/buy", map[string]float64{"amount": 1}, http.StatusNotFound, "unknown_asset"},
		{"negative amount", "/assets/BTC/buy", map[string]float64{"amount": -1}, http.StatusBadRequest, "invalid_amount"},
		{"missing amount", "/assets/BTC/buy", map[string]string{}, http.StatusBadRequest, "invalid_amount"},
		{"unknown field", "/assets/BTC/buy", map[string]float64{"qty": 1}, http.StatusBadRequest, "invalid_request"},
		{"insufficient funds", "/assets/BTC/buy", map[string]float64{"amount": 100}, http.StatusUnprocessableEntity, "insufficient_funds"},
		{"insufficient holdings", "/assets/BTC/sell", map[string]float64{"amount": 5}, http.StatusUnprocessableEntity, "insufficient_holdings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.doJSON(t, http.MethodPost, tt.path, tt.body, nil)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			resp := decode[errorResponse](t, rec)
			if resp.Error != tt.code {
				t.Fatalf("expected error %q, got %q", tt.code, resp.Error)
			}
		})
	}
}

func TestRejectsNonJSONBody(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/assets/BTC/buy", strings.NewReader("amount=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHistoryAndLog(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		if err := env.svc.Tick(context.Background()); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	env.doJSON(t, http.MethodPost, "/assets/BTC/buy", map[string]float64{"amount": 1}, nil)

	rec := env.doJSON(t, http.MethodGet, "/assets/BTC/history?n=2", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	hist := decode[struct {
		Symbol string              `json:"symbol"`
		Points []core.HistoryPoint `json:"points"`
	}](t, rec)
	if hist.Symbol != "BTC" || len(hist.Points) != 2 {
		t.Fatalf("unexpected history %+v", hist)
	}

	if rec := env.doJSON(t, http.MethodGet, "/assets/BTC/history?n=abc", nil, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad n, got %d", rec.Code)
	}

	rec = env.doJSON(t, http.MethodGet, "/log?n=1", nil, nil)
	logs := decode[[]map[string]any](t, rec)
	if len(logs) != 1 || !strings.HasPrefix(logs[0]["headline"].(string), "You bought 1.000000 BTC") {
		t.Fatalf("unexpected log %+v", logs)
	}
}

func TestReset(t *testing.T) {
	env := newTestEnv(t)
	env.doJSON(t, http.MethodPost, "/assets/LTC/buy", map[string]float64{"amount": 10}, nil)

	rec := env.doJSON(t, http.MethodPost, "/reset", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	snap := decode[marketview.GameSnapshot](t, rec)
	if snap.Cash != core.DefaultStartingCash || len(snap.Log) != 0 {
		t.Fatalf("unexpected snapshot after reset %+v", snap)
	}
}

func TestAdminCredit(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]float64{"amount": 2500}

	rec := env.doJSON(t, http.MethodPost, "/admin/credit", body, map[string]string{AdminPasswordHeader: "nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = env.doJSON(t, http.MethodPost, "/admin/credit", map[string]float64{"amount": 0},
		map[string]string{AdminPasswordHeader: admin.DefaultPassword})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero credit, got %d", rec.Code)
	}

	rec = env.doJSON(t, http.MethodPost, "/admin/credit", body, map[string]string{AdminPasswordHeader: admin.DefaultPassword})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[map[string]float64](t, rec)["cash"]; got != 102500 {
		t.Fatalf("expected cash 102500, got %v", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.doJSON(t, http.MethodPost, "/assets/LTC/buy", map[string]float64{"amount": 1}, nil)

	rec := env.doJSON(t, http.MethodGet, "/metrics", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `coinsim_commands_total{command="buy",outcome="ok"} 1`) {
		t.Fatalf("expected buy counter in metrics output")
	}
}

func TestStream(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first streamMessage
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if first.Kind != "snapshot" {
		t.Fatalf("expected snapshot first, got %q", first.Kind)
	}

	if err := env.svc.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	for {
		var msg streamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read event: %v", err)
		}
		if msg.Kind == "tick" {
			if msg.Seq == 0 {
				t.Fatal("expected sequenced event")
			}
			return
		}
	}
}
