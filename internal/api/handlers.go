package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zappabad/coinsim/internal/admin"
	"github.com/zappabad/coinsim/internal/market"
	"github.com/zappabad/coinsim/internal/market/core"
	"github.com/zappabad/coinsim/internal/market/service"
)

// AdminPasswordHeader carries the admin password on admin routes.
const AdminPasswordHeader = "X-Admin-Password"

const defaultLogLines = 32

// Handler serves the market routes.
type Handler struct {
	cfg      Config
	svc      *service.MarketService
	gate     *admin.Gate
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func newHandler(cfg Config, svc *service.MarketService, gate *admin.Gate, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:    cfg,
		svc:    svc,
		gate:   gate,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// amountRequest is the JSON body of trade and admin routes.
type amountRequest struct {
	Amount *float64 `json:"amount"`
}

func (h *Handler) parseAmount(w http.ResponseWriter, r *http.Request) (float64, bool) {
	var req amountRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return 0, false
	}
	if req.Amount == nil {
		WriteError(w, http.StatusBadRequest, core.ErrorCode(core.ErrInvalidAmount), "amount is required")
		return 0, false
	}
	return *req.Amount, true
}

func (h *Handler) symbol(w http.ResponseWriter, r *http.Request) (market.Symbol, bool) {
	sym := market.Symbol(chi.URLParam(r, "symbol"))
	if _, ok := h.svc.Registry().Lookup(sym); !ok {
		writeDomainError(w, core.ErrUnknownAsset)
		return "", false
	}
	return sym, true
}

// GetState handles GET /state.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.svc.Snapshot())
}

// ListAssets handles GET /assets.
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.svc.Registry())
}

// GetHistory handles GET /assets/{symbol}/history?n=.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	sym, ok := h.symbol(w, r)
	if !ok {
		return
	}
	n, ok := queryInt(w, r, "n", 0)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"symbol": sym,
		"points": h.svc.View().History(sym, n),
	})
}

// GetLog handles GET /log?n=.
func (h *Handler) GetLog(w http.ResponseWriter, r *http.Request) {
	n, ok := queryInt(w, r, "n", defaultLogLines)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, h.svc.View().Log(n))
}

// Buy handles POST /assets/{symbol}/buy.
func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	sym, ok := h.symbol(w, r)
	if !ok {
		return
	}
	amount, ok := h.parseAmount(w, r)
	if !ok {
		return
	}
	report, err := h.svc.Buy(r.Context(), sym, amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

// Sell handles POST /assets/{symbol}/sell.
func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	sym, ok := h.symbol(w, r)
	if !ok {
		return
	}
	amount, ok := h.parseAmount(w, r)
	if !ok {
		return
	}
	report, err := h.svc.Sell(r.Context(), sym, amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

// Reset handles POST /reset.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reset(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.svc.Snapshot())
}

// CreditCash handles POST /admin/credit.
func (h *Handler) CreditCash(w http.ResponseWriter, r *http.Request) {
	if h.gate == nil {
		writeDomainError(w, admin.ErrDisabled)
		return
	}
	amount, ok := h.parseAmount(w, r)
	if !ok {
		return
	}
	if err := h.gate.CreditCash(r.Context(), r.Header.Get(AdminPasswordHeader), amount); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]float64{"cash": h.svc.Snapshot().Cash})
}

func queryInt(w http.ResponseWriter, r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		WriteError(w, http.StatusBadRequest, "invalid_request", key+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
