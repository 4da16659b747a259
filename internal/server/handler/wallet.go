package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/marketlens/internal/domain"
)

// walletCacheTTL drives the Cache-Control header on successful portfolio
// responses. Degraded null/empty responses stay uncached so a recovering
// upstream shows through quickly.
const walletCacheTTL = time.Minute

// WalletService fetches per-wallet portfolio data from the data API.
type WalletService interface {
	GetPositions(ctx context.Context, wallet string) ([]domain.Position, error)
	GetValue(ctx context.Context, wallet string) ([]domain.AccountValue, error)
	GetAllTimePnL(ctx context.Context, wallet string) (*float64, error)
}

// WalletHandler serves the wallet portfolio endpoints.
type WalletHandler struct {
	wallets WalletService
	logger  *slog.Logger
}

// NewWalletHandler creates a WalletHandler with the given service and logger.
func NewWalletHandler(wallets WalletService, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{
		wallets: wallets,
		logger:  logger,
	}
}

// walletParam validates the wallet address carried by the named query
// parameters, writing a 400 and returning false when it is missing or not a
// hex address. The first non-empty parameter wins.
func (h *WalletHandler) walletParam(w http.ResponseWriter, r *http.Request, names ...string) (string, bool) {
	var wallet string
	for _, name := range names {
		if v := r.URL.Query().Get(name); v != "" {
			wallet = v
			break
		}
	}
	if wallet == "" {
		writeError(w, http.StatusBadRequest, "missing wallet")
		return "", false
	}
	if !domain.ValidWallet(wallet) {
		writeError(w, http.StatusBadRequest, "invalid wallet address")
		return "", false
	}
	return wallet, true
}

// GetPnL returns the wallet's all-time profit and loss. A wallet with no
// trading history yields a null value rather than an error.
// GET /api/pnl?wallet=0x... (address is accepted as an alias)
func (h *WalletHandler) GetPnL(w http.ResponseWriter, r *http.Request) {
	wallet, ok := h.walletParam(w, r, "wallet", "address")
	if !ok {
		return
	}

	pnl, err := h.wallets.GetAllTimePnL(r.Context(), wallet)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: get pnl failed",
			slog.String("wallet", wallet),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusOK, map[string]any{"allTimePnL": nil})
		return
	}

	setCacheHeader(w, walletCacheTTL)
	writeJSON(w, http.StatusOK, map[string]any{"allTimePnL": pnl})
}

// GetPositions returns the wallet's open positions. Unknown wallets and
// upstream failures both yield an empty list.
// GET /api/positions?user=0x...
func (h *WalletHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	wallet, ok := h.walletParam(w, r, "user")
	if !ok {
		return
	}

	positions, err := h.wallets.GetPositions(r.Context(), wallet)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: get positions failed",
			slog.String("wallet", wallet),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusOK, []domain.Position{})
		return
	}
	if positions == nil {
		positions = []domain.Position{}
	}

	setCacheHeader(w, walletCacheTTL)
	writeJSON(w, http.StatusOK, positions)
}

// GetValue returns the wallet's account value. Unknown wallets and upstream
// failures both yield null.
// GET /api/value?user=0x...
func (h *WalletHandler) GetValue(w http.ResponseWriter, r *http.Request) {
	wallet, ok := h.walletParam(w, r, "user")
	if !ok {
		return
	}

	values, err := h.wallets.GetValue(r.Context(), wallet)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: get value failed",
			slog.String("wallet", wallet),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusOK, nil)
		return
	}

	if len(values) == 0 {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	setCacheHeader(w, walletCacheTTL)
	writeJSON(w, http.StatusOK, values[0])
}
