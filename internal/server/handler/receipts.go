package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/betslip/internal/domain"
)

// ReceiptHandler lists recorded sends for back-office use.
type ReceiptHandler struct {
	receipts domain.ReceiptLister
	logger   *slog.Logger
}

// NewReceiptHandler creates a ReceiptHandler.
func NewReceiptHandler(receipts domain.ReceiptLister, logger *slog.Logger) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts, logger: logHandler(logger, "receipts")}
}

// ListReceipts returns receipts newest first.
// GET /api/receipts?limit=&offset=&since=&until=
func (h *ReceiptHandler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := h.receipts.List(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list receipts failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if receipts == nil {
		receipts = []domain.Receipt{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"receipts": receipts})
}
