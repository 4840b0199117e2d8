package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/betslip/internal/cart"
	"github.com/alanyoungcy/betslip/internal/domain"
	"github.com/alanyoungcy/betslip/internal/message"
	"github.com/alanyoungcy/betslip/internal/server/middleware"
	"github.com/alanyoungcy/betslip/internal/session"
)

// Sessions runs a function against a visitor's session.
type Sessions interface {
	Do(ctx context.Context, id string, fn func(*session.Session) error) error
}

// CartResponse is the body of every cart endpoint.
type CartResponse struct {
	Cart    domain.CartView `json:"cart"`
	Notices []domain.Notice `json:"notices"`
	Message string          `json:"message,omitempty"`
	URL     string          `json:"url,omitempty"`
}

type stakeRequest struct {
	Amount cart.RawAmount `json:"amount"`
}

type tabRequest struct {
	Tab domain.Tab `json:"tab"`
}

// CartHandler maps HTTP requests onto the visitor's cart. Validation
// failures are soft: they answer 200 with the notice the cart raised.
type CartHandler struct {
	sessions Sessions
	logger   *slog.Logger
}

// NewCartHandler creates a CartHandler.
func NewCartHandler(sessions Sessions, logger *slog.Logger) *CartHandler {
	return &CartHandler{sessions: sessions, logger: logHandler(logger, "cart")}
}

// run executes op inside the request's session and writes the resulting cart
// and the notices raised along the way.
func (h *CartHandler) run(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, s *session.Session, resp *CartResponse)) {
	ctx := r.Context()
	id := middleware.SessionID(ctx)
	if id == "" {
		writeError(w, http.StatusBadRequest, "no session")
		return
	}

	var resp CartResponse
	err := h.sessions.Do(ctx, id, func(s *session.Session) error {
		op(ctx, s, &resp)
		resp.Cart = s.Store.View()
		resp.Notices = s.Notices.Drain()
		return nil
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "session failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetCart returns the current cart.
// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(context.Context, *session.Session, *CartResponse) {})
}

// ClearCart empties the cart.
// DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context, s *session.Session, _ *CartResponse) {
		s.Store.Clear(ctx)
	})
}

// AddItem adds a wager.
// POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var c cart.Candidate
	if err := decodeBody(r, &c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if c.MatchID == "" || c.BetType == "" {
		writeError(w, http.StatusBadRequest, "partidoId and tipo are required")
		return
	}
	h.run(w, r, func(ctx context.Context, s *session.Session, _ *CartResponse) {
		_ = s.Store.AddItem(ctx, c)
	})
}

// RemoveItem deletes the wager at {index}.
// DELETE /api/cart/items/{index}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(r, "index")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}
	h.run(w, r, func(ctx context.Context, s *session.Session, _ *CartResponse) {
		s.Store.RemoveItem(ctx, index)
	})
}

// UpdateStake sets the stake of the wager at {index}.
// PUT /api/cart/items/{index}/stake
func (h *CartHandler) UpdateStake(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(r, "index")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}
	var req stakeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.run(w, r, func(ctx context.Context, s *session.Session, _ *CartResponse) {
		_ = s.Store.UpdateStake(ctx, index, string(req.Amount))
	})
}

// ToggleSelection flips the selection of the wager at {index}.
// POST /api/cart/items/{index}/selection
func (h *CartHandler) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(r, "index")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}
	h.run(w, r, func(ctx context.Context, s *session.Session, _ *CartResponse) {
		s.Store.ToggleSelection(ctx, index)
	})
}

// ToggleMode enters or leaves combination mode.
// POST /api/cart/mode
func (h *CartHandler) ToggleMode(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context, s *session.Session, _ *CartResponse) {
		s.Store.ToggleCombinationMode(ctx)
	})
}

// SwitchTab changes the visible list.
// PUT /api/cart/tab
func (h *CartHandler) SwitchTab(w http.ResponseWriter, r *http.Request) {
	var req tabRequest
	if err := decodeBody(r, &req); err != nil || !req.Tab.Valid() {
		writeError(w, http.StatusBadRequest, "tab must be individual or combinations")
		return
	}
	h.run(w, r, func(ctx context.Context, s *session.Session, _ *CartResponse) {
		s.Store.SwitchTab(ctx, req.Tab)
	})
}

// CreateCombination bundles the selected wagers.
// POST /api/cart/combinations
func (h *CartHandler) CreateCombination(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context, s *session.Session, _ *CartResponse) {
		_, _ = s.Store.CreateCombination(ctx)
	})
}

// UpdateCombinationStake sets the stake of combination {id}.
// PUT /api/cart/combinations/{id}/stake
func (h *CartHandler) UpdateCombinationStake(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req stakeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.run(w, r, func(ctx context.Context, s *session.Session, _ *CartResponse) {
		_ = s.Store.UpdateCombinationStake(ctx, id, string(req.Amount))
	})
}

// RemoveCombination deletes combination {id} and releases its wagers.
// DELETE /api/cart/combinations/{id}
func (h *CartHandler) RemoveCombination(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.run(w, r, func(ctx context.Context, s *session.Session, _ *CartResponse) {
		s.Store.RemoveCombination(ctx, id)
	})
}

// Message previews the outbound message; ?encoded=true returns it URL-escaped.
// GET /api/cart/message
func (h *CartHandler) Message(w http.ResponseWriter, r *http.Request) {
	mode := message.Raw
	if encoded, _ := strconv.ParseBool(r.URL.Query().Get("encoded")); encoded {
		mode = message.Encoded
	}
	h.run(w, r, func(ctx context.Context, s *session.Session, resp *CartResponse) {
		resp.Message, _ = s.Checkout.Message(ctx, mode)
	})
}

// Send hands the cart to the messaging link. On success the response carries
// the URL for the client to open and the cart comes back empty.
// POST /api/cart/send
func (h *CartHandler) Send(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, func(ctx context.Context, s *session.Session, resp *CartResponse) {
		url, err := s.Checkout.Send(ctx)
		if err != nil {
			if !isValidation(err) {
				h.logger.WarnContext(ctx, "send failed", slog.String("error", err.Error()))
			}
			return
		}
		resp.URL = url
		s.Opener.Take()
	})
}

func isValidation(err error) bool {
	return errors.Is(err, domain.ErrEmptyCart) ||
		errors.Is(err, domain.ErrUnfundedWager) ||
		errors.Is(err, domain.ErrUnfundedCombination)
}
