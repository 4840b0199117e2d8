package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/betslip/internal/domain"
	"github.com/alanyoungcy/betslip/internal/server/handler"
	"github.com/alanyoungcy/betslip/internal/server/middleware"
	"github.com/alanyoungcy/betslip/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // guards back-office routes; empty disables auth

	CookieName   string
	SecureCookie bool

	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Cart     *handler.CartHandler
	Receipts *handler.ReceiptHandler // optional
}

// Server is the HTTP + WebSocket API in front of the visitors' carts.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// limiter and wsHub may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      Routes(cfg, handlers, wsHub, limiter, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return &Server{httpServer: srv, logger: logger}
}

// Routes builds the routed, middleware-wrapped handler.
func Routes(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	c := handlers.Cart
	mux.HandleFunc("GET /api/cart", c.GetCart)
	mux.HandleFunc("DELETE /api/cart", c.ClearCart)
	mux.HandleFunc("POST /api/cart/items", c.AddItem)
	mux.HandleFunc("DELETE /api/cart/items/{index}", c.RemoveItem)
	mux.HandleFunc("PUT /api/cart/items/{index}/stake", c.UpdateStake)
	mux.HandleFunc("POST /api/cart/items/{index}/selection", c.ToggleSelection)
	mux.HandleFunc("POST /api/cart/mode", c.ToggleMode)
	mux.HandleFunc("PUT /api/cart/tab", c.SwitchTab)
	mux.HandleFunc("POST /api/cart/combinations", c.CreateCombination)
	mux.HandleFunc("PUT /api/cart/combinations/{id}/stake", c.UpdateCombinationStake)
	mux.HandleFunc("DELETE /api/cart/combinations/{id}", c.RemoveCombination)
	mux.HandleFunc("GET /api/cart/message", c.Message)
	mux.HandleFunc("POST /api/cart/send", c.Send)

	if handlers.Receipts != nil {
		mux.Handle("GET /api/receipts",
			middleware.Auth(cfg.APIKey, logger)(http.HandlerFunc(handlers.Receipts.ListReceipts)))
	}

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	cookie := cfg.CookieName
	if cookie == "" {
		cookie = "betslip_session"
	}

	var h http.Handler = mux
	h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow, logger)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Session(cookie, cfg.SecureCookie)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	return h
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
