package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/betslip/internal/contact"
	"github.com/alanyoungcy/betslip/internal/domain"
	"github.com/alanyoungcy/betslip/internal/message"
	"github.com/alanyoungcy/betslip/internal/server/handler"
	"github.com/alanyoungcy/betslip/internal/session"
	"github.com/alanyoungcy/betslip/internal/store/memory"
)

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type cartBody struct {
	Cart    domain.CartView `json:"cart"`
	Notices []domain.Notice `json:"notices"`
	Message string          `json:"message"`
	URL     string          `json:"url"`
}

type stubReceipts struct {
	opts domain.ListOpts
}

func (s *stubReceipts) List(_ context.Context, opts domain.ListOpts) ([]domain.Receipt, error) {
	s.opts = opts
	return []domain.Receipt{{ID: "r1", Session: "s"}}, nil
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string, int, time.Duration) (bool, error) { return false, nil }

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

type client struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
}

func newClient(t *testing.T, cfg Config, limiter domain.RateLimiter, receipts domain.ReceiptLister) *client {
	t.Helper()
	manager := session.NewManager(session.Config{}, session.Deps{
		Slots:     memory.NewSlotStore(),
		Formatter: message.NewFormatter("", nil),
		Contacts:  contact.Static("5215550001111"),
	}, nopLogger())

	handlers := Handlers{
		Health: handler.NewHealthHandler(nil, nopLogger()),
		Cart:   handler.NewCartHandler(manager, nopLogger()),
	}
	if receipts != nil {
		handlers.Receipts = handler.NewReceiptHandler(receipts, nopLogger())
	}
	return &client{t: t, handler: Routes(cfg, handlers, nil, limiter, nopLogger())}
}

func (c *client) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	c.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		c.cookies = cookies
	}
	return rec
}

func (c *client) cart(method, path, body string) cartBody {
	c.t.Helper()
	rec := c.do(method, path, body)
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())
	var out cartBody
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

const wagerM1 = `{"partidoId":"m1","tipo":"1X2","tipoLabel":"Local","cuota":"1.8","liga":"La Liga","hora":"20:00","local":"Betis","visitante":"Sevilla"}`
const wagerM2 = `{"partidoId":"m2","tipo":"1X2","tipoLabel":"Visitante","cuota":2.1,"liga":"La Liga","hora":"22:00","local":"Girona","visitante":"Celta"}`

func TestCartFlow(t *testing.T) {
	c := newClient(t, Config{}, nil, nil)

	body := c.cart(http.MethodPost, "/api/cart/items", wagerM1)
	require.Len(t, c.cookies, 1, "a session cookie is issued")
	assert.Equal(t, "betslip_session", c.cookies[0].Name)
	assert.Len(t, body.Cart.Items, 1)
	require.Len(t, body.Notices, 1)
	assert.Equal(t, "Apuesta agregada al carrito", body.Notices[0].Message)

	body = c.cart(http.MethodPost, "/api/cart/items", wagerM1)
	assert.Len(t, body.Cart.Items, 1)
	assert.Equal(t, domain.NoticeWarning, body.Notices[0].Kind)

	c.cart(http.MethodPost, "/api/cart/items", wagerM2)
	body = c.cart(http.MethodPut, "/api/cart/items/0/stake", `{"amount":"10"}`)
	assert.Equal(t, "10", body.Cart.Items[0].Stake.String())

	body = c.cart(http.MethodPut, "/api/cart/items/0/stake", `{"amount":-3}`)
	assert.Equal(t, "10", body.Cart.Items[0].Stake.String())
	assert.Equal(t, "El monto debe ser mayor a 0", body.Notices[0].Message)

	body = c.cart(http.MethodPost, "/api/cart/mode", "")
	assert.True(t, body.Cart.CombinationMode)
	c.cart(http.MethodPost, "/api/cart/items/0/selection", "")
	body = c.cart(http.MethodPost, "/api/cart/items/1/selection", "")
	assert.Equal(t, 2, body.Cart.SelectedCount)

	body = c.cart(http.MethodPost, "/api/cart/combinations", "")
	require.Len(t, body.Cart.Combinations, 1)
	combo := body.Cart.Combinations[0]
	assert.Equal(t, "3.9", combo.CombinedOdds.String())
	assert.False(t, body.Cart.CombinationMode)
	assert.Equal(t, 3, body.Cart.BadgeCount)

	body = c.cart(http.MethodPut, "/api/cart/combinations/"+combo.ID+"/stake", `{"amount":"5"}`)
	assert.Equal(t, "5", body.Cart.Combinations[0].Stake.String())

	body = c.cart(http.MethodPut, "/api/cart/tab", `{"tab":"combinations"}`)
	assert.Equal(t, domain.TabCombinations, body.Cart.ActiveTab)

	body = c.cart(http.MethodGet, "/api/cart/message", "")
	assert.Contains(t, body.Message, "🎯 *Combinación 1 (2 apuestas):*")
	assert.Contains(t, body.Message, "• *Total apostado: $15.00*")

	body = c.cart(http.MethodGet, "/api/cart/message?encoded=true", "")
	assert.NotContains(t, body.Message, " ")

	body = c.cart(http.MethodPost, "/api/cart/send", "")
	assert.True(t, strings.HasPrefix(body.URL, "https://wa.me/5215550001111?text="), body.URL)
	assert.Empty(t, body.Cart.Items)
	assert.Empty(t, body.Cart.Combinations)
	last := body.Notices[len(body.Notices)-1]
	assert.Equal(t, "Mensaje enviado correctamente", last.Message)
}

func TestSendEmptyCart(t *testing.T) {
	c := newClient(t, Config{}, nil, nil)

	body := c.cart(http.MethodPost, "/api/cart/send", "")
	assert.Empty(t, body.URL)
	require.Len(t, body.Notices, 1)
	assert.Equal(t, "Agrega apuestas al carrito primero", body.Notices[0].Message)
}

func TestRemoveAndClear(t *testing.T) {
	c := newClient(t, Config{}, nil, nil)
	c.cart(http.MethodPost, "/api/cart/items", wagerM1)
	c.cart(http.MethodPost, "/api/cart/items", wagerM2)

	body := c.cart(http.MethodDelete, "/api/cart/items/7", "")
	assert.Len(t, body.Cart.Items, 2, "stale indexes are ignored")

	body = c.cart(http.MethodDelete, "/api/cart/items/0", "")
	require.Len(t, body.Cart.Items, 1)
	assert.Equal(t, "m2", body.Cart.Items[0].MatchID)

	body = c.cart(http.MethodDelete, "/api/cart", "")
	assert.Empty(t, body.Cart.Items)
	assert.Equal(t, "Carrito limpiado", body.Notices[0].Message)

	body = c.cart(http.MethodGet, "/api/cart", "")
	assert.Empty(t, body.Cart.Items)
	assert.NotNil(t, body.Notices)
}

func TestBadRequests(t *testing.T) {
	c := newClient(t, Config{}, nil, nil)

	tests := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/cart/items", `{"tipo":"1X2"}`},
		{http.MethodPost, "/api/cart/items", `not json`},
		{http.MethodDelete, "/api/cart/items/abc", ""},
		{http.MethodPut, "/api/cart/items/-1/stake", `{"amount":"1"}`},
		{http.MethodPut, "/api/cart/tab", `{"tab":"other"}`},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := c.do(tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSessionsAreSeparate(t *testing.T) {
	a := newClient(t, Config{}, nil, nil)
	a.cart(http.MethodPost, "/api/cart/items", wagerM1)

	b := &client{t: t, handler: a.handler}
	body := b.cart(http.MethodGet, "/api/cart", "")
	assert.Empty(t, body.Cart.Items)

	body = a.cart(http.MethodGet, "/api/cart", "")
	assert.Len(t, body.Cart.Items, 1)
}

func TestHealth(t *testing.T) {
	c := newClient(t, Config{}, nil, nil)
	rec := c.do(http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHealthDegraded(t *testing.T) {
	h := handler.NewHealthHandler(map[string]handler.Check{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}, nopLogger())
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestReceiptsRequireAPIKey(t *testing.T) {
	receipts := &stubReceipts{}
	c := newClient(t, Config{APIKey: "secret"}, nil, receipts)

	rec := c.do(http.MethodGet, "/api/receipts", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "api key required")
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec = c.do(http.MethodGet, "/api/receipts", "", "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid api key")

	rec = c.do(http.MethodGet, "/api/receipts", "", "Authorization", "Bearer secret")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodGet, "/api/receipts?limit=5&offset=10&since=2026-01-01T00:00:00Z", "", "X-API-Key", "secret")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"r1"`)
	assert.Equal(t, 5, receipts.opts.Limit)
	assert.Equal(t, 10, receipts.opts.Offset)
	require.NotNil(t, receipts.opts.Since)
	assert.Nil(t, receipts.opts.Until)

	// The cart itself stays public.
	rec = c.do(http.MethodGet, "/api/cart", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	c := newClient(t, Config{RateLimit: 10, RateWindow: time.Minute}, denyAll{}, nil)
	rec := c.do(http.MethodGet, "/api/cart", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	c = newClient(t, Config{RateLimit: 10, RateWindow: time.Minute}, brokenLimiter{}, nil)
	rec = c.do(http.MethodGet, "/api/cart", "")
	assert.Equal(t, http.StatusOK, rec.Code, "limiter failures fail open")
}

type recordingLimiter struct {
	keys []string
}

func (l *recordingLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	l.keys = append(l.keys, key)
	return true, nil
}

func TestRateLimitKeysFreshSessionsByIP(t *testing.T) {
	limiter := &recordingLimiter{}
	c := newClient(t, Config{RateLimit: 10, RateWindow: time.Minute}, limiter, nil)

	c.do(http.MethodGet, "/api/cart", "")
	require.Len(t, c.cookies, 1)
	c.do(http.MethodGet, "/api/cart", "")

	require.Len(t, limiter.keys, 2)
	assert.Equal(t, "api:ip:192.0.2.1", limiter.keys[0], "a cookieless request is counted against its address")
	assert.Equal(t, "api:session:"+c.cookies[0].Value, limiter.keys[1])

	// Dropping the cookie lands back in the address bucket.
	c.cookies = nil
	c.do(http.MethodGet, "/api/cart", "")
	assert.Equal(t, "api:ip:192.0.2.1", limiter.keys[2])
}

func TestOversizedStakeIsTreatedAsZero(t *testing.T) {
	c := newClient(t, Config{}, nil, nil)
	c.cart(http.MethodPost, "/api/cart/items", wagerM1)

	body := c.cart(http.MethodPut, "/api/cart/items/0/stake", `{"amount":"1e999999999"}`)
	assert.True(t, body.Cart.Items[0].Stake.IsZero())
	assert.True(t, body.Cart.Totals.FinalTotal.IsZero())
}

func TestCORSPreflight(t *testing.T) {
	c := newClient(t, Config{CORSOrigins: []string{"https://apuestas.example"}}, nil, nil)

	rec := c.do(http.MethodOptions, "/api/cart/items", "",
		"Origin", "https://apuestas.example",
		"Access-Control-Request-Method", "POST")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://apuestas.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Values("Vary"), "Origin")
	assert.Empty(t, rec.Result().Cookies(), "preflights do not mint sessions")

	rec = c.do(http.MethodGet, "/api/cart", "", "Origin", "https://evil.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Values("Vary"), "Origin")
}

func TestCORSCredentialedCartRequest(t *testing.T) {
	c := newClient(t, Config{CORSOrigins: []string{"https://apuestas.example/"}}, nil, nil)

	rec := c.do(http.MethodPost, "/api/cart/items", wagerM1, "Origin", "https://apuestas.example")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://apuestas.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	require.Len(t, c.cookies, 1)

	rec = c.do(http.MethodGet, "/api/cart", "", "Origin", "https://apuestas.example")
	assert.Contains(t, rec.Body.String(), `"partidoId":"m1"`, "the cookie carries the cart across origins")
}

func TestCORSWildcardNeverSharesCredentials(t *testing.T) {
	c := newClient(t, Config{CORSOrigins: []string{"*"}}, nil, nil)

	rec := c.do(http.MethodGet, "/api/cart", "", "Origin", "https://anywhere.example")
	assert.Equal(t, "https://anywhere.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.NotEqual(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
