// Package session keeps one cart per visitor session and serializes access to
// it.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/betslip/internal/cart"
	"github.com/alanyoungcy/betslip/internal/checkout"
	"github.com/alanyoungcy/betslip/internal/domain"
	"github.com/alanyoungcy/betslip/internal/handoff"
	"github.com/alanyoungcy/betslip/internal/message"
	"github.com/alanyoungcy/betslip/internal/notify"
)

// DefaultSlotName is the storage slot carts have always been saved under.
const DefaultSlotName = "betting-cart"

// Config controls slot naming and eviction.
type Config struct {
	SlotName      string
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	LinkBase      string
}

// Publisher receives every cart change of every session.
type Publisher func(session string, view domain.CartView)

// Deps are the collaborators shared by every session.
type Deps struct {
	Slots     domain.SlotStore
	Formatter *message.Formatter
	Contacts  domain.ContactProvider
	Receipts  []domain.ReceiptWriter
	Alerts    *notify.Notifier
	Publish   Publisher
}

// Session is one visitor's cart together with the collaborators wired to it.
type Session struct {
	ID       string
	Store    *cart.Store
	Notices  *notify.Queue
	Opener   *handoff.Recorder
	Checkout *checkout.Service

	mu       sync.Mutex
	loaded   bool
	evicted  bool
	lastUsed time.Time
}

// Manager creates sessions on first use and evicts idle ones. Evicted carts
// stay in their storage slot and are reloaded on the next request.
type Manager struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager.
func NewManager(cfg Config, deps Deps, logger *slog.Logger) *Manager {
	if cfg.SlotName == "" {
		cfg.SlotName = DefaultSlotName
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &Manager{
		cfg:      cfg,
		deps:     deps,
		logger:   logger.With(slog.String("component", "session")),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// SlotKey returns the storage slot key of a session's cart.
func (m *Manager) SlotKey(id string) string {
	return m.cfg.SlotName + ":" + id
}

// Do runs fn with exclusive access to the session's cart. Whoever locks a
// session first loads its cart from the slot, so no caller ever sees or saves
// an unloaded store.
func (m *Manager) Do(ctx context.Context, id string, fn func(*Session) error) error {
	for {
		if ok, err := m.run(ctx, m.acquire(id), fn); ok {
			return err
		}
	}
}

// run calls fn under the session lock. It reports false, without calling fn,
// when the session was evicted between acquire and Lock.
func (m *Manager) run(ctx context.Context, s *Session, fn func(*Session) error) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.evicted {
		return false, nil
	}
	if !s.loaded {
		s.Store.Load(ctx)
		s.loaded = true
		m.logger.DebugContext(ctx, "session opened", slog.String("session", s.ID))
	}
	s.lastUsed = m.now()
	return true, fn(s)
}

// Len returns the number of sessions held in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run evicts idle sessions until ctx is cancelled. It returns nil on shutdown.
func (m *Manager) Run(ctx context.Context) error {
	if m.cfg.IdleTimeout <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Evict(); n > 0 {
				m.logger.InfoContext(ctx, "evicted idle sessions", slog.Int("count", n))
			}
		}
	}
}

// Evict drops every session idle for longer than the configured timeout and
// returns how many were dropped. Sessions in use are never dropped; a caller
// still waiting to lock a dropped session retries against a fresh one.
func (m *Manager) Evict() int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.cfg.IdleTimeout)

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, s := range m.sessions {
		if !s.mu.TryLock() {
			continue
		}
		if s.lastUsed.Before(cutoff) {
			s.evicted = true
			delete(m.sessions, id)
			n++
		}
		s.mu.Unlock()
	}
	return n
}

func (m *Manager) acquire(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s
	}
	s := m.build(id)
	m.sessions[id] = s
	return s
}

func (m *Manager) build(id string) *Session {
	logger := m.logger.With(slog.String("session", id))
	queue := notify.NewQueue()

	notifier := notify.Multi{queue, notify.NewLog(logger)}
	if m.deps.Alerts != nil {
		notifier = append(notifier, m.deps.Alerts.Bind(id))
	}

	store := cart.New(m.deps.Slots, m.SlotKey(id),
		cart.WithNotifier(notifier),
		cart.WithLogger(logger),
	)
	if m.deps.Publish != nil {
		publish := m.deps.Publish
		store.OnChange(func(v domain.CartView) { publish(id, v) })
	}

	opener := handoff.NewRecorder()
	formatter := m.deps.Formatter.WithNotifier(notifier)

	return &Session{
		ID:      id,
		Store:   store,
		Notices: queue,
		Opener:  opener,
		Checkout: checkout.NewService(store, formatter, m.deps.Contacts, opener, m.deps.Receipts, notifier,
			checkout.Config{LinkBase: m.cfg.LinkBase, Session: id}, logger),
		lastUsed: m.now(),
	}
}
