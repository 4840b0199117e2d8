package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/betslip/internal/cart"
	"github.com/alanyoungcy/betslip/internal/domain"
	"github.com/alanyoungcy/betslip/internal/handoff"
	"github.com/alanyoungcy/betslip/internal/message"
	"github.com/alanyoungcy/betslip/internal/notify"
	"github.com/alanyoungcy/betslip/internal/server"
	"github.com/alanyoungcy/betslip/internal/server/handler"
	"github.com/alanyoungcy/betslip/internal/server/ws"
	"github.com/alanyoungcy/betslip/internal/session"
)

// pruneInterval is how often stale carts are dropped from a backend that
// cannot expire them on its own.
const pruneInterval = time.Hour

// ServerMode serves the cart API, the WebSocket hub, and the session sweeper
// until ctx is cancelled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	var manager *session.Manager
	hub := ws.NewHub(deps.SignalBus, func(ctx context.Context, id string) (domain.CartView, error) {
		var view domain.CartView
		err := manager.Do(ctx, id, func(s *session.Session) error {
			view = s.Store.View()
			return nil
		})
		return view, err
	}, a.logger)

	manager = session.NewManager(session.Config{
		SlotName:      a.cfg.Storage.SlotName,
		IdleTimeout:   a.cfg.Session.IdleTimeout.Duration,
		SweepInterval: a.cfg.Session.SweepInterval.Duration,
		LinkBase:      a.cfg.Message.LinkBase,
	}, session.Deps{
		Slots:     deps.Slots,
		Formatter: deps.Formatter,
		Contacts:  deps.Contacts,
		Receipts:  deps.Receipts,
		Alerts:    deps.Alerts,
		Publish:   hub.Publish,
	}, a.logger)

	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(func() error {
		return manager.Run(ctx)
	})
	if deps.Pruner != nil && a.cfg.Storage.TTL.Duration > 0 {
		g.Go(func() error {
			return a.pruneSlots(ctx, deps.Pruner, a.cfg.Storage.TTL.Duration)
		})
	}

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(deps.Checks, a.logger),
		Cart:   handler.NewCartHandler(manager, a.logger),
	}
	if deps.ReceiptLister != nil {
		handlers.Receipts = handler.NewReceiptHandler(deps.ReceiptLister, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:         a.cfg.Server.Port,
		CORSOrigins:  a.cfg.Server.CORSOrigins,
		APIKey:       a.cfg.Server.APIKey,
		CookieName:   a.cfg.Session.CookieName,
		SecureCookie: a.cfg.Session.SecureCookie,
		RateLimit:    a.cfg.Server.RateLimit,
		RateWindow:   a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// pruneSlots periodically deletes carts untouched for longer than ttl.
func (a *App) pruneSlots(ctx context.Context, pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}, ttl time.Duration) error {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := pruner.Prune(ctx, time.Now().Add(-ttl))
			if err != nil {
				a.logger.WarnContext(ctx, "prune carts failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				a.logger.InfoContext(ctx, "pruned stale carts", slog.Int64("count", n))
			}
		}
	}
}

// InspectMode loads the cart saved under the bare slot name, the key a
// single-visitor deployment uses, and prints its message and deep link.
// Nothing is sent and the cart is left untouched.
func (a *App) InspectMode(ctx context.Context, deps *Dependencies) error {
	queue := notify.NewQueue()
	notifier := notify.Multi{queue, notify.NewLog(a.logger)}

	store := cart.New(deps.Slots, a.cfg.Storage.SlotName,
		cart.WithNotifier(notifier),
		cart.WithLogger(a.logger),
	)
	store.Load(ctx)

	totals := store.Totals()
	fmt.Fprintf(a.out, "slot:        %s\n", store.Key())
	fmt.Fprintf(a.out, "items:       %d\n", store.ItemCount())
	fmt.Fprintf(a.out, "combos:      %d\n", len(store.State().Combinations))
	fmt.Fprintf(a.out, "final total: $%s\n\n", totals.FinalTotal.StringFixed(2))

	text, err := deps.Formatter.WithNotifier(notifier).Build(ctx, store.State(), message.Raw)
	for _, n := range queue.Drain() {
		fmt.Fprintf(a.out, "[%s] %s\n", n.Kind, n.Message)
	}
	if err != nil {
		return nil
	}
	fmt.Fprintln(a.out, text)

	contact, err := deps.Contacts.Contact(ctx)
	if err != nil || contact == "" {
		fmt.Fprintln(a.out, "\n(no destination contact configured)")
		return nil
	}
	link := handoff.DeepLink(a.cfg.Message.LinkBase, contact, message.Escape(text))
	opener := handoff.Printer(func(url string) { fmt.Fprintf(a.out, "\n%s\n", url) })
	return opener.Open(ctx, link)
}
