// Package checkout hands a funded cart off to the messaging deep link.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/betslip/internal/cart"
	"github.com/alanyoungcy/betslip/internal/domain"
	"github.com/alanyoungcy/betslip/internal/handoff"
	"github.com/alanyoungcy/betslip/internal/message"
)

// Config holds the per-session parameters of a Service.
type Config struct {
	// LinkBase is the deep link endpoint, handoff.DefaultBase when empty.
	LinkBase string
	// Session tags receipts with the visitor session they came from.
	Session string
}

// Service runs the send flow for one cart.
type Service struct {
	store     *cart.Store
	formatter *message.Formatter
	contacts  domain.ContactProvider
	opener    domain.LinkOpener
	receipts  []domain.ReceiptWriter
	notifier  domain.Notifier
	cfg       Config
	now       func() time.Time
	logger    *slog.Logger
}

// NewService creates a Service. receipts may be empty.
func NewService(
	store *cart.Store,
	formatter *message.Formatter,
	contacts domain.ContactProvider,
	opener domain.LinkOpener,
	receipts []domain.ReceiptWriter,
	notifier domain.Notifier,
	cfg Config,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:     store,
		formatter: formatter,
		contacts:  contacts,
		opener:    opener,
		receipts:  receipts,
		notifier:  notifier,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "checkout")),
	}
}

// Preview returns the plain-text message for the current cart. Validation
// failures are reported through the formatter's notifier.
func (s *Service) Preview(ctx context.Context) (string, error) {
	return s.Message(ctx, message.Raw)
}

// Message returns the message for the current cart in the given mode.
func (s *Service) Message(ctx context.Context, mode message.Mode) (string, error) {
	return s.formatter.Build(ctx, s.store.State(), mode)
}

// Send validates the cart, looks up the destination contact, opens the deep
// link, records a receipt, and clears the cart. It returns the opened URL.
// When any step before the link is opened fails the cart is left as it was.
func (s *Service) Send(ctx context.Context) (string, error) {
	state := s.store.State()

	text, err := s.formatter.Build(ctx, state, message.Raw)
	if err != nil {
		return "", fmt.Errorf("checkout: build message: %w", err)
	}

	contact, err := s.contacts.Contact(ctx)
	if err == nil && contact == "" {
		err = domain.ErrNoContact
	}
	if err != nil {
		s.fail(ctx, err)
		return "", fmt.Errorf("checkout: resolve contact: %w", err)
	}

	url := handoff.DeepLink(s.cfg.LinkBase, contact, message.Escape(text))
	if err := s.opener.Open(ctx, url); err != nil {
		s.fail(ctx, err)
		return "", fmt.Errorf("checkout: open link: %w", err)
	}

	s.record(ctx, domain.Receipt{
		ID:      uuid.NewString(),
		Session: s.cfg.Session,
		SentAt:  s.now().UTC(),
		Message: text,
		Cart:    state,
		Totals:  s.store.Totals(),
	})

	s.store.Clear(ctx)
	s.notifier.Notify(ctx, domain.NoticeSuccess, "Mensaje enviado correctamente")
	s.logger.InfoContext(ctx, "cart sent",
		slog.String("session", s.cfg.Session),
		slog.Int("items", len(state.Items)),
		slog.Int("combinations", len(state.Combinations)),
	)
	return url, nil
}

func (s *Service) fail(ctx context.Context, err error) {
	reason := err.Error()
	if errors.Is(err, domain.ErrNoContact) {
		reason = "Número de WhatsApp no configurado"
	}
	s.logger.WarnContext(ctx, "send aborted", slog.String("error", err.Error()))
	s.notifier.Notify(ctx, domain.NoticeError, "Error al enviar mensaje: "+reason)
}

func (s *Service) record(ctx context.Context, r domain.Receipt) {
	for _, w := range s.receipts {
		if err := w.Record(ctx, r); err != nil {
			s.logger.ErrorContext(ctx, "record receipt failed",
				slog.String("receipt", r.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
