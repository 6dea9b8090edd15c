package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/bytebufferpool"

	"github.com/riskibarqy/homerun-cage/internal/domain/notification"
	"github.com/riskibarqy/homerun-cage/internal/domain/player"
	"github.com/riskibarqy/homerun-cage/internal/domain/show"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
)

const defaultSenderID = "MLB"

type NotificationConfig struct {
	SenderID    string
	DedupWindow time.Duration
}

// NotificationService renders show templates and hands the resulting SMS to
// the job queue. DeliverSMS is the worker side of that job.
type NotificationService struct {
	queue  JobQueue
	sender notification.Sender
	cfg    NotificationConfig
	logger *logging.Logger
	now    func() time.Time
}

func NewNotificationService(queue JobQueue, sender notification.Sender, cfg NotificationConfig, logger *logging.Logger) *NotificationService {
	if queue == nil {
		queue = NewNoopJobQueue()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.SenderID) == "" {
		cfg.SenderID = defaultSenderID
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = 30 * time.Second
	}
	return &NotificationService{
		queue:  queue,
		sender: sender,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

func (s *NotificationService) SendWelcomeMessage(ctx context.Context, p player.Player, sh show.Show) error {
	sh = sh.WithDefaults()
	return s.enqueue(ctx, p, notification.KindWelcome, renderMessage(sh.WelcomeMessage, p, sh, ""), p.ID)
}

// SendRecallMessage texts p that gameID is ready. Each game gets its own
// deduplication id so a player recalled twice in one window hears both times.
func (s *NotificationService) SendRecallMessage(ctx context.Context, p player.Player, sh show.Show, gameID string) error {
	sh = sh.WithDefaults()
	subject := p.ID
	if gameID = strings.TrimSpace(gameID); gameID != "" {
		subject += "-" + gameID
	}
	return s.enqueue(ctx, p, notification.KindRecall, renderMessage(sh.RecallMessage, p, sh, ""), subject)
}

func (s *NotificationService) SendSouvenirMessage(ctx context.Context, p player.Player, sh show.Show, link string) error {
	sh = sh.WithDefaults()
	return s.enqueue(ctx, p, notification.KindSouvenir, renderMessage(sh.SouvenirMessage, p, sh, link), p.ID)
}

// DeliverSMS sends one queued message through the gateway.
func (s *NotificationService) DeliverSMS(ctx context.Context, msg notification.SMS) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.NotificationService.DeliverSMS")
	defer span.End()

	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if strings.TrimSpace(msg.SenderID) == "" {
		msg.SenderID = s.cfg.SenderID
	}
	if s.sender == nil {
		return fmt.Errorf("%w: sms sender is not configured", ErrDependencyUnavailable)
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s sms: %w", msg.Kind, err)
	}

	s.logger.InfoContext(ctx, "sms delivered", "player_id", msg.PlayerID, "kind", msg.Kind)
	return nil
}

// enqueue queues one SMS deduplicated on kind, dedupSubject and the current
// window.
func (s *NotificationService) enqueue(ctx context.Context, p player.Player, kind notification.Kind, body, dedupSubject string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.NotificationService.enqueue")
	defer span.End()

	if !p.HasMobileNumber() {
		return nil
	}

	msg := notification.SMS{
		To:       strings.TrimSpace(p.MobileNumber),
		Body:     body,
		SenderID: s.cfg.SenderID,
		Kind:     kind,
		PlayerID: p.ID,
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	dedupID := dedupKey("sms-"+string(kind), dedupSubject, s.now(), s.cfg.DedupWindow)
	if err := s.queue.Enqueue(ctx, JobKindSendSMS, msg, 0, dedupID); err != nil {
		return fmt.Errorf("enqueue %s sms: %w", kind, err)
	}
	return nil
}

func renderMessage(template string, p player.Player, sh show.Show, link string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	replacer := strings.NewReplacer(
		"{first_name}", p.FirstName,
		"{last_name}", p.LastName,
		"{full_name}", p.FullName(),
		"{show_name}", sh.Name,
		"{link}", link,
	)
	_, _ = replacer.WriteString(buf, template)
	return strings.TrimSpace(buf.String())
}
