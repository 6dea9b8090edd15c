package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/riskibarqy/homerun-cage/internal/domain/notification"
	"github.com/riskibarqy/homerun-cage/internal/domain/player"
	"github.com/riskibarqy/homerun-cage/internal/domain/show"
	notificationmock "github.com/riskibarqy/homerun-cage/internal/mocks/domain/notification"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
)

func TestNotificationService_RendersShowTemplates(t *testing.T) {
	queue := &recordingQueue{}
	svc := NewNotificationService(queue, nil, NotificationConfig{}, logging.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 18, 0, 10, 0, time.UTC) }

	p := player.Player{ID: "player-1", FirstName: "Ada", LastName: "Ruth", MobileNumber: "+12025550101"}
	sh := show.Show{ID: "show-1", Name: "Home Run Derby", RecallMessage: "{full_name}, {show_name} is ready for you."}

	if err := svc.SendRecallMessage(context.Background(), p, sh, "game-1"); err != nil {
		t.Fatalf("send recall: %v", err)
	}
	if err := svc.SendSouvenirMessage(context.Background(), p, sh, "https://cage.example/s/abc"); err != nil {
		t.Fatalf("send souvenir: %v", err)
	}

	jobs := queue.ofKind(JobKindSendSMS)
	if len(jobs) != 2 {
		t.Fatalf("expected 2 queued messages, got %d", len(jobs))
	}

	recallMsg := jobs[0].Payload.(notification.SMS)
	if recallMsg.Body != "Ada Ruth, Home Run Derby is ready for you." {
		t.Fatalf("unexpected recall body %q", recallMsg.Body)
	}
	if recallMsg.To != p.MobileNumber || recallMsg.SenderID != "MLB" || recallMsg.Kind != notification.KindRecall {
		t.Fatalf("unexpected recall message: %+v", recallMsg)
	}
	if jobs[0].DedupID != "sms-recall-player-1-game-1-20260301T180000Z" {
		t.Fatalf("unexpected dedup id %q", jobs[0].DedupID)
	}

	souvenirMsg := jobs[1].Payload.(notification.SMS)
	want := "Thanks for playing, Ada! Your souvenir is ready: https://cage.example/s/abc"
	if souvenirMsg.Body != want {
		t.Fatalf("unexpected souvenir body %q", souvenirMsg.Body)
	}
}

func TestNotificationService_RecallPerGameInOneWindow(t *testing.T) {
	queue := &recordingQueue{}
	svc := NewNotificationService(queue, nil, NotificationConfig{DedupWindow: time.Minute}, logging.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 18, 0, 10, 0, time.UTC) }

	p := player.Player{ID: "player-1", FirstName: "Ada", MobileNumber: "+12025550101"}
	sh := show.Show{ID: "show-1", Name: "Home Run Derby"}
	for _, gameID := range []string{"game-1", "game-2"} {
		if err := svc.SendRecallMessage(context.Background(), p, sh, gameID); err != nil {
			t.Fatalf("send recall for %s: %v", gameID, err)
		}
	}

	jobs := queue.ofKind(JobKindSendSMS)
	if len(jobs) != 2 {
		t.Fatalf("expected 2 queued recalls, got %d", len(jobs))
	}
	if jobs[0].DedupID == jobs[1].DedupID {
		t.Fatalf("recalls for different games share dedup id %q", jobs[0].DedupID)
	}
	if jobs[1].DedupID != "sms-recall-player-1-game-2-20260301T180000Z" {
		t.Fatalf("unexpected dedup id %q", jobs[1].DedupID)
	}
}

func TestNotificationService_SkipsPlayersWithoutMobile(t *testing.T) {
	queue := &recordingQueue{}
	svc := NewNotificationService(queue, nil, NotificationConfig{SenderID: "CAGE"}, logging.NewNop())

	p := player.Player{ID: "player-1", FirstName: "Ada"}
	if err := svc.SendWelcomeMessage(context.Background(), p, show.Show{Name: "Derby"}); err != nil {
		t.Fatalf("send welcome: %v", err)
	}
	if len(queue.jobs) != 0 {
		t.Fatalf("expected nothing queued, got %d", len(queue.jobs))
	}
}

func TestNotificationService_DeliverSMS(t *testing.T) {
	sender := notificationmock.NewSender(t)
	svc := NewNotificationService(nil, sender, NotificationConfig{SenderID: "CAGE"}, logging.NewNop())

	msg := notification.SMS{To: "+12025550101", Body: "You're up!", Kind: notification.KindRecall, PlayerID: "player-1"}
	sender.On("Send", mock.Anything, mock.MatchedBy(func(m notification.SMS) bool {
		return m.SenderID == "CAGE" && m.To == msg.To && m.Body == msg.Body
	})).Return(nil).Once()

	if err := svc.DeliverSMS(context.Background(), msg); err != nil {
		t.Fatalf("deliver: %v", err)
	}
}

func TestNotificationService_DeliverSMSErrors(t *testing.T) {
	msg := notification.SMS{To: "+12025550101", Body: "hi", Kind: notification.KindWelcome}

	unconfigured := NewNotificationService(nil, nil, NotificationConfig{}, logging.NewNop())
	if err := unconfigured.DeliverSMS(context.Background(), msg); !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
	if err := unconfigured.DeliverSMS(context.Background(), notification.SMS{To: "+12025550101"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty body, got %v", err)
	}

	sender := notificationmock.NewSender(t)
	gatewayErr := errors.New("gateway timeout")
	sender.On("Send", mock.Anything, mock.Anything).Return(gatewayErr).Once()
	svc := NewNotificationService(nil, sender, NotificationConfig{}, logging.NewNop())
	if err := svc.DeliverSMS(context.Background(), msg); !errors.Is(err, gatewayErr) {
		t.Fatalf("expected gateway error, got %v", err)
	}
}
