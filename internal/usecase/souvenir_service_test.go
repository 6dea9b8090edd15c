package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/domain/notification"
	"github.com/riskibarqy/homerun-cage/internal/domain/recall"
	"github.com/riskibarqy/homerun-cage/internal/domain/souvenir"
	souvenirmock "github.com/riskibarqy/homerun-cage/internal/mocks/domain/souvenir"
)

func TestSouvenirService_ProcessCaptureAttachesAndTexts(t *testing.T) {
	c := newCage(t, recall.DefaultSettings())
	renderer := souvenirmock.NewRenderer(t)
	c.souvenirs.renderer = renderer

	g := c.addGame(game.StatePlaying, c.clock.Now())
	_, err := c.machine.Complete(context.Background(), g.ID, game.Scores{Score: 100, Distance: 50, Homeruns: 3})
	require.NoError(t, err)
	owner := c.player(g.PlayerID)

	renderer.On("Render", mock.Anything, souvenir.RenderRequest{
		GameID:     g.ID,
		PlayerName: owner.FullName(),
		ShowName:   c.show.Name,
		Score:      100,
		Distance:   50,
		Homeruns:   3,
	}).Return("souvenirs/"+g.ID+".png", nil).Once()

	require.NoError(t, c.souvenirs.ProcessCapture(context.Background(), CaptureSouvenirPayload{GameID: g.ID}))

	stored := c.game(g.ID)
	if stored.SouvenirImageRef != "souvenirs/"+g.ID+".png" {
		t.Fatalf("unexpected image ref %q", stored.SouvenirImageRef)
	}
	if stored.SouvenirShareSlug == "" {
		t.Fatalf("expected a share slug")
	}

	texts := c.queue.ofKind(JobKindSendSMS)
	require.Len(t, texts, 1)
	msg := texts[0].Payload.(notification.SMS)
	if msg.Kind != notification.KindSouvenir {
		t.Fatalf("expected souvenir text, got %s", msg.Kind)
	}
	if !strings.Contains(msg.Body, "https://cage.example/s/"+stored.SouvenirShareSlug) {
		t.Fatalf("souvenir text must carry the share link, got %q", msg.Body)
	}

	// A redelivered job finds the souvenir attached and does nothing.
	require.NoError(t, c.souvenirs.ProcessCapture(context.Background(), CaptureSouvenirPayload{GameID: g.ID}))
	require.Len(t, c.queue.ofKind(JobKindSendSMS), 1)
}

func TestSouvenirService_ProcessCaptureRequiresCompletedGame(t *testing.T) {
	c := newCage(t, recall.DefaultSettings())
	c.souvenirs.renderer = souvenirmock.NewRenderer(t)
	g := c.addGame(game.StatePlaying, c.clock.Now())

	err := c.souvenirs.ProcessCapture(context.Background(), CaptureSouvenirPayload{GameID: g.ID})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if err := c.souvenirs.ProcessCapture(context.Background(), CaptureSouvenirPayload{GameID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSouvenirService_RenderFailureLeavesGameUntouched(t *testing.T) {
	c := newCage(t, recall.DefaultSettings())
	renderer := souvenirmock.NewRenderer(t)
	c.souvenirs.renderer = renderer

	g := c.addGame(game.StatePlaying, c.clock.Now())
	_, err := c.machine.Complete(context.Background(), g.ID, game.Scores{Score: 7})
	require.NoError(t, err)

	renderErr := errors.New("renderer unavailable")
	renderer.On("Render", mock.Anything, mock.Anything).Return("", renderErr).Once()

	err = c.souvenirs.ProcessCapture(context.Background(), CaptureSouvenirPayload{GameID: g.ID})
	if !errors.Is(err, renderErr) {
		t.Fatalf("expected render error, got %v", err)
	}
	if stored := c.game(g.ID); stored.SouvenirImageRef != "" {
		t.Fatalf("failed render must not attach, got %q", stored.SouvenirImageRef)
	}
}

func TestSouvenirService_ShareLink(t *testing.T) {
	svc := NewSouvenirService(nil, nil, nil, nil, nil, nil, nil, SouvenirConfig{PublicBaseURL: " https://cage.example/ "}, nil)
	if got := svc.ShareLink("abc123"); got != "https://cage.example/s/abc123" {
		t.Fatalf("unexpected link %q", got)
	}
}
