package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/domain/lighting"
	"github.com/riskibarqy/homerun-cage/internal/platform/eventbus"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
)

type recordingController struct {
	mu   sync.Mutex
	cues []lighting.Cue
	hit  chan struct{}
}

func (c *recordingController) Trigger(_ context.Context, cue lighting.Cue) error {
	c.mu.Lock()
	c.cues = append(c.cues, cue)
	c.mu.Unlock()
	c.hit <- struct{}{}
	return nil
}

func TestLightingRouter_MapsTransitionsToCues(t *testing.T) {
	bus := eventbus.New(logging.NewNop(), 8)
	defer func() { _ = bus.Close() }()

	controller := &recordingController{hit: make(chan struct{}, 8)}
	router, err := NewLightingRouter(bus, controller, prometheus.NewRegistry(), logging.NewNop())
	if err != nil {
		t.Fatalf("new lighting router: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { _ = router.Run(ctx) }()
	defer func() { _ = router.Close() }()

	select {
	case <-router.Running():
	case <-ctx.Done():
		t.Fatalf("router never started")
	}

	publisher := NewTransitionPublisher(bus)
	events := []game.TransitionEvent{
		{GameID: "g1", Transition: game.TransitionConfirm, From: game.StateQueued, To: game.StateConfirmed},
		{GameID: "g1", Transition: game.TransitionPlay, From: game.StateConfirmed, To: game.StatePlaying},
		{GameID: "g1", Transition: game.TransitionComplete, From: game.StatePlaying, To: game.StateCompleted},
	}
	for _, event := range events {
		if err := publisher.PublishTransition(ctx, event); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	for i := 0; i < 2; i++ {
		select {
		case <-controller.hit:
		case <-ctx.Done():
			t.Fatalf("timed out waiting for cue %d", i)
		}
	}

	controller.mu.Lock()
	defer controller.mu.Unlock()
	if len(controller.cues) != 2 || controller.cues[0] != lighting.CueInGame || controller.cues[1] != lighting.CueAttractor {
		t.Fatalf("unexpected cues: %v", controller.cues)
	}
}

func TestLogController_TracksCurrentCue(t *testing.T) {
	controller := NewLogController(logging.NewNop())
	if controller.Current() != lighting.CueAttractor {
		t.Fatalf("expected attractor by default")
	}
	if err := controller.Trigger(context.Background(), lighting.CueRecall); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if controller.Current() != lighting.CueRecall {
		t.Fatalf("expected recall cue, got %s", controller.Current())
	}
}
