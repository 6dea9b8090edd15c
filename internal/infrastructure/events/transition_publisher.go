package events

import (
	"context"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/platform/eventbus"
)

// TransitionPublisher puts committed game transitions on the in-process bus.
type TransitionPublisher struct {
	bus *eventbus.Bus
}

func NewTransitionPublisher(bus *eventbus.Bus) *TransitionPublisher {
	return &TransitionPublisher{bus: bus}
}

func (p *TransitionPublisher) PublishTransition(ctx context.Context, event game.TransitionEvent) error {
	return p.bus.PublishJSON(ctx, eventbus.TopicGameTransitions, event)
}
