package events

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/domain/lighting"
	"github.com/riskibarqy/homerun-cage/internal/platform/eventbus"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
)

const lightingHandlerName = "lighting.cues"

// LightingRouter turns transition events into lighting cues.
type LightingRouter struct {
	router     *message.Router
	controller lighting.Controller
	logger     *logging.Logger
}

func NewLightingRouter(
	bus *eventbus.Bus,
	controller lighting.Controller,
	registry prometheus.Registerer,
	logger *logging.Logger,
) (*LightingRouter, error) {
	if controller == nil {
		return nil, errors.New("lighting controller is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	router, err := message.NewRouter(message.RouterConfig{}, bus.Logger())
	if err != nil {
		return nil, errors.Wrap(err, "create lighting router")
	}
	if registry != nil {
		builder := metrics.NewPrometheusMetricsBuilder(registry, "cage", "events")
		builder.AddPrometheusRouterMetrics(router)
	}
	router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
	)

	r := &LightingRouter{
		router:     router,
		controller: controller,
		logger:     logger.Named("lighting"),
	}
	router.AddNoPublisherHandler(lightingHandlerName, eventbus.TopicGameTransitions, bus.Subscriber(), r.handle)
	return r, nil
}

func (r *LightingRouter) handle(msg *message.Message) error {
	event, err := eventbus.Decode[game.TransitionEvent](msg)
	if err != nil {
		r.logger.Error("drop undecodable transition event", "message_id", msg.UUID, "error", err)
		return nil
	}

	cue, ok := lighting.CueForState(event.To)
	if !ok {
		return nil
	}

	ctx := msg.Context()
	if err := r.controller.Trigger(ctx, cue); err != nil {
		r.logger.WarnContext(ctx, "lighting cue failed", "cue", cue, "game_id", event.GameID, "error", err)
		return nil
	}
	r.logger.DebugContext(ctx, "lighting cue triggered", "cue", cue, "game_id", event.GameID, "to", event.To)
	return nil
}

// Run blocks until ctx is done or the router is closed.
func (r *LightingRouter) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running is closed once the handler is subscribed.
func (r *LightingRouter) Running() chan struct{} {
	return r.router.Running()
}

func (r *LightingRouter) Close() error {
	return r.router.Close()
}

// LogController logs cues instead of driving DMX hardware.
type LogController struct {
	mu     sync.Mutex
	last   lighting.Cue
	logger *logging.Logger
}

func NewLogController(logger *logging.Logger) *LogController {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogController{logger: logger.Named("lighting"), last: lighting.CueAttractor}
}

func (c *LogController) Trigger(ctx context.Context, cue lighting.Cue) error {
	c.mu.Lock()
	previous := c.last
	c.last = cue
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "lighting cue", "cue", cue, "previous", previous)
	return nil
}

func (c *LogController) Current() lighting.Cue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
