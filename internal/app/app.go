package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/riskibarqy/homerun-cage/external/sms"
	"github.com/riskibarqy/homerun-cage/external/souvenir"
	"github.com/riskibarqy/homerun-cage/internal/config"
	"github.com/riskibarqy/homerun-cage/internal/domain/notification"
	domainsouvenir "github.com/riskibarqy/homerun-cage/internal/domain/souvenir"
	"github.com/riskibarqy/homerun-cage/internal/infrastructure/events"
	"github.com/riskibarqy/homerun-cage/internal/infrastructure/jobqueue"
	"github.com/riskibarqy/homerun-cage/internal/interfaces/httpapi"
	"github.com/riskibarqy/homerun-cage/internal/platform/cache"
	"github.com/riskibarqy/homerun-cage/internal/platform/eventbus"
	"github.com/riskibarqy/homerun-cage/internal/platform/id"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
	"github.com/riskibarqy/homerun-cage/internal/platform/metrics"
	"github.com/riskibarqy/homerun-cage/internal/platform/resilience"
	"github.com/riskibarqy/homerun-cage/internal/usecase"
)

// App owns every long-running piece of the service: the HTTP server, the job
// queue, the event bus subscribers and the recall poller.
type App struct {
	cfg    config.Config
	logger *logging.Logger

	server   *http.Server
	db       *sqlx.DB
	bus      *eventbus.Bus
	lighting *events.LightingRouter
	poller   *usecase.RecallPoller
	queue    *jobQueue
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	a := &App{cfg: cfg, logger: logger}

	var recorder *metrics.Recorder
	if cfg.MetricsEnabled {
		recorder = metrics.NewRecorder(prometheus.NewRegistry()).WithRuntimeCollectors()
	}

	st, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}

	seed, err := loadSeed(cfg)
	if err != nil {
		a.closeDB()
		return nil, err
	}
	if err := seed.Apply(ctx, st.teams, st.shows); err != nil {
		a.closeDB()
		return nil, errors.Wrap(err, "apply seed")
	}

	jobAudit := usecase.NewJobAuditService(st.dispatches, logger)
	registry := jobqueue.NewRegistry()
	queue, err := newJobQueue(ctx, cfg, registry, jobAudit, recorder, logger)
	if err != nil {
		a.closeDB()
		return nil, err
	}
	a.queue = queue

	var sender notification.Sender = sms.NewLogSender(logger)
	if cfg.SMSGatewayURL != "" {
		sender = sms.NewClient(sms.ClientConfig{
			BaseURL:        cfg.SMSGatewayURL,
			APIKey:         cfg.SMSAPIKey,
			Timeout:        cfg.SMSTimeout,
			RatePerSecond:  cfg.SMSRatePerSecond,
			Burst:          cfg.SMSBurst,
			Logger:         logger,
			CircuitBreaker: cfg.SMSCircuitBreaker(),
		})
	}

	var renderer domainsouvenir.Renderer = souvenir.NewPlaceholderRenderer(cfg.SouvenirPublicBaseURL + "/souvenirs")
	if cfg.SouvenirRendererURL != "" {
		renderer = souvenir.NewClient(souvenir.ClientConfig{
			BaseURL:        cfg.SouvenirRendererURL,
			APIKey:         cfg.SouvenirAPIKey,
			Timeout:        cfg.SouvenirTimeout,
			Logger:         logger,
			CircuitBreaker: resilience.DefaultCircuitBreakerConfig(),
		})
	}

	settings := recallSettingsStore(cfg)
	ids := id.NewUUIDGenerator()
	scoreCache := cache.NewStore(cfg.CacheTTL)

	notifier := usecase.NewNotificationService(queue, sender, usecase.NotificationConfig{
		SenderID:    cfg.RecallSenderID,
		DedupWindow: cfg.SMSDedupWindow,
	}, logger.Named("notification"))
	machine := usecase.NewGameStateMachine(st.games, st.players, recorder, logger.Named("game"))
	scheduler := usecase.NewRecallScheduler(st.games, machine, settings, recorder, logger.Named("recall"))
	recallService := usecase.NewRecallService(scheduler, settings, logger.Named("recall"))
	teamService := usecase.NewTeamService(st.teams, st.players, st.games, scoreCache)
	souvenirs := usecase.NewSouvenirService(
		st.games,
		st.players,
		st.shows,
		renderer,
		notifier,
		queue,
		id.NewSlugGenerator(cfg.SouvenirSlugSize),
		usecase.SouvenirConfig{PublicBaseURL: cfg.SouvenirPublicBaseURL},
		logger.Named("souvenir"),
	)

	handlerDeps := usecase.TransitionHandlerDeps{
		Players:   st.players,
		Teams:     st.teams,
		Shows:     st.shows,
		Notifier:  notifier,
		Souvenirs: souvenirs,
		Recalls:   recallService,
		Scores:    teamService,
	}
	if cfg.LightingEnabled {
		a.bus = eventbus.New(logger.Named("eventbus"), cfg.EventBusBuffer)
		var registerer prometheus.Registerer
		if recorder != nil {
			registerer = recorder.Registry()
		}
		router, err := events.NewLightingRouter(a.bus, events.NewLogController(logger), registerer, logger)
		if err != nil {
			a.closeDB()
			return nil, err
		}
		a.lighting = router
		handlerDeps.Publisher = events.NewTransitionPublisher(a.bus)
	}
	machine.SetHandlers(usecase.DefaultTransitionHandlers(handlerDeps)...)

	registerJobHandlers(registry, notifier, souvenirs, recallService)

	a.poller = usecase.NewRecallPoller(recallService, cfg.RecallInterval, logger.Named("recall.poller"))

	var metricsHandler http.Handler
	if recorder != nil {
		metricsHandler = recorder.Handler()
	}
	handler := httpapi.NewHandler(httpapi.HandlerDeps{
		Games:        usecase.NewGameService(st.games, st.players, st.shows, ids, logger.Named("game")),
		StateMachine: machine,
		Players:      usecase.NewPlayerService(st.players, st.games, st.shows, notifier, ids, logger.Named("player")),
		Teams:        teamService,
		Recalls:      recallService,
		Poller:       a.poller,
		JobAudit:     jobAudit,
		JobRegistry:  registry,
		Logger:       logger,
	})
	router := httpapi.NewRouter(handler, logger, httpapi.RouterConfig{
		SwaggerEnabled:     cfg.SwaggerEnabled,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		InternalJobToken:   cfg.InternalJobToken,
		MetricsHandler:     metricsHandler,
	})

	if cfg.HTTPAddr == "" {
		a.closeDB()
		return nil, fmt.Errorf("http server addr cannot be empty")
	}
	a.server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}

	logger.Info("app wired",
		"store", cfg.StoreDriver,
		"job_queue", cfg.JobQueueDriver,
		"job_kinds", registry.Kinds(),
		"lighting", cfg.LightingEnabled,
		"metrics", cfg.MetricsEnabled,
	)
	return a, nil
}

// Handler exposes the HTTP router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves until ctx is cancelled or one component fails, then shuts
// everything down within shutdownTimeout.
func (a *App) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	if err := a.queue.start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("http server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})

	if a.lighting != nil {
		g.Go(func() error {
			if err := a.lighting.Run(gctx); err != nil {
				return errors.Wrap(err, "lighting router")
			}
			return nil
		})
	}

	a.poller.Start(gctx)

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *App) shutdown(ctx context.Context) error {
	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, errors.Wrap(err, "shutdown http server"))
	}
	if err := a.poller.Stop(ctx); err != nil {
		errs = append(errs, errors.Wrap(err, "stop recall poller"))
	}
	if err := a.queue.close(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.lighting != nil {
		if err := a.lighting.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "close lighting router"))
		}
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "close event bus"))
		}
	}
	a.closeDB()

	a.logger.Info("app stopped")
	return errors.Join(errs...)
}

func (a *App) closeDB() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close database", "error", err)
	}
	a.db = nil
}

func registerJobHandlers(
	registry *jobqueue.Registry,
	notifier *usecase.NotificationService,
	souvenirs *usecase.SouvenirService,
	recalls *usecase.RecallService,
) {
	jobqueue.Handle(registry, usecase.JobKindSendSMS, func(ctx context.Context, msg notification.SMS) error {
		err := notifier.DeliverSMS(ctx, msg)
		if errors.Is(err, sms.ErrRejected) || errors.Is(err, usecase.ErrInvalidInput) {
			return jobqueue.Permanent(err)
		}
		return err
	})
	jobqueue.Handle(registry, usecase.JobKindCaptureSouvenir, func(ctx context.Context, payload usecase.CaptureSouvenirPayload) error {
		err := souvenirs.ProcessCapture(ctx, payload)
		if errors.Is(err, usecase.ErrNotFound) || errors.Is(err, usecase.ErrInvalidInput) {
			return jobqueue.Permanent(err)
		}
		return err
	})
	jobqueue.Handle(registry, usecase.JobKindRecallFill, func(ctx context.Context, payload usecase.RecallFillPayload) error {
		trigger := payload.Trigger
		if trigger == "" {
			trigger = usecase.RecallTriggerJob
		}
		_, err := recalls.Fill(ctx, trigger)
		return err
	})
}
