package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/domain/player"
	"github.com/riskibarqy/homerun-cage/internal/domain/recall"
	"github.com/riskibarqy/homerun-cage/internal/domain/show"
	"github.com/riskibarqy/homerun-cage/internal/domain/team"
	"github.com/riskibarqy/homerun-cage/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/homerun-cage/internal/platform/id"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
	"github.com/riskibarqy/homerun-cage/internal/testutil"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(at time.Time) *testClock {
	return &testClock{now: at}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type queuedJob struct {
	Kind    string
	Payload any
	DedupID string
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []queuedJob
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, kind string, payload any, _ time.Duration, dedupID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, queuedJob{Kind: kind, Payload: payload, DedupID: dedupID})
	return nil
}

func (q *recordingQueue) ofKind(kind string) []queuedJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]queuedJob, 0, len(q.jobs))
	for _, j := range q.jobs {
		if j.Kind == kind {
			out = append(out, j)
		}
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []game.TransitionEvent
}

func (p *recordingPublisher) PublishTransition(_ context.Context, event game.TransitionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// cage wires the state machine, scheduler and services over memory stores.
type cage struct {
	t         *testing.T
	clock     *testClock
	fx        *testutil.Fixtures
	games     *memory.GameRepository
	players   *memory.PlayerRepository
	teams     *memory.TeamRepository
	shows     *memory.ShowRepository
	queue     *recordingQueue
	publisher *recordingPublisher
	settings  *recall.SettingsStore
	machine   *GameStateMachine
	scheduler *RecallScheduler
	notifier  *NotificationService
	souvenirs *SouvenirService
	show      show.Show
	teamA     team.Team
	teamB     team.Team
}

func newCage(t *testing.T, settings recall.Settings) *cage {
	t.Helper()

	c := &cage{
		t:         t,
		clock:     newTestClock(testutil.Epoch),
		fx:        testutil.NewFixtures(42),
		games:     memory.NewGameRepository(),
		players:   memory.NewPlayerRepository(),
		queue:     &recordingQueue{},
		publisher: &recordingPublisher{},
		settings:  recall.NewSettingsStore(settings),
	}
	c.teamA = c.fx.Team(0)
	c.teamB = c.fx.Team(time.Second)
	c.teams = memory.NewTeamRepository(c.teamA, c.teamB)
	c.show = c.fx.Show()
	c.shows = memory.NewShowRepository(c.show)

	logger := logging.NewNop()
	c.machine = NewGameStateMachine(c.games, c.players, nil, logger)
	c.machine.now = c.clock.Now
	c.scheduler = NewRecallScheduler(c.games, c.machine, c.settings, nil, logger)
	c.scheduler.now = c.clock.Now
	c.notifier = NewNotificationService(c.queue, nil, NotificationConfig{}, logger)
	c.notifier.now = c.clock.Now
	c.souvenirs = NewSouvenirService(c.games, c.players, c.shows, nil, c.notifier, c.queue, id.NewSequence("slug"), SouvenirConfig{PublicBaseURL: "https://cage.example"}, logger)
	c.souvenirs.now = c.clock.Now

	handlers := DefaultTransitionHandlers(TransitionHandlerDeps{
		Players:   c.players,
		Teams:     c.teams,
		Shows:     c.shows,
		Notifier:  c.notifier,
		Souvenirs: c.souvenirs,
		Publisher: c.publisher,
		Recalls:   c.scheduler,
		Now:       c.clock.Now,
	})
	c.machine.SetHandlers(handlers...)
	return c
}

func (c *cage) addPlayer(p player.Player) player.Player {
	c.t.Helper()
	if err := c.players.Create(context.Background(), p); err != nil {
		c.t.Fatalf("create player: %v", err)
	}
	return p
}

// addGame stores a game for a fresh player with a mobile number.
func (c *cage) addGame(state game.State, createdAt time.Time) game.Game {
	c.t.Helper()
	p := c.addPlayer(c.fx.Player())
	return c.addGameFor(p, state, createdAt)
}

func (c *cage) addGameFor(p player.Player, state game.State, createdAt time.Time) game.Game {
	c.t.Helper()
	g := c.fx.Game(p, c.show.ID, state, createdAt)
	if err := c.games.Create(context.Background(), g); err != nil {
		c.t.Fatalf("create game: %v", err)
	}
	return g
}

func (c *cage) game(id string) game.Game {
	c.t.Helper()
	g, ok, err := c.games.GetByID(context.Background(), id)
	if err != nil || !ok {
		c.t.Fatalf("get game %s: ok=%v err=%v", id, ok, err)
	}
	return g
}

func (c *cage) player(id string) player.Player {
	c.t.Helper()
	p, ok, err := c.players.GetByID(context.Background(), id)
	if err != nil || !ok {
		c.t.Fatalf("get player %s: ok=%v err=%v", id, ok, err)
	}
	return p
}

func (c *cage) recalledIDs() []string {
	c.t.Helper()
	items, err := c.games.ListByState(context.Background(), game.StateRecalled)
	if err != nil {
		c.t.Fatalf("list recalled: %v", err)
	}
	out := make([]string, 0, len(items))
	for _, g := range items {
		out = append(out, g.ID)
	}
	return out
}
