// Package testutil builds realistic domain fixtures for tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/domain/player"
	"github.com/riskibarqy/homerun-cage/internal/domain/show"
	"github.com/riskibarqy/homerun-cage/internal/domain/team"
)

// Epoch is the fixed clock origin fixtures are stamped against.
var Epoch = time.Date(2026, time.March, 1, 18, 0, 0, 0, time.UTC)

// Fixtures generates deterministic data for a given seed.
type Fixtures struct {
	faker *gofakeit.Faker
	seq   atomic.Int64
}

func NewFixtures(seed uint64) *Fixtures {
	return &Fixtures{faker: gofakeit.New(seed)}
}

func (f *Fixtures) nextID(prefix string) string {
	return fmt.Sprintf("%s-%03d", prefix, f.seq.Add(1))
}

// MobileNumber returns a North American number in E.164 form.
func (f *Fixtures) MobileNumber() string {
	return "+1" + f.faker.Numerify("2##555####")
}

// Player returns a registered player with a mobile number and no team.
func (f *Fixtures) Player() player.Player {
	hands := []player.Handedness{player.HandednessLeft, player.HandednessRight}
	return player.Player{
		ID:           f.nextID("player"),
		FirstName:    f.faker.FirstName(),
		LastName:     f.faker.LastName(),
		Email:        f.faker.Email(),
		MobileNumber: f.MobileNumber(),
		Handedness:   hands[f.faker.Number(0, len(hands)-1)],
		SignedWaiver: true,
		CreatedAt:    Epoch,
		UpdatedAt:    Epoch,
	}
}

// PlayerWithoutMobile returns a player who cannot receive texts.
func (f *Fixtures) PlayerWithoutMobile() player.Player {
	p := f.Player()
	p.MobileNumber = ""
	return p
}

// Team returns a team created offset after Epoch.
func (f *Fixtures) Team(offset time.Duration) team.Team {
	id := f.nextID("team")
	return team.Team{
		ID:        id,
		Name:      f.faker.City() + " " + id,
		CreatedAt: Epoch.Add(offset),
	}
}

func (f *Fixtures) Show() show.Show {
	return show.Show{
		ID:   f.nextID("show"),
		Name: f.faker.Company() + " Derby",
		Date: Epoch,
	}.WithDefaults()
}

// Game returns a game in state for p, created at createdAt. Its first-entry
// stamp for state is set to createdAt.
func (f *Fixtures) Game(p player.Player, showID string, state game.State, createdAt time.Time) game.Game {
	g := game.New(f.nextID("game"), p.ID, showID, createdAt)
	g.State = state
	game.StampFirstEntry(&g, state, createdAt)
	return g
}
