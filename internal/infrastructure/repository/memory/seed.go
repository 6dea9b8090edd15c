package memory

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/riskibarqy/homerun-cage/internal/domain/show"
	"github.com/riskibarqy/homerun-cage/internal/domain/team"
)

const (
	TeamIDLosAngeles = "team-los-angeles"
	TeamIDBoston     = "team-boston"
	ShowIDDefault    = "show-default"
)

// Seed is the static reference data a fresh store starts with.
type Seed struct {
	Teams []SeedTeam `yaml:"teams"`
	Shows []SeedShow `yaml:"shows"`
}

type SeedTeam struct {
	ID        string    `yaml:"id"`
	Name      string    `yaml:"name"`
	CreatedAt time.Time `yaml:"created_at"`
}

type SeedShow struct {
	ID              string    `yaml:"id"`
	Name            string    `yaml:"name"`
	Date            time.Time `yaml:"date"`
	WelcomeMessage  string    `yaml:"welcome_message"`
	RecallMessage   string    `yaml:"recall_message"`
	SouvenirMessage string    `yaml:"souvenir_message"`
}

func DefaultSeed() Seed {
	epoch := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	return Seed{
		Teams: []SeedTeam{
			{ID: TeamIDLosAngeles, Name: "Los Angeles", CreatedAt: epoch},
			{ID: TeamIDBoston, Name: "Boston", CreatedAt: epoch.Add(time.Second)},
		},
		Shows: []SeedShow{
			{ID: ShowIDDefault, Name: "Home Run Derby", Date: epoch},
		},
	}
}

// LoadSeedFile reads a YAML seed. An empty path yields DefaultSeed.
func LoadSeedFile(path string) (Seed, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultSeed(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, errors.Wrapf(err, "read seed file %s", path)
	}
	return ParseSeed(raw)
}

func ParseSeed(raw []byte) (Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return Seed{}, errors.Wrap(err, "decode seed yaml")
	}
	for _, t := range seed.TeamModels() {
		if err := t.Validate(); err != nil {
			return Seed{}, errors.Wrap(err, "invalid seed team")
		}
	}
	for _, s := range seed.ShowModels() {
		if err := s.Validate(); err != nil {
			return Seed{}, errors.Wrap(err, "invalid seed show")
		}
	}
	return seed, nil
}

func (s Seed) TeamModels() []team.Team {
	out := make([]team.Team, 0, len(s.Teams))
	for _, t := range s.Teams {
		out = append(out, team.Team{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt.UTC()})
	}
	return out
}

func (s Seed) ShowModels() []show.Show {
	out := make([]show.Show, 0, len(s.Shows))
	for _, sh := range s.Shows {
		out = append(out, show.Show{
			ID:              sh.ID,
			Name:            sh.Name,
			Date:            sh.Date.UTC(),
			WelcomeMessage:  sh.WelcomeMessage,
			RecallMessage:   sh.RecallMessage,
			SouvenirMessage: sh.SouvenirMessage,
		})
	}
	return out
}

// Apply inserts seed rows, skipping ids that already exist.
func (s Seed) Apply(ctx context.Context, teams team.Repository, shows show.Repository) error {
	for _, t := range s.TeamModels() {
		if _, exists, err := teams.GetByID(ctx, t.ID); err != nil {
			return errors.Wrapf(err, "lookup team %s", t.ID)
		} else if exists {
			continue
		}
		if err := teams.Create(ctx, t); err != nil {
			return errors.Wrapf(err, "seed team %s", t.ID)
		}
	}
	for _, sh := range s.ShowModels() {
		if _, exists, err := shows.GetByID(ctx, sh.ID); err != nil {
			return errors.Wrapf(err, "lookup show %s", sh.ID)
		} else if exists {
			continue
		}
		if err := shows.Create(ctx, sh); err != nil {
			return errors.Wrapf(err, "seed show %s", sh.ID)
		}
	}
	return nil
}
