package player

import (
	"context"
	"time"
)

// Repository describes player persistence needs from use cases.
type Repository interface {
	Create(ctx context.Context, p Player) error
	GetByID(ctx context.Context, id string) (Player, bool, error)
	List(ctx context.Context, filter Filter) ([]Player, error)
	SetActiveGame(ctx context.Context, playerID, gameID string, at time.Time) error
	// AssignTeamIfUnset sets the team only when the player has none yet and
	// returns the stored player either way.
	AssignTeamIfUnset(ctx context.Context, playerID, teamID string, at time.Time) (Player, error)
	CountByTeam(ctx context.Context) (map[string]int, error)
}
