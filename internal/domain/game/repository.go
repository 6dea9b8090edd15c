package game

import (
	"context"
	"time"
)

// Repository is the single authoritative store for games.
type Repository interface {
	Create(ctx context.Context, g Game) error
	GetByID(ctx context.Context, id string) (Game, bool, error)
	// ListByState returns games in any of states ordered by created_at then id.
	// No states means every game.
	ListByState(ctx context.Context, states ...State) ([]Game, error)
	FindActiveByPlayer(ctx context.Context, playerID string) (Game, bool, error)
	ListCompletedByPlayers(ctx context.Context, playerIDs []string) ([]Game, error)
	// CommitTransition persists next only if the stored state still equals
	// expected. Otherwise it fails with ErrConcurrentModification.
	CommitTransition(ctx context.Context, next Game, expected State) error
	AttachSouvenir(ctx context.Context, id, imageRef, shareSlug string, at time.Time) error
}
