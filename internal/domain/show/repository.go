package show

import "context"

type Repository interface {
	Create(ctx context.Context, s Show) error
	GetByID(ctx context.Context, id string) (Show, bool, error)
	// Latest returns the show with the most recent date.
	Latest(ctx context.Context) (Show, bool, error)
	List(ctx context.Context) ([]Show, error)
}
