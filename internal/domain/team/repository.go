package team

import "context"

// Repository describes team persistence needs from use cases.
type Repository interface {
	Create(ctx context.Context, t Team) error
	List(ctx context.Context) ([]Team, error)
	GetByID(ctx context.Context, id string) (Team, bool, error)
}
