package postgres

import (
	"time"

	"github.com/riskibarqy/homerun-cage/internal/domain/team"
)

const teamNameConstraint = "uq_teams_name"

var teamColumns = []string{"public_id", "name", "created_at", "updated_at"}

type teamTableModel struct {
	PublicID  string    `db:"public_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (m teamTableModel) toDomain() team.Team {
	return team.Team{
		ID:        m.PublicID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt.UTC(),
	}
}
