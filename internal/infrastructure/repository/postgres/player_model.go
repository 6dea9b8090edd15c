package postgres

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/homerun-cage/internal/domain/player"
)

var playerColumns = []string{
	"public_id",
	"first_name",
	"last_name",
	"email",
	"mobile_number",
	"handedness",
	"signed_waiver",
	"is_finalist",
	"team_public_id",
	"active_game_public_id",
	"created_at",
	"updated_at",
}

type playerTableModel struct {
	PublicID     string         `db:"public_id"`
	FirstName    string         `db:"first_name"`
	LastName     string         `db:"last_name"`
	Email        string         `db:"email"`
	MobileNumber string         `db:"mobile_number"`
	Handedness   string         `db:"handedness"`
	SignedWaiver bool           `db:"signed_waiver"`
	IsFinalist   bool           `db:"is_finalist"`
	TeamID       sql.NullString `db:"team_public_id"`
	ActiveGameID sql.NullString `db:"active_game_public_id"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

type teamMemberCountRow struct {
	TeamID  string `db:"team_public_id"`
	Members int    `db:"members"`
}

func playerModelFromDomain(p player.Player) playerTableModel {
	return playerTableModel{
		PublicID:     p.ID,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Email:        p.Email,
		MobileNumber: p.MobileNumber,
		Handedness:   string(p.Handedness),
		SignedWaiver: p.SignedWaiver,
		IsFinalist:   p.IsFinalist,
		TeamID:       nullString(p.TeamID),
		ActiveGameID: nullString(p.ActiveGameID),
		CreatedAt:    p.CreatedAt.UTC(),
		UpdatedAt:    p.UpdatedAt.UTC(),
	}
}

func (m playerTableModel) toDomain() player.Player {
	return player.Player{
		ID:           m.PublicID,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Email:        m.Email,
		MobileNumber: m.MobileNumber,
		Handedness:   player.Handedness(m.Handedness),
		SignedWaiver: m.SignedWaiver,
		IsFinalist:   m.IsFinalist,
		TeamID:       nullStringValue(m.TeamID),
		ActiveGameID: nullStringValue(m.ActiveGameID),
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}
