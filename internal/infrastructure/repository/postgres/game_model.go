package postgres

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
)

const gameActivePlayerConstraint = "uq_games_active_player"

var gameColumns = []string{
	"public_id",
	"player_public_id",
	"show_public_id",
	"state",
	"distance",
	"homeruns",
	"score",
	"souvenir_image_ref",
	"souvenir_share_slug",
	"date_queued",
	"date_recalled",
	"date_confirmed",
	"date_playing",
	"date_completed",
	"date_cancelled",
	"created_at",
	"updated_at",
}

type gameTableModel struct {
	PublicID          string         `db:"public_id"`
	PlayerID          string         `db:"player_public_id"`
	ShowID            sql.NullString `db:"show_public_id"`
	State             string         `db:"state"`
	Distance          int            `db:"distance"`
	Homeruns          int            `db:"homeruns"`
	Score             int            `db:"score"`
	SouvenirImageRef  string         `db:"souvenir_image_ref"`
	SouvenirShareSlug string         `db:"souvenir_share_slug"`
	DateQueued        *time.Time     `db:"date_queued"`
	DateRecalled      *time.Time     `db:"date_recalled"`
	DateConfirmed     *time.Time     `db:"date_confirmed"`
	DatePlaying       *time.Time     `db:"date_playing"`
	DateCompleted     *time.Time     `db:"date_completed"`
	DateCancelled     *time.Time     `db:"date_cancelled"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func gameModelFromDomain(g game.Game) gameTableModel {
	return gameTableModel{
		PublicID:          g.ID,
		PlayerID:          g.PlayerID,
		ShowID:            nullString(g.ShowID),
		State:             string(g.State),
		Distance:          g.Distance,
		Homeruns:          g.Homeruns,
		Score:             g.Score,
		SouvenirImageRef:  g.SouvenirImageRef,
		SouvenirShareSlug: g.SouvenirShareSlug,
		DateQueued:        utcPtr(g.DateQueued),
		DateRecalled:      utcPtr(g.DateRecalled),
		DateConfirmed:     utcPtr(g.DateConfirmed),
		DatePlaying:       utcPtr(g.DatePlaying),
		DateCompleted:     utcPtr(g.DateCompleted),
		DateCancelled:     utcPtr(g.DateCancelled),
		CreatedAt:         g.CreatedAt.UTC(),
		UpdatedAt:         g.UpdatedAt.UTC(),
	}
}

func (m gameTableModel) toDomain() game.Game {
	return game.Game{
		ID:                m.PublicID,
		PlayerID:          m.PlayerID,
		ShowID:            nullStringValue(m.ShowID),
		State:             game.State(m.State),
		Distance:          m.Distance,
		Homeruns:          m.Homeruns,
		Score:             m.Score,
		SouvenirImageRef:  m.SouvenirImageRef,
		SouvenirShareSlug: m.SouvenirShareSlug,
		DateQueued:        utcPtr(m.DateQueued),
		DateRecalled:      utcPtr(m.DateRecalled),
		DateConfirmed:     utcPtr(m.DateConfirmed),
		DatePlaying:       utcPtr(m.DatePlaying),
		DateCompleted:     utcPtr(m.DateCompleted),
		DateCancelled:     utcPtr(m.DateCancelled),
		CreatedAt:         m.CreatedAt.UTC(),
		UpdatedAt:         m.UpdatedAt.UTC(),
	}
}
