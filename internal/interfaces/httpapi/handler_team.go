package httpapi

import (
	"net/http"
	"strings"
)

func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "ListTeams")
	defer span.End()

	teams, err := h.teamService.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list teams failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]teamDTO, 0, len(teams))
	for _, t := range teams {
		items = append(items, teamDTO{ID: t.Team.ID, Name: t.Team.Name, Members: t.Members})
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetTeamScores(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "GetTeamScores")
	defer span.End()

	teamID := strings.TrimSpace(r.PathValue("teamID"))
	daily, err := h.teamService.DailyScores(ctx, teamID)
	if err != nil {
		h.logger.WarnContext(ctx, "get team scores failed", "team_id", teamID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, dailyScoresToDTO(daily))
}

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "GetLeaderboard")
	defer span.End()

	rows, err := h.teamService.Leaderboard(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "get leaderboard failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]leaderboardEntryDTO, 0, len(rows))
	for i, row := range rows {
		items = append(items, leaderboardEntryDTO{
			Rank:  i + 1,
			ID:    row.Team.ID,
			Name:  row.Team.Name,
			Total: row.Total,
			Daily: dailyScoresToDTO(row.Daily),
		})
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}
