package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/domain/player"
	"github.com/riskibarqy/homerun-cage/internal/usecase"
)

func (h *Handler) RegisterPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "RegisterPlayer")
	defer span.End()

	var req registerPlayerRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	reg, err := h.playerService.Register(ctx, usecase.RegisterPlayerInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		MobileNumber: req.MobileNumber,
		Handedness:   req.Handedness,
		SignedWaiver: req.SignedWaiver,
		IsFinalist:   req.IsFinalist,
		ShowID:       req.ShowID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "register player failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	g := reg.Game
	writeSuccess(ctx, w, http.StatusCreated, registrationDTO{
		Player: playerToDTO(reg.Player, &g, 0),
		Game:   gameToDTO(reg.Game),
	})
}

func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "GetPlayer")
	defer span.End()

	playerID := strings.TrimSpace(r.PathValue("playerID"))
	item, err := h.playerService.Get(ctx, playerID)
	if err != nil {
		h.logger.WarnContext(ctx, "get player failed", "player_id", playerID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, playerDetailsToDTO(item))
}

func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "ListPlayers")
	defer span.End()

	input, err := parseListPlayersQuery(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items, err := h.playerService.List(ctx, input)
	if err != nil {
		h.logger.WarnContext(ctx, "list players failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]playerDTO, 0, len(items))
	for _, item := range items {
		out = append(out, playerDetailsToDTO(item))
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func parseListPlayersQuery(r *http.Request) (usecase.ListPlayersInput, error) {
	q := r.URL.Query()
	input := usecase.ListPlayersInput{
		Filter: player.Filter{
			TeamID:     strings.TrimSpace(q.Get("team")),
			Handedness: player.Handedness(strings.ToLower(strings.TrimSpace(q.Get("handedness")))),
		},
		State:   game.State(strings.ToLower(strings.TrimSpace(q.Get("state")))),
		OrderBy: strings.TrimSpace(q.Get("ordering")),
	}

	var err error
	if input.Filter.IsFinalist, err = parseOptionalBool(q.Get("is_finalist"), "is_finalist"); err != nil {
		return usecase.ListPlayersInput{}, err
	}
	if input.Filter.SignedWaiver, err = parseOptionalBool(q.Get("signed_waiver"), "signed_waiver"); err != nil {
		return usecase.ListPlayersInput{}, err
	}
	if input.GameCreated, err = parseOptionalDate(q.Get("game_created"), "game_created"); err != nil {
		return usecase.ListPlayersInput{}, err
	}
	if input.GameUpdated, err = parseOptionalDate(q.Get("game_updated"), "game_updated"); err != nil {
		return usecase.ListPlayersInput{}, err
	}
	return input, nil
}

func parseOptionalBool(raw, name string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a boolean", usecase.ErrInvalidInput, name)
	}
	return &v, nil
}

func parseOptionalDate(raw, name string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be formatted as YYYY-MM-DD", usecase.ErrInvalidInput, name)
	}
	return &v, nil
}
