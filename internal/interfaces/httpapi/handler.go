package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/usecase"
)

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "ListGames")
	defer span.End()

	states, err := parseStates(r.URL.Query()["state"])
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	games, err := h.gameService.List(ctx, states...)
	if err != nil {
		h.logger.ErrorContext(ctx, "list games failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gamesToDTO(games))
}

func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "GetGame")
	defer span.End()

	gameID := strings.TrimSpace(r.PathValue("gameID"))
	g, err := h.gameService.Get(ctx, gameID)
	if err != nil {
		h.logger.WarnContext(ctx, "get game failed", "game_id", gameID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gameToDTO(g))
}

func (h *Handler) CreateGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "CreateGame")
	defer span.End()

	var req createGameRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	g, err := h.gameService.Create(ctx, usecase.CreateGameInput{
		PlayerID: req.PlayerID,
		ShowID:   req.ShowID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create game failed", "player_id", req.PlayerID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, gameToDTO(g))
}

func (h *Handler) QueueGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "QueueGame")
	defer span.End()

	h.fireTransition(ctx, w, r, game.TransitionQueue)
}

func (h *Handler) ConfirmGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "ConfirmGame")
	defer span.End()

	h.fireTransition(ctx, w, r, game.TransitionConfirm)
}

func (h *Handler) RecallGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "RecallGame")
	defer span.End()

	h.fireTransition(ctx, w, r, game.TransitionRecall)
}

func (h *Handler) PlayGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "PlayGame")
	defer span.End()

	h.fireTransition(ctx, w, r, game.TransitionPlay)
}

func (h *Handler) CancelGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "CancelGame")
	defer span.End()

	h.fireTransition(ctx, w, r, game.TransitionCancel)
}

func (h *Handler) CompleteGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startHandlerSpan(r, "CompleteGame")
	defer span.End()

	gameID := strings.TrimSpace(r.PathValue("gameID"))

	var req completeGameRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.stateMachine.Complete(ctx, gameID, game.Scores{
		Score:    *req.Score,
		Distance: *req.Distance,
		Homeruns: *req.Homeruns,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "complete game failed", "game_id", gameID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, transitionToDTO(result))
}

func (h *Handler) fireTransition(ctx context.Context, w http.ResponseWriter, r *http.Request, t game.Transition) {
	gameID := strings.TrimSpace(r.PathValue("gameID"))
	if gameID == "" {
		writeError(ctx, w, fmt.Errorf("%w: game id is required", usecase.ErrInvalidInput))
		return
	}

	result, err := h.stateMachine.Fire(ctx, gameID, t)
	if err != nil {
		h.logger.WarnContext(ctx, "game transition failed", "game_id", gameID, "transition", t, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, transitionToDTO(result))
}

// parseStates accepts repeated or comma separated state values.
func parseStates(raw []string) ([]game.State, error) {
	var out []game.State
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			st, err := game.ParseState(part)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
			}
			out = append(out, st)
		}
	}
	return out, nil
}
