package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/homerun-cage/internal/domain/game"
	"github.com/riskibarqy/homerun-cage/internal/domain/jobscheduler"
	"github.com/riskibarqy/homerun-cage/internal/domain/player"
	"github.com/riskibarqy/homerun-cage/internal/domain/recall"
	"github.com/riskibarqy/homerun-cage/internal/domain/team"
	"github.com/riskibarqy/homerun-cage/internal/infrastructure/jobqueue"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
	"github.com/riskibarqy/homerun-cage/internal/usecase"
)

const maxRequestBodyBytes = 64 << 10

var strictJSON = sonic.Config{DisallowUnknownFields: true}.Froze()

// HandlerDeps carries every service the HTTP surface talks to. Nil optional
// services turn their routes into 503 responses.
type HandlerDeps struct {
	Games        *usecase.GameService
	StateMachine *usecase.GameStateMachine
	Players      *usecase.PlayerService
	Teams        *usecase.TeamService
	Recalls      *usecase.RecallService
	Poller       *usecase.RecallPoller
	JobAudit     *usecase.JobAuditService
	JobRegistry  *jobqueue.Registry
	Logger       *logging.Logger
}

type Handler struct {
	gameService   *usecase.GameService
	stateMachine  *usecase.GameStateMachine
	playerService *usecase.PlayerService
	teamService   *usecase.TeamService
	recallService *usecase.RecallService
	recallPoller  *usecase.RecallPoller
	jobAudit      *usecase.JobAuditService
	jobRegistry   *jobqueue.Registry
	logger        *logging.Logger
	validator     *validator.Validate
}

func NewHandler(deps HandlerDeps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		gameService:   deps.Games,
		stateMachine:  deps.StateMachine,
		playerService: deps.Players,
		teamService:   deps.Teams,
		recallService: deps.Recalls,
		recallPoller:  deps.Poller,
		jobAudit:      deps.JobAudit,
		jobRegistry:   deps.JobRegistry,
		logger:        logger.Named("httpapi"),
		validator:     validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// decodeJSON reads a strict JSON body into dst. An empty body is accepted
// when allowEmpty is set.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read request body: %v", usecase.ErrInvalidInput, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		if allowEmpty {
			return nil
		}
		return fmt.Errorf("%w: request body is required", usecase.ErrInvalidInput)
	}
	if err := strictJSON.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

type createGameRequest struct {
	PlayerID string `json:"player_id" validate:"required"`
	ShowID   string `json:"show_id" validate:"omitempty,max=64"`
}

type completeGameRequest struct {
	Score    *int `json:"score" validate:"required,gte=0"`
	Distance *int `json:"distance" validate:"required,gte=0"`
	Homeruns *int `json:"homeruns" validate:"required,gte=0"`
}

type registerPlayerRequest struct {
	FirstName    string `json:"first_name" validate:"required,max=100"`
	LastName     string `json:"last_name" validate:"omitempty,max=100"`
	Email        string `json:"email" validate:"omitempty,email"`
	MobileNumber string `json:"mobile_number" validate:"omitempty,e164"`
	Handedness   string `json:"handedness" validate:"omitempty,oneof=left right"`
	SignedWaiver bool   `json:"signed_waiver"`
	IsFinalist   bool   `json:"is_finalist"`
	ShowID       string `json:"show_id" validate:"omitempty,max=64"`
}

type updateRecallSettingsRequest struct {
	WindowSize    *int  `json:"window_size" validate:"omitempty"`
	WindowMinutes *int  `json:"window_minutes" validate:"omitempty"`
	Disabled      *bool `json:"disabled"`
}

type fillRecallsRequest struct {
	Trigger string `json:"trigger" validate:"omitempty,max=40"`
}

type gameDTO struct {
	ID                string `json:"id"`
	PlayerID          string `json:"playerId"`
	ShowID            string `json:"showId,omitempty"`
	State             string `json:"state"`
	Score             int    `json:"score"`
	Distance          int    `json:"distance"`
	Homeruns          int    `json:"homeruns"`
	SouvenirImageRef  string `json:"souvenirImageRef,omitempty"`
	SouvenirShareSlug string `json:"souvenirShareSlug,omitempty"`
	CreatedAt         string `json:"createdAt"`
	UpdatedAt         string `json:"updatedAt"`
	DateQueued        string `json:"dateQueued,omitempty"`
	DateRecalled      string `json:"dateRecalled,omitempty"`
	DateConfirmed     string `json:"dateConfirmed,omitempty"`
	DatePlaying       string `json:"datePlaying,omitempty"`
	DateCompleted     string `json:"dateCompleted,omitempty"`
	DateCancelled     string `json:"dateCancelled,omitempty"`
}

type transitionDTO struct {
	Game             gameDTO  `json:"game"`
	From             string   `json:"from"`
	To               string   `json:"to"`
	OccurredAt       string   `json:"occurredAt"`
	SideEffectErrors []string `json:"sideEffectErrors,omitempty"`
}

type playerDTO struct {
	ID           string   `json:"id"`
	FirstName    string   `json:"firstName"`
	LastName     string   `json:"lastName,omitempty"`
	Email        string   `json:"email,omitempty"`
	MobileNumber string   `json:"mobileNumber,omitempty"`
	Handedness   string   `json:"handedness,omitempty"`
	SignedWaiver bool     `json:"signedWaiver"`
	IsFinalist   bool     `json:"isFinalist"`
	TeamID       string   `json:"teamId,omitempty"`
	TotalScore   int      `json:"totalScore"`
	ActiveGame   *gameDTO `json:"activeGame,omitempty"`
	CreatedAt    string   `json:"createdAt"`
}

type registrationDTO struct {
	Player playerDTO `json:"player"`
	Game   gameDTO   `json:"game"`
}

type teamDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Members int    `json:"members"`
}

type dailyScoreDTO struct {
	Day      string `json:"day"`
	Score    int    `json:"score"`
	Distance int    `json:"distance"`
	Homeruns int    `json:"homeruns"`
	Games    int    `json:"games"`
}

type leaderboardEntryDTO struct {
	Rank  int             `json:"rank"`
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Total int             `json:"total"`
	Daily []dailyScoreDTO `json:"daily"`
}

type recallSettingsDTO struct {
	WindowSize    int  `json:"windowSize"`
	WindowMinutes int  `json:"windowMinutes"`
	Disabled      bool `json:"disabled"`
}

type recallListDTO struct {
	Settings recallSettingsDTO `json:"settings"`
	Games    []gameDTO         `json:"games"`
}

type recallSkipDTO struct {
	GameID string `json:"gameId"`
	Reason string `json:"reason"`
	Error  string `json:"error,omitempty"`
}

type recallFillDTO struct {
	Trigger  string            `json:"trigger"`
	Settings recallSettingsDTO `json:"settings"`
	Disabled bool              `json:"disabled"`
	Active   int               `json:"active"`
	Selected []string          `json:"selected"`
	Recalled []string          `json:"recalled"`
	Skipped  []recallSkipDTO   `json:"skipped"`
}

type recallPollerDTO struct {
	ConsecutiveFailures int    `json:"consecutiveFailures"`
	LastError           string `json:"lastError,omitempty"`
	LastAttempt         string `json:"lastAttempt,omitempty"`
	LastSuccess         string `json:"lastSuccess,omitempty"`
	LastRecalled        int    `json:"lastRecalled"`
}

type jobDispatchDTO struct {
	DispatchID  string `json:"dispatchId"`
	JobKind     string `json:"jobKind"`
	Driver      string `json:"driver"`
	Status      string `json:"status"`
	Attempts    int    `json:"attempts"`
	LastError   string `json:"lastError,omitempty"`
	SentAt      string `json:"sentAt,omitempty"`
	CompletedAt string `json:"completedAt,omitempty"`
	FailedAt    string `json:"failedAt,omitempty"`
	UpdatedAt   string `json:"updatedAt"`
}

func gameToDTO(g game.Game) gameDTO {
	return gameDTO{
		ID:                g.ID,
		PlayerID:          g.PlayerID,
		ShowID:            g.ShowID,
		State:             string(g.State),
		Score:             g.Score,
		Distance:          g.Distance,
		Homeruns:          g.Homeruns,
		SouvenirImageRef:  g.SouvenirImageRef,
		SouvenirShareSlug: g.SouvenirShareSlug,
		CreatedAt:         formatTime(g.CreatedAt),
		UpdatedAt:         formatTime(g.UpdatedAt),
		DateQueued:        formatOptionalTime(g.DateQueued),
		DateRecalled:      formatOptionalTime(g.DateRecalled),
		DateConfirmed:     formatOptionalTime(g.DateConfirmed),
		DatePlaying:       formatOptionalTime(g.DatePlaying),
		DateCompleted:     formatOptionalTime(g.DateCompleted),
		DateCancelled:     formatOptionalTime(g.DateCancelled),
	}
}

func gamesToDTO(items []game.Game) []gameDTO {
	out := make([]gameDTO, 0, len(items))
	for _, g := range items {
		out = append(out, gameToDTO(g))
	}
	return out
}

func transitionToDTO(result usecase.TransitionResult) transitionDTO {
	out := transitionDTO{
		Game:       gameToDTO(result.Game),
		From:       string(result.Event.From),
		To:         string(result.Event.To),
		OccurredAt: formatTime(result.Event.OccurredAt),
	}
	for _, sideErr := range result.SideEffectErrors {
		out.SideEffectErrors = append(out.SideEffectErrors, sideErr.Error())
	}
	return out
}

func playerToDTO(p player.Player, activeGame *game.Game, totalScore int) playerDTO {
	out := playerDTO{
		ID:           p.ID,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Email:        p.Email,
		MobileNumber: p.MobileNumber,
		Handedness:   string(p.Handedness),
		SignedWaiver: p.SignedWaiver,
		IsFinalist:   p.IsFinalist,
		TeamID:       p.TeamID,
		TotalScore:   totalScore,
		CreatedAt:    formatTime(p.CreatedAt),
	}
	if activeGame != nil {
		g := gameToDTO(*activeGame)
		out.ActiveGame = &g
	}
	return out
}

func playerDetailsToDTO(item usecase.PlayerDetails) playerDTO {
	return playerToDTO(item.Player, item.ActiveGame, item.TotalScore)
}

func dailyScoresToDTO(items []team.DailyScore) []dailyScoreDTO {
	out := make([]dailyScoreDTO, 0, len(items))
	for _, d := range items {
		out = append(out, dailyScoreDTO{
			Day:      d.Day.UTC().Format(time.DateOnly),
			Score:    d.Score,
			Distance: d.Distance,
			Homeruns: d.Homeruns,
			Games:    d.Games,
		})
	}
	return out
}

func recallSettingsToDTO(s recall.Settings) recallSettingsDTO {
	return recallSettingsDTO{
		WindowSize:    s.WindowSize,
		WindowMinutes: s.WindowMinutes,
		Disabled:      s.Disabled,
	}
}

func recallFillToDTO(result usecase.RecallFillResult) recallFillDTO {
	out := recallFillDTO{
		Trigger:  result.Trigger,
		Settings: recallSettingsToDTO(result.Settings),
		Disabled: result.Disabled,
		Active:   result.Active,
		Selected: nonNilStrings(result.Selected),
		Recalled: nonNilStrings(result.Recalled),
		Skipped:  make([]recallSkipDTO, 0, len(result.Skipped)),
	}
	for _, skip := range result.Skipped {
		out.Skipped = append(out.Skipped, recallSkipDTO{
			GameID: skip.GameID,
			Reason: skip.Reason,
			Error:  skip.Error,
		})
	}
	return out
}

func jobDispatchToDTO(d jobscheduler.Dispatch) jobDispatchDTO {
	return jobDispatchDTO{
		DispatchID:  d.DispatchID,
		JobKind:     d.JobKind,
		Driver:      d.Driver,
		Status:      string(d.Status),
		Attempts:    d.Attempts,
		LastError:   d.LastError,
		SentAt:      formatOptionalTime(d.SentAt),
		CompletedAt: formatOptionalTime(d.CompletedAt),
		FailedAt:    formatOptionalTime(d.FailedAt),
		UpdatedAt:   formatTime(d.UpdatedAt),
	}
}

func formatTime(v time.Time) string {
	if v.IsZero() {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}

func formatOptionalTime(v *time.Time) string {
	if v == nil || v.IsZero() {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
