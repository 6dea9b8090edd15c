package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool, metricsHandler http.Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerGameRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/games", handler.ListGames)
	mux.HandleFunc("POST /v1/games", handler.CreateGame)
	mux.HandleFunc("GET /v1/games/{gameID}", handler.GetGame)
	mux.HandleFunc("POST /v1/games/{gameID}/queue", handler.QueueGame)
	mux.HandleFunc("POST /v1/games/{gameID}/confirm", handler.ConfirmGame)
	mux.HandleFunc("POST /v1/games/{gameID}/recall", handler.RecallGame)
	mux.HandleFunc("POST /v1/games/{gameID}/play", handler.PlayGame)
	mux.HandleFunc("POST /v1/games/{gameID}/complete", handler.CompleteGame)
	mux.HandleFunc("POST /v1/games/{gameID}/cancel", handler.CancelGame)
}

func registerPlayerRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/players", handler.ListPlayers)
	mux.HandleFunc("POST /v1/players", handler.RegisterPlayer)
	mux.HandleFunc("GET /v1/players/{playerID}", handler.GetPlayer)
}

func registerTeamRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/teams", handler.ListTeams)
	mux.HandleFunc("GET /v1/teams/leaderboard", handler.GetLeaderboard)
	mux.HandleFunc("GET /v1/teams/{teamID}/scores", handler.GetTeamScores)
}

func registerRecallRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/recalls/active", handler.ListActiveRecalls)
	mux.HandleFunc("GET /v1/recalls/next", handler.ListNextRecalls)
	mux.HandleFunc("POST /v1/recalls/fill", handler.FillRecalls)
}

func registerAdminRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/admin/recall-settings", handler.GetRecallSettings)
	mux.HandleFunc("PUT /v1/admin/recall-settings", handler.UpdateRecallSettings)
	mux.HandleFunc("GET /v1/admin/recall-poller", handler.GetRecallPollerStatus)
	mux.HandleFunc("GET /v1/admin/jobs", handler.ListJobDispatches)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/{kind}", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunInternalJob)))
}
