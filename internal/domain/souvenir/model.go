package souvenir

import "context"

// RenderRequest carries what the renderer prints on a souvenir card.
type RenderRequest struct {
	GameID     string `json:"game_id"`
	PlayerName string `json:"player_name"`
	ShowName   string `json:"show_name"`
	Score      int    `json:"score"`
	Distance   int    `json:"distance"`
	Homeruns   int    `json:"homeruns"`
}

// Renderer produces the souvenir image and returns a reference to it.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (string, error)
}
