package souvenir

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/riskibarqy/homerun-cage/internal/domain/souvenir"
	"github.com/riskibarqy/homerun-cage/internal/platform/logging"
)

func TestClient_Render(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/render", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"image_ref":"s3://souvenirs/game-1.png"}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Logger: logging.NewNop()})
	ref, err := client.Render(context.Background(), domain.RenderRequest{
		GameID:     "game-1",
		PlayerName: "Ada Lovelace",
		ShowName:   "Opening Night",
		Score:      100,
		Distance:   50,
		Homeruns:   3,
	})
	require.NoError(t, err)
	require.Equal(t, "s3://souvenirs/game-1.png", ref)
	require.JSONEq(t, `{"game_id":"game-1","player_name":"Ada Lovelace","show_name":"Opening Night","score":100,"distance":50,"homeruns":3}`, gotBody)
}

func TestClient_RenderFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{}`},
		{name: "empty ref", status: http.StatusOK, body: `{"image_ref":""}`},
		{name: "bad json", status: http.StatusOK, body: `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := NewClient(ClientConfig{BaseURL: server.URL, Logger: logging.NewNop()})
			_, err := client.Render(context.Background(), domain.RenderRequest{GameID: "game-1"})
			require.Error(t, err)
		})
	}
}

func TestPlaceholderRenderer(t *testing.T) {
	ref, err := NewPlaceholderRenderer("").Render(context.Background(), domain.RenderRequest{GameID: "game-9"})
	require.NoError(t, err)
	require.Equal(t, "placeholder://souvenirs/game-9.png", ref)

	_, err = NewPlaceholderRenderer("").Render(context.Background(), domain.RenderRequest{})
	require.Error(t, err)
}
