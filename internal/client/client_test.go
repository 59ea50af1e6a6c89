package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"tictactoe-client/internal/client"
	"tictactoe-client/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...client.Option) *client.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := client.New(srv.URL, opts...)
	require.NoError(t, err)
	return c
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestRequestDecodesEmbeddedBoardString(t *testing.T) {
	want := models.Board{{0, 0, 0}, {0, -1, 0}, {0, 0, 1}}

	embedded := newTestClient(t, respond(`{"board":"[[0,0,0],[0,-1,0],[0,0,1]]","status":"ongoing"}`))
	got, err := client.Do[models.EngineMoveResponse](context.Background(), embedded, http.MethodPost, "/game/pc_move", nil)
	require.NoError(t, err)
	require.Equal(t, want, got.Board)
	require.Equal(t, models.StatusOngoing, got.Status)

	native := newTestClient(t, respond(`{"board":[[0,0,0],[0,-1,0],[0,0,1]],"status":"ongoing"}`))
	direct, err := client.Do[models.EngineMoveResponse](context.Background(), native, http.MethodPost, "/game/pc_move", nil)
	require.NoError(t, err)
	require.Equal(t, direct, got)
}

func TestRequestMalformedBoardString(t *testing.T) {
	c := newTestClient(t, respond(`{"board":"not-json","status":"ongoing"}`))

	_, err := client.Do[models.EngineMoveResponse](context.Background(), c, http.MethodPost, "/game/pc_move", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, client.ErrInvalidBoardFormat))
	require.False(t, errors.Is(err, client.ErrDecoding))
}

func TestRequestDecodingError(t *testing.T) {
	c := newTestClient(t, respond(`{"status":42}`))

	_, err := client.Do[models.GameStatusResponse](context.Background(), c, http.MethodPost, "/game/player_move", nil)
	require.ErrorIs(t, err, client.ErrDecoding)
}

func TestRequestNonObjectPayload(t *testing.T) {
	c := newTestClient(t, respond(`[[1,0,0],[0,0,0],[0,0,-1]]`))

	board, err := client.Do[models.Board](context.Background(), c, http.MethodGet, "/board", nil)
	require.NoError(t, err)
	require.Equal(t, models.Board{{1, 0, 0}, {0, 0, 0}, {0, 0, -1}}, board)
}

func TestRequestHeadersAndBody(t *testing.T) {
	var gotAuth, gotRequestID, gotContentType string
	var gotBody map[string]any
	h := func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get(client.RequestIDHeader)
		gotContentType = r.Header.Get("Content-Type")
		gotBody = nil
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
		}
		respond(`{"status":"ongoing"}`)(w, r)
	}

	token := ""
	c := newTestClient(t, h, client.WithTokenSource(client.TokenFunc(func(context.Context) string { return token })))

	body := map[string]any{"board": models.NewBoard(), "sessionId": "7"}
	require.NoError(t, c.Request(context.Background(), http.MethodPost, "/game/player_move", body, nil))
	require.Empty(t, gotAuth)
	require.NotEmpty(t, gotRequestID)
	require.Equal(t, "application/json", gotContentType)
	require.Equal(t, "7", gotBody["sessionId"])
	require.Len(t, gotBody["board"], 3)

	token = "abc.def"
	require.NoError(t, c.Request(context.Background(), http.MethodGet, "/stats", nil, nil))
	require.Equal(t, "Bearer abc.def", gotAuth)
}

func TestRequestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
		msg    string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"Invalid or expired token"}`, client.ErrUnauthorized, "unauthorized access"},
		{"server", http.StatusBadRequest, `{"error":"Invalid move","details":"cell taken"}`, client.ErrServer, "server error with code: 400: Invalid move: cell taken"},
		{"server plain", http.StatusBadGateway, `upstream down`, client.ErrServer, "server error with code: 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			err := c.Request(context.Background(), http.MethodGet, "/stats", nil, nil)
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, tt.status, client.StatusCode(err))
			require.Equal(t, tt.msg, err.Error())
		})
	}
}

func TestRequestNetworkError(t *testing.T) {
	srv := httptest.NewServer(respond(`{}`))
	c, err := client.New(srv.URL)
	require.NoError(t, err)
	srv.Close()

	err = c.Request(context.Background(), http.MethodGet, "/stats", nil, nil)
	require.ErrorIs(t, err, client.ErrNetwork)
}

func TestRequestCanceledContext(t *testing.T) {
	c := newTestClient(t, respond(`{}`))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Request(ctx, http.MethodGet, "/stats", nil, nil)
	require.ErrorIs(t, err, client.ErrNetwork)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewInvalidURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8080", "http://", "://broken"} {
		_, err := client.New(raw)
		require.ErrorIs(t, err, client.ErrInvalidURL, "base url %q", raw)
	}
}

func TestEndpointsGameStateURL(t *testing.T) {
	require.Equal(t, "/game?sessionId=12", client.DefaultEndpoints().GameStateURL(12))
}
