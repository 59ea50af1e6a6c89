package game_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"tictactoe-client/internal/client"
	"tictactoe-client/internal/credentials"
	"tictactoe-client/internal/game"
	"tictactoe-client/internal/handlers"
	"tictactoe-client/internal/models"
	"tictactoe-client/internal/services"
	"tictactoe-client/internal/session"
)

// newLiveController logs a fresh user into an in-process game server and
// returns a controller talking to it over HTTP.
func newLiveController(t *testing.T) (*game.Controller, *game.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := httptest.NewServer(handlers.NewRouter(services.NewMemoryStore(), services.NewJWTService("test-secret", time.Hour)))
	t.Cleanup(srv.Close)

	repo := session.NewRepository(credentials.NewMemoryStore())
	api, err := client.New(srv.URL, client.WithTokenSource(repo))
	require.NoError(t, err)

	auth := session.NewAuthService(api, repo, client.DefaultEndpoints())
	_, err = auth.Register(context.Background(), "Ada", "ada@example.com", "password123")
	require.NoError(t, err)

	svc := game.NewService(api, client.DefaultEndpoints())
	return game.NewController(svc, game.WithPacing(game.Pacing{})), svc
}

func TestLiveGameToCompletion(t *testing.T) {
	ctx := context.Background()
	c, svc := newLiveController(t)

	var outcomes []game.Outcome
	c.Subscribe(func(ev game.Event) {
		if ev.Kind == game.EventOutcome {
			outcomes = append(outcomes, ev.Outcome)
		}
	})

	require.NoError(t, c.StartNewGame(ctx, false))
	snap := c.Snapshot()
	require.Equal(t, 1, snap.Session.Board.Count(models.CellO), "engine opening move applied before return")
	require.Equal(t, models.PlayerX, snap.Session.CurrentPlayer)

	for c.Snapshot().State == game.StateOngoing {
		cells := c.Snapshot().Session.Board.EmptyCells()
		require.NotEmpty(t, cells)
		require.NoError(t, c.SubmitMove(ctx, cells[0][0], cells[0][1]))
	}

	snap = c.Snapshot()
	require.Equal(t, game.StateTerminal, snap.State)
	require.Len(t, outcomes, 1)
	require.Equal(t, game.OutcomeMessage(snap.Session.Status), outcomes[0].Message)

	// The server's record, delivered with a string board, matches the mirror.
	remote, err := svc.GameState(ctx, snap.Session.ID)
	require.NoError(t, err)
	require.True(t, remote.Board.Equal(snap.Session.Board))
	require.Equal(t, snap.Session.Status, remote.Status)
}

func TestLiveResume(t *testing.T) {
	ctx := context.Background()
	c, svc := newLiveController(t)

	require.NoError(t, c.StartNewGame(ctx, true))
	require.NoError(t, c.SubmitMove(ctx, 1, 1))
	id := c.Snapshot().Session.ID

	fresh := game.NewController(svc, game.WithPacing(game.Pacing{}))
	require.NoError(t, fresh.Resume(ctx, id))
	require.Equal(t, c.Snapshot().Session.Board, fresh.Snapshot().Session.Board)
	require.Equal(t, game.StateOngoing, fresh.Snapshot().State)
}

func TestLiveServerRejectionKeepsState(t *testing.T) {
	ctx := context.Background()
	c, svc := newLiveController(t)
	require.NoError(t, c.StartNewGame(ctx, true))
	id := c.Snapshot().Session.ID

	// Asking the engine to move on the human's turn is refused.
	_, err := svc.EngineMove(ctx, models.NewBoard(), id)
	require.ErrorIs(t, err, client.ErrServer)
	require.Equal(t, 409, client.StatusCode(err))

	_, err = svc.GameState(ctx, id+100)
	require.ErrorIs(t, err, client.ErrServer)
	require.Equal(t, game.StateOngoing, c.Snapshot().State)
}

// flakyEngine fails the first n engine requests before reaching the server.
type flakyEngine struct {
	*game.Service
	n int
}

func (f *flakyEngine) EngineMove(ctx context.Context, board models.Board, sessionID int) (models.EngineMoveResponse, error) {
	if f.n > 0 {
		f.n--
		return models.EngineMoveResponse{}, &client.Error{Kind: client.KindNetwork, Cause: errors.New("connection reset")}
	}
	return f.Service.EngineMove(ctx, board, sessionID)
}

func TestLiveGameRecoversFromEngineFailure(t *testing.T) {
	ctx := context.Background()
	_, svc := newLiveController(t)
	c := game.NewController(&flakyEngine{Service: svc, n: 1}, game.WithPacing(game.Pacing{}))

	require.NoError(t, c.StartNewGame(ctx, true))
	require.ErrorIs(t, c.SubmitMove(ctx, 0, 0), client.ErrNetwork)
	require.Equal(t, models.PlayerO, c.Snapshot().Session.CurrentPlayer)

	// The next tap retries the engine instead of moving out of turn.
	require.NoError(t, c.SubmitMove(ctx, 1, 1))
	snap := c.Snapshot()
	require.Equal(t, models.PlayerX, snap.Session.CurrentPlayer)
	require.Equal(t, 1, snap.Session.Board.Count(models.CellX))
	require.Equal(t, 1, snap.Session.Board.Count(models.CellO))
	require.Empty(t, snap.LastError)

	for c.Snapshot().State == game.StateOngoing {
		cells := c.Snapshot().Session.Board.EmptyCells()
		require.NoError(t, c.SubmitMove(ctx, cells[0][0], cells[0][1]))
	}
	require.Equal(t, game.StateTerminal, c.Snapshot().State)
}
