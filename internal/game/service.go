// Package game mirrors one server-owned tic-tac-toe session and drives it
// through the create, move and engine-move round trips.
package game

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"tictactoe-client/internal/client"
	"tictactoe-client/internal/models"
)

// API is the set of game endpoints the Controller depends on.
type API interface {
	CreateGameSession(ctx context.Context, humanFirst bool) (models.GameSession, error)
	MakeMove(ctx context.Context, board models.Board, sessionID int) (models.GameStatus, error)
	EngineMove(ctx context.Context, board models.Board, sessionID int) (models.EngineMoveResponse, error)
	GameState(ctx context.Context, sessionID int) (models.GameSession, error)
}

// Service implements API over the HTTP client.
type Service struct {
	api       *client.Client
	endpoints client.Endpoints
}

func NewService(api *client.Client, endpoints client.Endpoints) *Service {
	return &Service{api: api, endpoints: endpoints}
}

func (s *Service) CreateGameSession(ctx context.Context, humanFirst bool) (models.GameSession, error) {
	body := map[string]any{"startWithPlayer": humanFirst}
	sess, err := client.Do[models.GameSession](ctx, s.api, http.MethodPost, s.endpoints.CreateGame, body)
	if err != nil {
		return models.GameSession{}, err
	}
	if err := checkSession(sess); err != nil {
		return models.GameSession{}, err
	}
	return sess, nil
}

func (s *Service) MakeMove(ctx context.Context, board models.Board, sessionID int) (models.GameStatus, error) {
	resp, err := client.Do[models.GameStatusResponse](ctx, s.api, http.MethodPost, s.endpoints.PlayerMove, moveBody(board, sessionID))
	if err != nil {
		return "", err
	}
	if !resp.Status.Valid() {
		return "", &client.Error{Kind: client.KindDecoding, Cause: fmt.Errorf("missing game status")}
	}
	return resp.Status, nil
}

func (s *Service) EngineMove(ctx context.Context, board models.Board, sessionID int) (models.EngineMoveResponse, error) {
	resp, err := client.Do[models.EngineMoveResponse](ctx, s.api, http.MethodPost, s.endpoints.EngineMove, moveBody(board, sessionID))
	if err != nil {
		return models.EngineMoveResponse{}, err
	}
	if !resp.Status.Valid() {
		return models.EngineMoveResponse{}, &client.Error{Kind: client.KindDecoding, Cause: fmt.Errorf("missing game status")}
	}
	if err := resp.Board.Validate(); err != nil {
		return models.EngineMoveResponse{}, &client.Error{Kind: client.KindInvalidBoardFormat, Cause: err}
	}
	return resp, nil
}

func (s *Service) GameState(ctx context.Context, sessionID int) (models.GameSession, error) {
	sess, err := client.Do[models.GameSession](ctx, s.api, http.MethodGet, s.endpoints.GameStateURL(sessionID), nil)
	if err != nil {
		return models.GameSession{}, err
	}
	if err := checkSession(sess); err != nil {
		return models.GameSession{}, err
	}
	return sess, nil
}

// moveBody sends the session id as a decimal string, which is what the
// server binds.
func moveBody(board models.Board, sessionID int) map[string]any {
	return map[string]any{
		"board":     board,
		"sessionId": strconv.Itoa(sessionID),
	}
}

func checkSession(sess models.GameSession) error {
	if err := sess.Board.Validate(); err != nil {
		return &client.Error{Kind: client.KindInvalidBoardFormat, Cause: err}
	}
	if !sess.Status.Valid() {
		return &client.Error{Kind: client.KindDecoding, Cause: fmt.Errorf("missing game status")}
	}
	if sess.CurrentPlayer == "" {
		return &client.Error{Kind: client.KindDecoding, Cause: fmt.Errorf("missing current player")}
	}
	return nil
}
