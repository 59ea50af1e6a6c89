package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"tictactoe-client/internal/models"
)

var (
	ErrGameOver    = errors.New("game is already over")
	ErrNotYourTurn = errors.New("not your turn")
	ErrInvalidMove = errors.New("invalid move")
	ErrForbidden   = errors.New("game belongs to another user")
)

// GameEngine is the authority for game sessions. The user always plays X;
// the engine plays O by picking a random empty cell.
type GameEngine struct {
	store       Store
	broadcaster Broadcaster

	// mu serializes read-modify-write cycles on sessions.
	mu sync.Mutex
}

func NewGameEngine(store Store) *GameEngine {
	return &GameEngine{store: store}
}

func (ge *GameEngine) SetBroadcaster(b Broadcaster) {
	ge.broadcaster = b
}

func (ge *GameEngine) CreateSession(ctx context.Context, userID int, startWithPlayer bool) (*models.GameSession, error) {
	id, err := ge.store.NextGameID(ctx)
	if err != nil {
		return nil, err
	}

	current := models.PlayerX
	if !startWithPlayer {
		current = models.PlayerO
	}
	uid := userID
	session := &models.GameSession{
		ID:            id,
		Board:         models.NewBoard(),
		CurrentPlayer: current,
		Status:        models.StatusOngoing,
		UserID:        &uid,
	}
	if err := ge.store.SaveGameSession(ctx, session); err != nil {
		return nil, err
	}

	log.Printf("Game %d created for user %d (player first: %t)", id, userID, startWithPlayer)
	return session, nil
}

// PlayerMove accepts board if it differs from the stored one by exactly
// one X placed on an empty cell.
func (ge *GameEngine) PlayerMove(ctx context.Context, userID, gameID int, board models.Board) (models.GameStatus, error) {
	if err := board.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidMove, err)
	}

	ge.mu.Lock()
	defer ge.mu.Unlock()

	session, err := ge.loadPlayable(ctx, userID, gameID)
	if err != nil {
		return "", err
	}
	if session.CurrentPlayer != models.PlayerX {
		return "", ErrNotYourTurn
	}

	changed := session.Board.Diff(board)
	if len(changed) != 1 {
		return "", fmt.Errorf("%w: expected one changed cell, got %d", ErrInvalidMove, len(changed))
	}
	row, col := changed[0][0], changed[0][1]
	if session.Board[row][col] != models.CellEmpty || board[row][col] != models.CellX {
		return "", fmt.Errorf("%w: cell (%d,%d) cannot take an X", ErrInvalidMove, row, col)
	}

	session.Board = board.Clone()
	session.CurrentPlayer = models.PlayerO
	if err := ge.commit(ctx, userID, session); err != nil {
		return "", err
	}
	return session.Status, nil
}

// EngineMove plays O on board, which must match the stored board.
func (ge *GameEngine) EngineMove(ctx context.Context, userID, gameID int, board models.Board) (*models.EngineMoveResponse, error) {
	if err := board.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMove, err)
	}

	ge.mu.Lock()
	defer ge.mu.Unlock()

	session, err := ge.loadPlayable(ctx, userID, gameID)
	if err != nil {
		return nil, err
	}
	if session.CurrentPlayer != models.PlayerO {
		return nil, ErrNotYourTurn
	}
	if !session.Board.Equal(board) {
		return nil, fmt.Errorf("%w: board is out of sync", ErrInvalidMove)
	}

	row, col, ok := session.Board.RandomEmptyCell()
	if !ok {
		return nil, ErrGameOver
	}
	next, err := session.Board.Place(row, col, models.CellO)
	if err != nil {
		return nil, err
	}

	session.Board = next
	session.CurrentPlayer = models.PlayerX
	if err := ge.commit(ctx, userID, session); err != nil {
		return nil, err
	}
	return &models.EngineMoveResponse{
		Board:  session.Board.Clone(),
		Status: session.Status,
		Winner: session.Winner,
	}, nil
}

func (ge *GameEngine) GameState(ctx context.Context, userID, gameID int) (*models.GameSession, error) {
	session, err := ge.store.GetGameSession(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if session.UserID == nil || *session.UserID != userID {
		return nil, ErrForbidden
	}
	return session, nil
}

// Stats returns the counters with TotalGames filled in.
func (ge *GameEngine) Stats(ctx context.Context, userID int) (models.GameStats, error) {
	stats, err := ge.store.GetStats(ctx, userID)
	if err != nil {
		return models.GameStats{}, err
	}
	stats.TotalGames = models.IntPtr(stats.Total())
	return stats, nil
}

func (ge *GameEngine) loadPlayable(ctx context.Context, userID, gameID int) (*models.GameSession, error) {
	session, err := ge.GameState(ctx, userID, gameID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.StatusOngoing {
		return nil, ErrGameOver
	}
	return session, nil
}

// commit derives status and winner from the board, saves the session and
// records the result once the game ends.
func (ge *GameEngine) commit(ctx context.Context, userID int, session *models.GameSession) error {
	session.Status = session.Board.Status()
	if p, ok := session.Status.Winner(); ok {
		session.Winner = &p
	}
	if err := ge.store.SaveGameSession(ctx, session); err != nil {
		return err
	}
	if session.Status.Terminal() {
		if err := ge.store.RecordResult(ctx, userID, session.Status); err != nil {
			return fmt.Errorf("failed to record result: %w", err)
		}
		log.Printf("Game %d finished: %s", session.ID, session.Status)
	}
	if ge.broadcaster != nil {
		ge.broadcaster.BroadcastBoard(session)
	}
	return nil
}
