package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tictactoe-client/internal/models"
	"tictactoe-client/internal/services"
)

type GameHandler struct {
	gameEngine *services.GameEngine
}

func NewGameHandler(gameEngine *services.GameEngine) *GameHandler {
	return &GameHandler{gameEngine: gameEngine}
}

func (h *GameHandler) CreateGameSession(c *gin.Context) {
	userID := c.GetInt("user_id")

	var req models.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	session, err := h.gameEngine.CreateSession(c.Request.Context(), userID, req.StartWithPlayer)
	if err != nil {
		engineError(c, "Failed to create game", err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *GameHandler) PlayerMove(c *gin.Context) {
	userID := c.GetInt("user_id")

	req, gameID, ok := bindMove(c)
	if !ok {
		return
	}

	status, err := h.gameEngine.PlayerMove(c.Request.Context(), userID, gameID, req.Board)
	if err != nil {
		engineError(c, "Failed to make move", err)
		return
	}

	c.JSON(http.StatusOK, models.GameStatusResponse{Status: status})
}

// PCMove answers with the board encoded as a JSON string.
func (h *GameHandler) PCMove(c *gin.Context) {
	userID := c.GetInt("user_id")

	req, gameID, ok := bindMove(c)
	if !ok {
		return
	}

	resp, err := h.gameEngine.EngineMove(c.Request.Context(), userID, gameID, req.Board)
	if err != nil {
		engineError(c, "Failed to make engine move", err)
		return
	}

	body := gin.H{
		"board":  boardString(resp.Board),
		"status": resp.Status,
	}
	if resp.Winner != nil {
		body["winner"] = *resp.Winner
	}
	c.JSON(http.StatusOK, body)
}

func (h *GameHandler) GetGame(c *gin.Context) {
	userID := c.GetInt("user_id")

	gameID, err := strconv.Atoi(c.Query("sessionId"))
	if err != nil || gameID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	session, err := h.gameEngine.GameState(c.Request.Context(), userID, gameID)
	if err != nil {
		engineError(c, "Failed to get game", err)
		return
	}

	c.JSON(http.StatusOK, sessionPayload(session))
}

func (h *GameHandler) GetStats(c *gin.Context) {
	userID := c.GetInt("user_id")

	stats, err := h.gameEngine.Stats(c.Request.Context(), userID)
	if err != nil {
		engineError(c, "Failed to get stats", err)
		return
	}

	c.JSON(http.StatusOK, models.StatsResponse{Stats: stats})
}

func bindMove(c *gin.Context) (*models.MoveRequest, int, bool) {
	var req models.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return nil, 0, false
	}

	gameID, err := req.Validate()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return nil, 0, false
	}
	return &req, gameID, true
}

func engineError(c *gin.Context, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrGameOver), errors.Is(err, services.ErrNotYourTurn):
		status = http.StatusConflict
	case errors.Is(err, services.ErrInvalidMove):
		status = http.StatusBadRequest
	default:
		log.Printf("%s: %v", msg, err)
	}

	c.JSON(status, gin.H{
		"error":   msg,
		"details": err.Error(),
	})
}

// sessionPayload renders a session with its board as a JSON string, the
// shape the game-state endpoint has always returned.
func sessionPayload(session *models.GameSession) gin.H {
	body := gin.H{
		"id":            session.ID,
		"board":         boardString(session.Board),
		"currentPlayer": session.CurrentPlayer,
		"status":        session.Status,
	}
	if session.Winner != nil {
		body["winner"] = *session.Winner
	}
	if session.UserID != nil {
		body["userId"] = *session.UserID
	}
	return body
}

func boardString(board models.Board) string {
	data, err := json.Marshal(board)
	if err != nil {
		return "[]"
	}
	return string(data)
}
