package models

import (
	"fmt"
	"strconv"
	"strings"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CreateGameRequest struct {
	StartWithPlayer bool `json:"startWithPlayer"`
}

// MoveRequest carries the full board. The session id travels as a decimal
// string.
type MoveRequest struct {
	Board     Board  `json:"board" binding:"required"`
	SessionID string `json:"sessionId" binding:"required"`
}

func (r *MoveRequest) Validate() (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(r.SessionID))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid session id: %q", r.SessionID)
	}
	if err := r.Board.Validate(); err != nil {
		return 0, err
	}
	return id, nil
}
