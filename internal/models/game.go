package models

import (
	"encoding/json"
	"fmt"
)

type Player string

const (
	PlayerX Player = "x"
	PlayerO Player = "o"
)

func PlayerForMark(mark int) Player {
	if mark == CellX {
		return PlayerX
	}
	return PlayerO
}

func (p Player) Mark() int {
	if p == PlayerX {
		return CellX
	}
	return CellO
}

func (p Player) Opponent() Player {
	if p == PlayerX {
		return PlayerO
	}
	return PlayerX
}

func (p *Player) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch Player(s) {
	case PlayerX, PlayerO:
		*p = Player(s)
		return nil
	}
	return fmt.Errorf("invalid player %q", s)
}

type GameStatus string

const (
	StatusOngoing GameStatus = "ongoing"
	StatusXWon    GameStatus = "x wins"
	StatusOWon    GameStatus = "o wins"
	StatusDraw    GameStatus = "draw"
)

func (s GameStatus) Valid() bool {
	switch s {
	case StatusOngoing, StatusXWon, StatusOWon, StatusDraw:
		return true
	}
	return false
}

func (s GameStatus) Terminal() bool {
	return s.Valid() && s != StatusOngoing
}

// Winner maps a won status to its player.
func (s GameStatus) Winner() (Player, bool) {
	switch s {
	case StatusXWon:
		return PlayerX, true
	case StatusOWon:
		return PlayerO, true
	}
	return "", false
}

func (s *GameStatus) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if !GameStatus(v).Valid() {
		return fmt.Errorf("invalid game status %q", v)
	}
	*s = GameStatus(v)
	return nil
}

// GameSession is one game between the user and the engine. The server
// owns the record; clients hold a mirror.
type GameSession struct {
	ID            int        `json:"id"`
	Board         Board      `json:"board"`
	CurrentPlayer Player     `json:"currentPlayer"`
	Status        GameStatus `json:"status"`
	Winner        *Player    `json:"winner,omitempty"`
	UserID        *int       `json:"userId,omitempty"`
}

func (s GameSession) Clone() GameSession {
	out := s
	out.Board = s.Board.Clone()
	if s.Winner != nil {
		w := *s.Winner
		out.Winner = &w
	}
	if s.UserID != nil {
		id := *s.UserID
		out.UserID = &id
	}
	return out
}

type GameStatusResponse struct {
	Status GameStatus `json:"status"`
}

type EngineMoveResponse struct {
	Board  Board      `json:"board"`
	Status GameStatus `json:"status"`
	Winner *Player    `json:"winner,omitempty"`
}
