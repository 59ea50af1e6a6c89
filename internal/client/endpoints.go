package client

import (
	"net/url"
	"strconv"
)

// Endpoints are the server paths. They are configuration, not contract.
type Endpoints struct {
	Login      string
	Register   string
	Logout     string
	CreateGame string
	PlayerMove string
	EngineMove string
	GameState  string
	Stats      string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:      "/auth/login",
		Register:   "/auth/register",
		Logout:     "/auth/logout",
		CreateGame: "/game/create_game_session",
		PlayerMove: "/game/player_move",
		EngineMove: "/game/pc_move",
		GameState:  "/game",
		Stats:      "/stats",
	}
}

// GameStateURL appends the session id query to the game-state path.
func (e Endpoints) GameStateURL(sessionID int) string {
	q := url.Values{}
	q.Set("sessionId", strconv.Itoa(sessionID))
	return e.GameState + "?" + q.Encode()
}
