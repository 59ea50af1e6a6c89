package services

import "tictactoe-client/internal/models"

// Broadcaster is notified after every accepted board change.
type Broadcaster interface {
	BroadcastBoard(session *models.GameSession)
}
