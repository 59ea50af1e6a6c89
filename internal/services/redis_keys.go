package services

import (
	"fmt"
	"time"
)

const (
	KeyUserSession = "user:%d:session:%s"
	KeyUserInfo    = "user:%d:info"
	KeyUserEmail   = "user:email:%s"
	KeyUserStats   = "user:%d:stats"
	KeyNextUserID  = "user:next_id"
	KeyGameSession = "game:session:%d"
	KeyNextGameID  = "game:next_id"
	KeyRateLimit   = "ratelimit:%d:%s"

	TTLGameSession = 7 * 24 * time.Hour  // 7 days

	DefaultRateLimitCreate = 30  // Max 30 new games per minute
	DefaultRateLimitMoves  = 120 // Max 120 move requests per minute
)

func userSessionKey(userID int, sessionID string) string {
	return fmt.Sprintf(KeyUserSession, userID, sessionID)
}

func rateLimitKey(userID int, action string) string {
	return fmt.Sprintf(KeyRateLimit, userID, action)
}
