package services_test

import (
	"testing"
	"time"

	"tictactoe-client/internal/services"
)

func TestJWTService(t *testing.T) {
	jwtService := services.NewJWTService("test-secret", time.Hour)

	token, claims, err := jwtService.GenerateToken(42)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if claims.SessionID == "" {
		t.Error("Token should carry a session ID")
	}

	validated, err := jwtService.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if validated.UserID != 42 {
		t.Errorf("Expected user 42, got %d", validated.UserID)
	}
	if validated.SessionID != claims.SessionID {
		t.Errorf("Session ID mismatch: expected %s, got %s", claims.SessionID, validated.SessionID)
	}

	other := services.NewJWTService("other-secret", time.Hour)
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("Token signed with another secret should be rejected")
	}

	expired := services.NewJWTService("test-secret", -time.Minute)
	stale, _, err := expired.GenerateToken(42)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if _, err := jwtService.ValidateToken(stale); err == nil {
		t.Error("Expired token should be rejected")
	}

	if _, err := jwtService.ValidateToken("not-a-token"); err == nil {
		t.Error("Garbage should be rejected")
	}
}
