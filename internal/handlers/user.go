package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tictactoe-client/internal/services"
)

type UserHandler struct {
	store services.Store
}

func NewUserHandler(store services.Store) *UserHandler {
	return &UserHandler{store: store}
}

func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	userID := c.GetInt("user_id")

	account, err := h.store.GetUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": account.User(),
		"session": gin.H{
			"session_id": c.GetString("session_id"),
		},
	})
}

func (h *UserHandler) Logout(c *gin.Context) {
	userID := c.GetInt("user_id")
	sessionID := c.GetString("session_id")

	if err := h.store.DeleteUserSession(c.Request.Context(), userID, sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}
