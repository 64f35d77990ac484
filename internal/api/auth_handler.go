package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"squadquiz-backend-go/internal/core"
)

// AuthHandler handles authentication related API endpoints.
type AuthHandler struct {
	userService core.UserService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(us core.UserService) *AuthHandler {
	return &AuthHandler{userService: us}
}

// InitializeUserProfile handles POST /users/initialize.
// Clients call this after a Firebase login/signup so a backend profile exists
// before any squad or quiz request. The auth middleware has already verified
// the token and stashed the user's identity in the Gin context.
func (h *AuthHandler) InitializeUserProfile(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		return
	}

	rawEmail, _ := c.Get("userEmail")
	email, _ := rawEmail.(string)

	rawDisplayName, _ := c.Get("userDisplayName")
	displayName, _ := rawDisplayName.(string)

	rawPhotoURL, _ := c.Get("userPhotoURL")
	photoURL, _ := rawPhotoURL.(string)

	user, created, err := h.userService.GetOrCreate(c.Request.Context(), userID, email, displayName, photoURL)
	if err != nil {
		log.Printf("InitializeUserProfile: GetOrCreate failed for userID %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to initialize user profile", Details: err.Error()})
		return
	}

	if created {
		c.JSON(http.StatusCreated, user)
		return
	}
	c.JSON(http.StatusOK, user)
}
