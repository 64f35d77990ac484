package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"squadquiz-backend-go/internal/config"
	"squadquiz-backend-go/internal/core"
	"squadquiz-backend-go/internal/db"
	"squadquiz-backend-go/internal/middleware"
)

// SetupRoutes configures all the application routes with their handlers and middleware.
// Global middleware (Logging, Recovery, CORS) are applied to the router before
// this function is called, in main.go.
func SetupRoutes(
	router *gin.Engine,
	appConfig *config.Config,
	logger *zap.Logger,
	userService core.UserService,
	squadService core.SquadService,
	quizService core.QuizService,
	leaderboardService core.LeaderboardService,
) {
	// Pick the authentication middleware for the configured backend. The
	// memory backend has no Firebase project behind it, so it runs with
	// header-based development auth instead of ID token verification.
	var authRequired gin.HandlerFunc
	if appConfig.StoreBackend == config.StoreBackendMemory {
		logger.Warn("Using development header authentication; do not expose this server publicly")
		authRequired = middleware.DevAuth()
	} else {
		firebaseAuthClient := db.GetFirebaseAuthClient()
		if firebaseAuthClient == nil {
			logger.Fatal("CRITICAL_SETUP_ERROR: Firebase Auth client is not initialized. Routes cannot be secured.")
			panic("Firebase Auth client is nil during route setup. Ensure db.InitFirestore() was called and succeeded.")
		}
		authRequired = middleware.NewAuthMiddleware(firebaseAuthClient).VerifyToken()
	}

	authHandler := NewAuthHandler(userService)
	userHandler := NewUserHandler(userService, squadService, quizService)
	squadHandler := NewSquadHandler(squadService)
	quizHandler := NewQuizHandler(quizService)
	leaderboardHandler := NewLeaderboardHandler(leaderboardService)

	apiV1 := router.Group("/api/v1")
	{
		usersGroup := apiV1.Group("/users", authRequired)
		{
			// Called after client-side Firebase login/signup to ensure a
			// backend profile exists.
			usersGroup.POST("/initialize", authHandler.InitializeUserProfile)
			usersGroup.GET("/me", userHandler.GetCurrentUserProfile)
			usersGroup.GET("/me/scores", userHandler.GetMyScores)
		}

		squadsGroup := apiV1.Group("/squads", authRequired)
		{
			squadsGroup.POST("", squadHandler.CreateSquad)
			squadsGroup.GET("/mine", squadHandler.GetMySquad)
			squadsGroup.GET("/search", squadHandler.SearchSquads)
			squadsGroup.GET("/:squadId", squadHandler.GetSquad)
			squadsGroup.PUT("/:squadId", squadHandler.UpdateSquad)
			squadsGroup.DELETE("/:squadId", squadHandler.DeleteSquad)
			squadsGroup.POST("/:squadId/join", squadHandler.JoinSquad)
			squadsGroup.POST("/:squadId/leave", squadHandler.LeaveSquad)
		}

		quizGroup := apiV1.Group("/quiz", authRequired)
		{
			quizGroup.GET("/daily", quizHandler.GetDailyQuiz)
			quizGroup.POST("/complete", quizHandler.CompleteQuiz)
		}

		// Leaderboards are public read-only data.
		leaderboardGroup := apiV1.Group("/leaderboard")
		{
			leaderboardGroup.GET("/users", leaderboardHandler.TopUsers)
			leaderboardGroup.GET("/squads", leaderboardHandler.TopSquads)
			leaderboardGroup.GET("/daily", leaderboardHandler.DailyScores)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})

	logger.Info("API routes configured under /api/v1 and /health")
}
