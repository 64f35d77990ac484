package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"squadquiz-backend-go/internal/api"
	"squadquiz-backend-go/internal/config"
	"squadquiz-backend-go/internal/core"
	"squadquiz-backend-go/internal/db"
	"squadquiz-backend-go/internal/middleware"
	"squadquiz-backend-go/pkg/cache"
	"squadquiz-backend-go/pkg/messagequeue"
)

func main() {
	// --- 1. Initialize Logger (Zap) ---
	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()

	// --- 2. Load Application Configuration ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to load application configuration", zap.Error(err))
	}
	zapLogger.Info("Application configuration loaded",
		zap.String("storeBackend", appConfig.StoreBackend),
		zap.String("port", appConfig.Port))

	// --- 3. Initialize Repositories for the configured backend ---
	var (
		userRepo  db.UserRepository
		squadRepo db.SquadRepository
		quizRepo  db.QuizRepository
		scoreRepo db.ScoreRepository
	)
	switch appConfig.StoreBackend {
	case config.StoreBackendMemory:
		store := db.NewMemoryStore()
		userRepo = db.NewMemoryUserRepository(store)
		squadRepo = db.NewMemorySquadRepository(store)
		quizRepo = db.NewMemoryQuizRepository(store)
		scoreRepo = db.NewMemoryScoreRepository(store)
		zapLogger.Warn("Using in-memory store; all data is lost on restart")
	default:
		initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelInitCtx()
		if err := db.InitFirestore(initCtx, appConfig); err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firestore and Firebase Admin SDK", zap.Error(err))
		}
		firestoreClient := db.GetFirestoreClient()
		if firestoreClient == nil {
			zapLogger.Fatal("CRITICAL_ERROR: Firestore client is nil after initialization. Application cannot start.")
		}
		if db.GetFirebaseAuthClient() == nil {
			zapLogger.Fatal("CRITICAL_ERROR: Firebase Auth client is nil after initialization. Application cannot start.")
		}
		userRepo = db.NewFirestoreUserRepository(firestoreClient)
		squadRepo = db.NewFirestoreSquadRepository(firestoreClient)
		quizRepo = db.NewFirestoreQuizRepository(firestoreClient)
		scoreRepo = db.NewFirestoreScoreRepository(firestoreClient)
		zapLogger.Info("Firebase Admin SDK (Firestore, Auth) initialized")
	}

	// --- 4. Optional infrastructure: Redis cache and RabbitMQ ---
	var leaderboardCache cache.Cache
	if appConfig.RedisAddr != "" {
		leaderboardCache, err = cache.NewRedisCache(cache.NewRedisCacheConfig{
			Address:  appConfig.RedisAddr,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
		})
		if err != nil {
			zapLogger.Warn("Redis unavailable; leaderboards will be computed on every request", zap.Error(err))
			leaderboardCache = nil
		}
	} else {
		zapLogger.Info("REDIS_ADDR not set; leaderboard caching disabled")
	}

	var scoreQueue messagequeue.MessageQueue
	if appConfig.RabbitMQURL != "" {
		scoreQueue, err = messagequeue.NewRabbitMQService(messagequeue.NewRabbitMQServiceConfig{URL: appConfig.RabbitMQURL})
		if err != nil {
			zapLogger.Warn("RabbitMQ unavailable; score events will not be published", zap.Error(err))
			scoreQueue = nil
		} else {
			defer scoreQueue.Close()
		}
	} else {
		zapLogger.Info("RABBITMQ_URL not set; score event publishing disabled")
	}

	// --- 5. Initialize Services ---
	userService := core.NewUserService(userRepo)
	squadService := core.NewSquadService(squadRepo, userRepo)
	quizService := core.NewQuizService(quizRepo, userRepo, scoreRepo, scoreQueue)
	leaderboardService := core.NewLeaderboardService(userRepo, squadRepo, scoreRepo, leaderboardCache)
	zapLogger.Info("Core services initialized")

	// --- 6. Setup Gin HTTP Engine ---
	if strings.ToLower(appConfig.GinMode) == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()

	// --- 7. Apply Global Middleware (order matters) ---
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	if appConfig.ClientURL != "" {
		router.Use(middleware.CORSMiddleware(appConfig))
		zapLogger.Info("CORS Middleware enabled", zap.String("clientURL", appConfig.ClientURL))
	} else {
		zapLogger.Warn("CORS Middleware SKIPPED: CLIENT_URL is not configured.")
	}

	// --- 8. Setup API Routes ---
	api.SetupRoutes(
		router,
		appConfig,
		zapLogger,
		userService,
		squadService,
		quizService,
		leaderboardService,
	)

	// --- 9. Configure and Start HTTP Server ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	zapLogger.Info("Starting HTTP server...", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- 10. Graceful Shutdown Handling ---
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Fatal("Server forced to shutdown due to error during graceful shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exiting gracefully.")
}
