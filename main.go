package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/JavierChicano/inversiones-app/src/config"
	"github.com/JavierChicano/inversiones-app/src/database"
	"github.com/JavierChicano/inversiones-app/src/handlers"
	"github.com/JavierChicano/inversiones-app/src/logger"
	"github.com/JavierChicano/inversiones-app/src/security"
	"github.com/JavierChicano/inversiones-app/src/services"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			config.Cfg.FrontendBaseURL: true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Requested-With, Cookie, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "X-CSRF-Token, ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("inversiones backend server starting...")

	if len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}
	if len(config.Cfg.CSRFAuthKey) < 32 {
		logger.L.Error("CSRF_AUTH_KEY must be at least 32 bytes long.")
		os.Exit(1)
	}

	logger.L.Info("initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)

	reportCache := cache.New(15*time.Minute, 30*time.Minute)

	logger.L.Info("initializing services and handlers...")
	authService := security.NewAuthService(config.Cfg.JWTSecret)
	emailService := services.NewEmailService()
	portfolioService := services.NewPortfolioService(reportCache)
	marketDataService := services.NewMarketDataService()
	transactionService := services.NewTransactionService(portfolioService)
	currencyService := services.NewCurrencyService()
	watchlistService := services.NewWatchlistService()
	snapshotService := services.NewSnapshotService(marketDataService, portfolioService)

	userHandler := handlers.NewUserHandler(authService, emailService)
	handlers.InitializeGoogleOAuthConfig()
	txHandler := handlers.NewTransactionHandler(transactionService)
	analyticsHandler := handlers.NewAnalyticsHandler(portfolioService)
	dashboardHandler := handlers.NewDashboardHandler(portfolioService)
	assetHandler := handlers.NewAssetHandler(marketDataService, portfolioService)
	watchlistHandler := handlers.NewWatchlistHandler(watchlistService)
	currencyHandler := handlers.NewCurrencyHandler(currencyService)
	cronHandler := handlers.NewCronHandler(snapshotService)

	logger.L.Info("configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	// Public GET routes.
	apiRouter.HandleFunc("GET /api/auth/csrf", handlers.GetCSRFToken)
	apiRouter.HandleFunc("GET /api/auth/verify-email", userHandler.VerifyEmailHandler)
	apiRouter.HandleFunc("GET /api/auth/google/login", userHandler.HandleGoogleLogin)
	apiRouter.HandleFunc("GET /api/auth/google/callback", userHandler.HandleGoogleCallback)

	// Auth actions, CSRF protected as a group.
	authActionRouter := http.NewServeMux()
	authActionRouter.HandleFunc("POST /register", userHandler.RegisterUserHandler)
	authActionRouter.HandleFunc("POST /login", userHandler.LoginUserHandler)
	authActionRouter.HandleFunc("POST /refresh", userHandler.RefreshTokenHandler)
	authActionRouter.HandleFunc("POST /logout", userHandler.AuthMiddleware(userHandler.LogoutUserHandler))
	apiRouter.Handle("/api/auth/", http.StripPrefix("/api/auth", handlers.CSRFMiddleware(config.Cfg.CSRFAuthKey)(authActionRouter)))

	csrfProtection := handlers.CSRFMiddleware(config.Cfg.CSRFAuthKey)
	applyCsrfAndAuth := func(handler http.HandlerFunc) http.Handler {
		return csrfProtection(userHandler.AuthMiddleware(handler))
	}

	apiRouter.Handle("GET /api/user/me", applyCsrfAndAuth(userHandler.HandleGetMe))
	apiRouter.Handle("GET /api/user/has-data", applyCsrfAndAuth(userHandler.HandleCheckUserData))

	apiRouter.Handle("GET /api/transactions", applyCsrfAndAuth(txHandler.HandleList))
	apiRouter.Handle("POST /api/transactions", applyCsrfAndAuth(txHandler.HandleCreate))
	apiRouter.Handle("PUT /api/transactions/{id}", applyCsrfAndAuth(txHandler.HandleUpdate))
	apiRouter.Handle("DELETE /api/transactions/{id}", applyCsrfAndAuth(txHandler.HandleDelete))

	apiRouter.Handle("GET /api/analytics/closed-positions", applyCsrfAndAuth(analyticsHandler.HandleGetClosedPositions))
	apiRouter.Handle("GET /api/dashboard/stats", applyCsrfAndAuth(dashboardHandler.HandleGetStats))

	apiRouter.Handle("GET /api/assets", applyCsrfAndAuth(assetHandler.HandleList))
	apiRouter.Handle("GET /api/assets/{ticker}", applyCsrfAndAuth(assetHandler.HandleGet))
	apiRouter.Handle("POST /api/assets/refresh", applyCsrfAndAuth(assetHandler.HandleRefresh))

	apiRouter.Handle("GET /api/watchlist", applyCsrfAndAuth(watchlistHandler.HandleList))
	apiRouter.Handle("POST /api/watchlist", applyCsrfAndAuth(watchlistHandler.HandleAdd))
	apiRouter.Handle("DELETE /api/watchlist/{id}", applyCsrfAndAuth(watchlistHandler.HandleRemove))

	apiRouter.Handle("GET /api/currency-exchanges", applyCsrfAndAuth(currencyHandler.HandleList))
	apiRouter.Handle("POST /api/currency-exchanges", applyCsrfAndAuth(currencyHandler.HandleCreate))
	apiRouter.Handle("DELETE /api/currency-exchanges/{id}", applyCsrfAndAuth(currencyHandler.HandleDelete))

	apiRouter.HandleFunc("POST /api/cronjobs/daily-snapshot", handlers.CronAuthMiddleware(cronHandler.HandleDailySnapshot))
	apiRouter.HandleFunc("POST /api/cronjobs/refresh-prices", handlers.CronAuthMiddleware(cronHandler.HandleRefreshPrices))

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "inversiones backend is running"})
			return
		}
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			logger.L.Warn("root level path not found", "method", r.Method, "path", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
