package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

func main() {
	_ = godotenv.Load()

	app := newApp()
	logInfo("Starting Orelludo in %s mode", map[bool]string{true: "production", false: "development"}[app.IsProduction])

	catalog, err := loadCatalog("data/notes.json")
	if err != nil {
		logFatal("Failed to load note catalog: %v", err)
	}
	app.Catalog = catalog

	if getEnvBool("ENABLE_AUDIO", false) {
		emitter, err := newOtoEmitter()
		if err != nil {
			logFatal("Failed to initialize audio: %v", err)
		}
		logInfo("Server-side audio enabled")
		app.Tone = emitter
	} else {
		app.Tone = nullEmitter{}
	}

	router := app.newRouter()

	stopSweeper := make(chan struct{})
	app.startSessionSweeper(time.Minute, stopSweeper)
	defer close(stopSweeper)

	startServer(router)
}

// newApp builds the App from environment configuration.
func newApp() *App {
	return &App{
		Hub:               newWSHub(),
		Engines:           make(map[string]*Engine),
		LimiterMap:        make(map[string]*rate.Limiter),
		IsProduction:      os.Getenv("GIN_MODE") == "release" || os.Getenv("ENV") == "production",
		StartTime:         time.Now(),
		CookieMaxAge:      getEnvDuration("COOKIE_MAX_AGE", 2*time.Hour),
		SessionTimeout:    getEnvDuration("SESSION_TIMEOUT", 2*time.Hour),
		StaticCacheAge:    getEnvDuration("STATIC_CACHE_AGE", 5*time.Minute),
		RevealDelay:       getEnvDuration("REVEAL_DELAY", 1200*time.Millisecond),
		PressedClearDelay: getEnvDuration("PRESSED_CLEAR_DELAY", 600*time.Millisecond),
		NextRoundDelay:    getEnvDuration("NEXT_ROUND_DELAY", 2*time.Second),
		RateLimitRPS:      getEnvInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst:    getEnvInt("RATE_LIMIT_BURST", 10),
	}
}

// newRouter wires middleware and routes.
func (app *App) newRouter() *gin.Engine {
	router := gin.Default()

	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression,
		ginGzip.WithExcludedExtensions([]string{".svg", ".ico", ".png", ".jpg", ".jpeg", ".gif"}),
		ginGzip.WithExcludedPaths([]string{RouteWS})))

	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logWarn("Failed to set trusted proxies: %v", err)
	}

	router.Use(requestIDMiddleware())
	router.Use(app.applyCacheHeaders)

	if dirExists("static") {
		logInfo("Serving static assets from static/")
		router.Static("/static", "./static")
	}

	router.GET(RouteHome, app.homeHandler)
	router.POST(RouteStartRound, app.rateLimitMiddleware(), app.startRoundHandler)
	router.POST(RouteGuess, app.rateLimitMiddleware(), app.guessHandler)
	router.POST(RouteReplay, app.rateLimitMiddleware(), app.replayHandler)
	router.POST(RouteDifficulty, app.rateLimitMiddleware(), app.difficultyHandler)
	router.GET(RouteGameState, app.gameStateHandler)
	router.GET(RouteNotes, app.notesHandler)
	router.GET(RouteWS, app.wsHandler)
	router.GET("/healthz", app.healthHandler)

	return router
}

func startServer(router *gin.Engine) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		<-sigint
		logInfo("Shutdown signal received, shutting down server gracefully...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logWarn("HTTP server Shutdown: %v", err)
		}
		close(idleConnsClosed)
	}()

	logInfo("Server starting on http://localhost:%s", port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logFatal("Server failed to start: %v", err)
	}
	<-idleConnsClosed
	logInfo("Server shutdown complete")
}
