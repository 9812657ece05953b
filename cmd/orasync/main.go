// main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/Marga-Ghale/ora-scrum-client/internal/api"
	"github.com/Marga-Ghale/ora-scrum-client/internal/apiclient"
	"github.com/Marga-Ghale/ora-scrum-client/internal/cache"
	"github.com/Marga-Ghale/ora-scrum-client/internal/config"
	"github.com/Marga-Ghale/ora-scrum-client/internal/cron"
	"github.com/Marga-Ghale/ora-scrum-client/internal/db"
	"github.com/Marga-Ghale/ora-scrum-client/internal/logger"
	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
	"github.com/Marga-Ghale/ora-scrum-client/internal/query"
	"github.com/Marga-Ghale/ora-scrum-client/internal/retry"
	"github.com/Marga-Ghale/ora-scrum-client/internal/socket"
)

func main() {
	// ============================================
	// Load environment variables
	// ============================================
	envErr := godotenv.Load()

	// ============================================
	// Load configuration
	// ============================================
	cfg := config.Load()

	logs, err := logger.New().
		FromPath(cfg.LogFile).
		Level(cfg.LogLevel).
		Console(cfg.IsDevelopment()).
		Make()
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to set up logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logs.Close()
	log := logs.Logger

	if envErr != nil {
		log.Info().Msg("No .env file found, using environment variables")
	}
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ============================================
	// Token storage
	// ============================================
	storage, closer, err := db.Open(ctx, cfg, logger.Component(log, "storage"))
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.TokenStore).Msg("❌ Failed to open token storage")
	}
	defer closer.Close()
	log.Info().Str("store", cfg.TokenStore).Bool("sealed", cfg.TokenSecret != "").Msg("🔐 Token storage ready")

	// ============================================
	// Remote client and cache
	// ============================================
	client := apiclient.New(cfg.APIBaseURL,
		apiclient.WithTimeout(cfg.HTTPTimeout),
		apiclient.WithStorage(storage),
		apiclient.WithLogger(logger.Component(log, "api")),
	)

	store := cache.New(cache.Options{
		DefaultStaleTime: cfg.CacheStaleTime,
		StaleTimes:       staleTimes(cfg),
		Retryer:          retry.NewBackoff(cfg.QueryRetry),
		ShouldRetry:      apiclient.IsRetryable,
		Logger:           logger.Component(log, "cache"),
	})
	defer store.Close()

	q := query.New(client, store, logger.Component(log, "query"))

	if err := signIn(ctx, client, q, cfg, log); err != nil {
		log.Warn().Err(err).Msg("⚠️  Not signed in; reads stay idle until tokens are stored")
	}

	// ============================================
	// Realtime listener
	// ============================================
	var listener *socket.Listener
	listenerDone := make(chan struct{})
	if cfg.RealtimeEnabled && cfg.WSURL != "" {
		listener = socket.NewListener(socket.Options{
			URL:     cfg.WSURL,
			Tokens:  client,
			Store:   store,
			Retryer: retry.NewFixed(cfg.RealtimeReconnectInterval, cfg.RealtimeMaxReconnects),
			Logger:  logger.Component(log, "socket"),
		})
		joinWorkspaceRooms(ctx, q, listener, log)
		go func() {
			defer close(listenerDone)
			if err := listener.Run(ctx); err != nil {
				log.Warn().Err(err).Msg("⚠️  Realtime disabled after repeated failures; polling only")
			}
		}()
		log.Info().Str("url", cfg.WSURL).Msg("🔌 Realtime listener started")
	} else {
		close(listenerDone)
	}

	// ============================================
	// Initialize Cron Scheduler
	// ============================================
	scheduler := cron.NewScheduler(logger.Component(log, "cron"), client.IsAuthenticated)
	for _, job := range cron.PollJobs(q, cfg) {
		if err := scheduler.Add(job); err != nil {
			log.Fatal().Err(err).Msg("❌ Failed to schedule poll")
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	// ============================================
	// Local gateway
	// ============================================
	router := api.NewRouter(q, api.Options{
		Token:       cfg.GatewayToken,
		RateLimit:   cfg.GatewayRateLimit,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger.Component(log, "gateway"),
	})

	srv := &http.Server{
		Addr:         cfg.GatewayAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.GatewayAddr).Msg("🚀 Gateway starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start gateway")
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Gateway forced to shutdown")
	}
	select {
	case <-listenerDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Realtime listener did not stop in time")
	}

	log.Info().Msg("Exited")
}

// staleTimes are the per-family overrides of the default stale time.
func staleTimes(cfg *config.Config) map[string]time.Duration {
	return map[string]time.Duration{
		query.NotificationsKey.String(): cfg.NotificationStaleTime,
		query.ChatUnreadKey.String():    15 * time.Second,
		query.ChatMessagesKey.String():  10 * time.Second,
		query.ChatChannelsKey.String():  30 * time.Second,
		query.AuthUserKey.String():      10 * time.Minute,
	}
}

// signIn restores stored tokens, falling back to the configured login.
func signIn(ctx context.Context, client *apiclient.Client, q *query.Client, cfg *config.Config, log zerolog.Logger) error {
	tokens, err := client.LoadTokens(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️  Failed to load stored tokens")
	}
	if tokens.AccessToken != "" {
		log.Info().Msg("✅ Restored stored session")
		return nil
	}
	if cfg.LoginEmail == "" || cfg.LoginPassword == "" {
		return errors.New("no stored session and no LOGIN_EMAIL/LOGIN_PASSWORD")
	}

	resp, err := q.Auth.Login(ctx, models.LoginRequest{Email: cfg.LoginEmail, Password: cfg.LoginPassword})
	if err != nil {
		return err
	}
	log.Info().Str("user", resp.User.Email).Msg("✅ Signed in")
	return nil
}

// joinWorkspaceRooms subscribes to every workspace the user belongs to.
func joinWorkspaceRooms(ctx context.Context, q *query.Client, l *socket.Listener, log zerolog.Logger) {
	if !q.API().IsAuthenticated() {
		return
	}
	res, err := q.Workspaces.List(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️  Could not list workspaces for realtime rooms")
		return
	}
	for _, ws := range res.Data {
		l.JoinRoom(socket.WorkspaceRoom(ws.ID))
	}
}
