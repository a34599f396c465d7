package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/evanmorse/careertrack/internal/assistant"
	"github.com/evanmorse/careertrack/internal/auth"
	"github.com/evanmorse/careertrack/internal/chat"
	"github.com/evanmorse/careertrack/internal/config"
	"github.com/evanmorse/careertrack/internal/mailer"
	"github.com/evanmorse/careertrack/internal/server"
	"github.com/evanmorse/careertrack/internal/user"
	"github.com/evanmorse/careertrack/internal/ws"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	if os.Getenv("DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to open database")
	}

	users := user.NewRepository(db)
	if err := user.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	if err := seedAdmin(ctx, users); err != nil {
		log.Fatal().Err(err).Msg("failed to seed admin account")
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL.Std())

	gateway := chat.NewGateway(cfg.TypingExpiry.Std())

	var connOpts []ws.ConnManagerOption
	if cfg.MaxConns > 0 {
		connOpts = append(connOpts, ws.WithMaxConns(cfg.MaxConns))
	}
	if cfg.IdleTimeout.Std() > 0 {
		connOpts = append(connOpts, ws.WithIdleTimeout(cfg.IdleTimeout.Std()))
	}
	wsHandler := ws.NewHandler(gateway, ws.NewConnManager(connOpts...))

	var opts []server.Option

	var cache assistant.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect to redis")
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")
		cache = assistant.NewRedisCache(rdb, assistant.DefaultCacheTTL)
	} else {
		cache = assistant.NewMemoryCache(assistant.DefaultCacheTTL)
	}

	advisorOpts := []assistant.Option{assistant.WithCache(cache)}
	if cfg.OpenAIModel != "" {
		advisorOpts = append(advisorOpts, assistant.WithModel(cfg.OpenAIModel))
	}
	advisor := assistant.New(cfg.OpenAIKey, advisorOpts...)
	if cfg.OpenAIKey == "" {
		log.Warn().Msg("no OpenAI API key configured, assistant running in demo mode")
	}
	opts = append(opts, server.WithAssistant(advisor))

	mail := mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	if !mail.Configured() {
		log.Warn().Msg("SMTP not configured, mail notifications will be logged only")
	}
	opts = append(opts, server.WithMailer(mail))

	srv := server.New(cfg.ListenAddr, users, tokens, gateway, wsHandler, opts...)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("server stopped")
}

// seedAdmin creates the administrator account from ADMIN_EMAIL and
// ADMIN_PASSWORD on first start. An existing account is left untouched.
func seedAdmin(ctx context.Context, users *user.Repository) error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}

	if _, err := users.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &user.User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
		Status:       user.StatusActive,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	log.Info().Str("email", email).Msg("seeded admin account")
	return nil
}
