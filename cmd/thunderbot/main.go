// Command thunderbot runs the auto-responder: the Discord listener, the
// token-gated rule admin API, and the SQLite mirror behind both.
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
	"github.com/rs/zerolog/log"

	"github.com/sanchopanca/thunderbot/internal/ai"
	"github.com/sanchopanca/thunderbot/internal/auth"
	"github.com/sanchopanca/thunderbot/internal/config"
	"github.com/sanchopanca/thunderbot/internal/discord"
	httpapi "github.com/sanchopanca/thunderbot/internal/http"
	"github.com/sanchopanca/thunderbot/internal/observability"
	"github.com/sanchopanca/thunderbot/internal/repo"
	"github.com/sanchopanca/thunderbot/internal/rules"
	"github.com/sanchopanca/thunderbot/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// sweepInterval is how often expired edit tokens are evicted.
const sweepInterval = time.Minute

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetupLogger(cfg.LogPretty)
	sysutil.SetLogLevel(cfg.LogLevel)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing
	shutdownOTel, err := observability.SetupOTel(rootCtx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("setup opentelemetry")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(ctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// Storage: SQLite mirror feeding the in-memory rule table
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	store := rules.NewStore(&repo.Mirror{DB: db})
	if err := store.Load(rootCtx); err != nil {
		log.Fatal().Err(err).Msg("load rules")
	}
	matcher := rules.NewMatcher(store, nil)

	// Auth: ephemeral edit tokens
	tokens := auth.NewTokenStore(cfg.TokenTTL)
	tokens.StartSweeper(rootCtx, sweepInterval)
	gate := auth.NewGate(tokens)

	// Summarization is optional; without a key the bot just never answers
	// "what are they talking about".
	var summarizer ai.Summarizer
	if cfg.OpenAI.APIKey != "" {
		summarizer = ai.NewOpenAISummarizer(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	} else {
		log.Info().Msg("OPENAI_API_KEY not set; summarization disabled")
	}

	// Discord listener is optional too, which keeps the admin API usable in
	// local development without a bot account.
	if cfg.Discord.Token != "" {
		listener, err := discord.NewListener(
			cfg.Discord.Token, cfg.AdminBaseURL, cfg.Discord.EditCommand,
			matcher, tokens, summarizer,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("create discord listener")
		}
		if err := listener.Open(); err != nil {
			log.Fatal().Err(err).Msg("connect discord gateway")
		}
		defer func() {
			if err := listener.Close(); err != nil {
				log.Warn().Err(err).Msg("close discord gateway")
			}
		}()
	} else {
		log.Info().Msg("DISCORD_API_TOKEN not set; listener disabled")
	}

	// HTTP admin surface
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	httpapi.RegisterRoutes(router, store, gate, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
