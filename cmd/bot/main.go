package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"varRiskBot/internal/config"
	"varRiskBot/internal/finance"
	"varRiskBot/internal/metrics"
	"varRiskBot/internal/openai"
	"varRiskBot/internal/server"
	"varRiskBot/internal/service"
	"varRiskBot/internal/storage"
	"varRiskBot/internal/telegram"
	"varRiskBot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger settings come from the config, so fall back to defaults here
		l := logger.New(logger.Config{})
		l.Fatal().Err(err).Msg("Invalid configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	history, err := openHistory(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history store")
	}
	defer history.Close()

	rec := metrics.New()
	svc := service.New(openPrices(cfg, log), history, rec, service.Defaults{
		Window:         cfg.Window,
		Confidence:     cfg.Confidence,
		PortfolioValue: cfg.PortfolioValue,
		Simulations:    cfg.Simulations,
	}, log)

	var webhook http.HandlerFunc
	if cfg.TelegramEnabled() {
		deps := telegram.Deps{
			Service: svc,
			Charts:  finance.NewCharts(finance.NewChartCache(5 * time.Minute)),
			History: finance.NewHistoryView(finance.LoadLocation(cfg.ChartTZ)),
		}
		if cfg.OpenAIKey != "" {
			deps.Narrator = openai.NewNarrator(cfg.OpenAIKey)
		}
		tg, err := telegram.NewBot(cfg.TelegramToken, cfg.WebhookPublicURL, deps, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to start telegram bot")
		}
		webhook = tg.WebhookHandler
	} else {
		log.Info().Msg("TELEGRAM_BOT_TOKEN not set, serving HTTP API only")
	}

	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		Service: svc,
		Metrics: rec,
		Webhook: webhook,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("prices", cfg.PriceSource).Str("history", cfg.HistoryBackend).Msg("Server started")

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server stopped")
}

func openHistory(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.HistoryStore, error) {
	if cfg.HistoryBackend == config.BackendCSV {
		log.Info().Str("path", cfg.HistoryFile).Int("capacity", cfg.HistorySize).Msg("history: csv store")
		return storage.NewCSVStore(cfg.HistoryFile, cfg.HistorySize)
	}

	// Ensure parent directory for the DB exists
	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755)
	db, err := storage.OpenSQLite("file:" + cfg.DBPath + "?_fk=1")
	if err != nil {
		return nil, err
	}
	store, err := storage.NewSQLiteStore(ctx, db, cfg.HistorySize)
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Str("path", cfg.DBPath).Int("capacity", cfg.HistorySize).Msg("history: sqlite store")
	return store, nil
}

func openPrices(cfg *config.Config, log zerolog.Logger) finance.PriceSource {
	if cfg.PriceSource == config.SourceCSV {
		return finance.NewCSVSource(cfg.PriceCSV, true, log)
	}
	return finance.NewYahooSource(log)
}
