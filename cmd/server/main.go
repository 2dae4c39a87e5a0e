// The server command runs the lead intake service: OpenPhone webhook
// processing, website lead submissions, storm-history lookups, and the
// office notification worker.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/ridgelineexteriors/lead-intake/internal/adapter/crm"
	httpadapter "github.com/ridgelineexteriors/lead-intake/internal/adapter/http"
	"github.com/ridgelineexteriors/lead-intake/internal/adapter/mapbox"
	"github.com/ridgelineexteriors/lead-intake/internal/config"
	"github.com/ridgelineexteriors/lead-intake/internal/domain"
	"github.com/ridgelineexteriors/lead-intake/internal/leads"
	"github.com/ridgelineexteriors/lead-intake/internal/notify"
	"github.com/ridgelineexteriors/lead-intake/internal/observability"
	"github.com/ridgelineexteriors/lead-intake/internal/stormrisk"
	"github.com/ridgelineexteriors/lead-intake/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	crmClient := crm.NewClient(cfg.CRMBaseURL, cfg.CRMToken, cfg.CRMTimeout, clock, logger, metrics)

	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		geocoder = mapbox.NewCachedGeocoder(
			mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics),
			cfg.MapboxCacheSize,
			metrics,
		)
		logger.Info("geocoding enabled", slog.Int("cache_size", cfg.MapboxCacheSize))
	} else {
		logger.Info("geocoding disabled, address lookups unavailable")
	}

	var provider stormrisk.HistoryProvider
	switch cfg.StormProvider {
	case "noaa":
		provider = stormrisk.NewNOAAProvider(cfg.StormAPIBaseURL, cfg.StormAPIToken, cfg.StormTimeout, logger)
	default:
		provider = stormrisk.NewSimulatedProvider(clock)
	}
	logger.Info("storm history provider selected", slog.String("provider", provider.Name()))

	stormSvc := stormrisk.NewService(provider, geocoder, cfg.StormLookback, clock, logger, metrics)

	publisher := notify.NewPublisher(cfg, clock, logger, metrics)
	defer publisher.Close()

	var alerter webhook.Alerter
	var leadAlerter leads.Alerter
	if cfg.NotifyEnabled {
		alerter = publisher
		leadAlerter = publisher
	}

	leadSvc := leads.NewService(crmClient, leadAlerter, logger, metrics)

	verifier := webhook.NewVerifier(cfg.OpenPhoneSigningSecret)
	if !verifier.Enabled() {
		logger.Warn("webhook signature verification disabled")
	}
	webhookHandler := webhook.NewHandler(verifier, crmClient, crmClient, alerter, logger, metrics)

	server := httpadapter.NewServer(cfg.HTTPAddr, webhookHandler, leadSvc, stormSvc, logger)

	errCh := make(chan error, 2)
	go func() {
		errCh <- server.Start()
	}()

	if cfg.NotifyEnabled {
		senders := map[notify.Channel]notify.Sender{
			notify.ChannelSMS:   notify.NewSMSSender(cfg.SMSAPIKey, cfg.SMSFromNumber),
			notify.ChannelEmail: notify.NewEmailSender(cfg.EmailAPIKey, cfg.EmailFrom),
		}
		worker := notify.NewWorker(cfg, senders, clock, logger, metrics)
		defer worker.Close()
		go func() {
			errCh <- worker.Run(ctx)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("component failed", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
