package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"progenai/internal/generation"
	"progenai/internal/http/handlers"
	httpapi "progenai/internal/http/httpapi"
	"progenai/internal/infra"
	"progenai/internal/infra/credentials"
	"progenai/internal/notify"
	"progenai/internal/plugins"
	"progenai/internal/providers/image"
	"progenai/internal/providers/llm"
	"progenai/internal/providers/speech"
	"progenai/internal/store"
	"progenai/internal/voice"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	kv, closeStore, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to open store")
	}
	defer closeStore()

	creds := credentials.NewStore(kv)
	if err := creds.Seed(ctx, map[string]string{
		credentials.ProviderStability:  cfg.StabilityAPIKey,
		credentials.ProviderElevenLabs: cfg.ElevenLabsAPIKey,
	}); err != nil {
		logger.Warn().Err(err).Msg("failed to seed credentials from environment")
	}

	httpClient := &http.Client{Timeout: cfg.HTTPWriteTimeout}
	model, err := llm.New(cfg, httpClient, &logger)
	if err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.LLMProvider).Msg("language model is not configured")
	}

	prefs := store.NewPreferences(kv)
	notes := notify.NewQueue(notify.DefaultCapacity, &logger)
	pluginSvc := plugins.NewService(plugins.Options{Preferences: prefs, Logger: &logger})
	engine := generation.NewEngine(generation.Options{
		LLM: model,
		Images: image.NewClient(image.Options{
			APIKey:     creds.StabilityAPIKey,
			BaseURL:    cfg.StabilityBaseURL,
			Engine:     cfg.StabilityEngine,
			HTTPClient: httpClient,
			Logger:     &logger,
		}),
		Plugins:  pluginSvc,
		Notifier: notes,
		Logger:   &logger,
	})
	local := speech.NewTranslate(speech.TranslateOptions{BaseURL: cfg.TranslateTTSBaseURL, Logger: &logger})
	speaker := voice.NewOutputSession(voice.OutputOptions{
		Cloud: speech.NewElevenLabs(speech.ElevenLabsOptions{
			APIKey:  creds.ElevenLabsAPIKey,
			BaseURL: cfg.ElevenLabsBaseURL,
			Logger:  &logger,
		}),
		Local:    local,
		Settings: prefs,
		Notifier: notes,
		Logger:   &logger,
	})

	app := &handlers.App{
		Config:        cfg,
		Logger:        logger,
		Engine:        engine,
		Plugins:       pluginSvc,
		Preferences:   prefs,
		Saved:         store.NewSavedPrompts(kv),
		Credentials:   creds,
		Speech:        speaker,
		TTS:           local,
		Notifications: notes,
	}
	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app))

	go func() {
		logger.Info().Str("addr", server.Addr()).Str("llm", cfg.LLMProvider).Str("store", cfg.StoreBackend).Msg("companion listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
