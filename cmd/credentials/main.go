package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"progenai/internal/infra"
	"progenai/internal/infra/credentials"
	"progenai/internal/store"
)

func main() {
	var (
		keyFlag      string
		providerFlag string
	)
	flag.StringVar(&keyFlag, "key", "", "API key for the selected provider (falls back to environment)")
	flag.StringVar(&providerFlag, "provider", credentials.ProviderStability, "Service to configure (stability or elevenlabs)")
	flag.Parse()

	provider := strings.TrimSpace(strings.ToLower(providerFlag))
	switch provider {
	case credentials.ProviderStability, credentials.ProviderElevenLabs:
	case "":
		provider = credentials.ProviderStability
	default:
		fmt.Fprintf(os.Stderr, "unsupported provider %q\n", providerFlag)
		os.Exit(1)
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		switch provider {
		case credentials.ProviderElevenLabs:
			key = cfg.ElevenLabsAPIKey
		default:
			key = cfg.StabilityAPIKey
		}
	}
	if key == "" {
		fmt.Fprintf(os.Stderr, "%s API key is required via -key or environment\n", strings.ToUpper(provider))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger := infra.NewLogger("cli").With().Str("cmd", "credentials").Str("provider", provider).Logger()
	kv, closeStore, err := store.Open(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open %s store: %v\n", cfg.StoreBackend, err)
		os.Exit(1)
	}
	defer closeStore()

	if err := credentials.NewStore(kv).SetToken(ctx, provider, key); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist %s api key: %v\n", provider, err)
		os.Exit(1)
	}

	fmt.Printf("%s API key stored successfully\n", strings.ToUpper(provider))
}
