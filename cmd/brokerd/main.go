// brokerd is the stateless OAuth broker. It holds the confidential
// TickTick client credentials so CLI installs never need them, and
// proxies code-exchange and refresh grants to the provider.
package main

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tickcli/tickcli/pkg/broker"
)

const defaultListenAddr = ":8787"

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Stderr.WriteString("brokerd: initializing logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, listenAddr, err := loadConfig()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	app := broker.New(cfg, logger, nil)

	logger.Info("broker listening", zap.String("addr", listenAddr))
	if err := app.Listen(listenAddr); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func loadConfig() (broker.Config, string, error) {
	cfg := broker.Config{
		ClientID:     strings.TrimSpace(os.Getenv("BROKER_TICKTICK_CLIENT_ID")),
		ClientSecret: strings.TrimSpace(os.Getenv("BROKER_TICKTICK_CLIENT_SECRET")),
		APIKey:       strings.TrimSpace(os.Getenv("BROKER_API_KEY")),
		TokenURL:     strings.TrimSpace(os.Getenv("BROKER_TOKEN_URL")),
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return cfg, "", errMissingCredentials
	}

	if v := strings.TrimSpace(os.Getenv("BROKER_UPSTREAM_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.UpstreamTimeout = d
		}
	}

	addr := strings.TrimSpace(os.Getenv("BROKER_LISTEN_ADDR"))
	if addr == "" {
		addr = defaultListenAddr
	}

	return cfg, addr, nil
}

var errMissingCredentials = &configError{"BROKER_TICKTICK_CLIENT_ID and BROKER_TICKTICK_CLIENT_SECRET must be set"}

type configError struct {
	reason string
}

func (e *configError) Error() string {
	return e.reason
}
