// Command verdandi-sidecar runs a local HTTP front for the SDK so
// processes written in other languages can evaluate feature flags
// without embedding a client.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/rafaeljc/verdandi"
	"github.com/rafaeljc/verdandi/internal/evalapi"
	"github.com/rafaeljc/verdandi/internal/logger"
)

type serverConfig struct {
	SiteCode string        `envconfig:"SITE_CODE" required:"true"`
	Addr     string        `envconfig:"ADDR" default:":8080"`
	InitWait time.Duration `envconfig:"INIT_WAIT" default:"30s"`
}

func main() {
	var srvCfg serverConfig
	if err := envconfig.Process("VERDANDI", &srvCfg); err != nil {
		logger.New("info", "json").Error("invalid server configuration", "error", err)
		os.Exit(1)
	}

	cfg, err := verdandi.LoadConfig()
	if err != nil {
		logger.New("info", "json").Error("invalid client configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	client, err := verdandi.NewClient(srvCfg.SiteCode, cfg)
	if err != nil {
		log.Error("failed to create client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	initCtx, cancel := context.WithTimeout(context.Background(), srvCfg.InitWait)
	if err := client.WaitInit(initCtx); err != nil {
		// keep serving, /ready stays red until the configuration arrives
		log.Warn("initial configuration fetch has not completed", "error", err)
	}
	cancel()

	api := evalapi.NewAPI(client, client.MetricsRegistry(), log)
	server := &http.Server{
		Addr:              srvCfg.Addr,
		Handler:           api.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("sidecar listening", "addr", srvCfg.Addr, "site_code", srvCfg.SiteCode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
