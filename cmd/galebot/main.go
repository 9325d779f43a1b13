package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"galebot/internal/broker"
	"galebot/internal/config"
	"galebot/internal/executor"
	"galebot/internal/logger"
	"galebot/internal/scheduler"
	"galebot/internal/store"
	httpapi "galebot/internal/transport/http"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("GALEBOT_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config failed: %v", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("initializing log file failed: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("config loaded (env=%s, brokers=%d)", cfg.App.Env, len(cfg.Broker))

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		log.Fatalf("opening store failed: %v", err)
	}
	defer st.Close()

	endpoints := make(map[string]broker.Endpoint, len(cfg.Broker))
	for name, bc := range cfg.Broker {
		endpoints[name] = broker.Endpoint{
			Host:    bc.Host,
			Timeout: time.Duration(bc.TimeoutSeconds) * time.Second,
		}
	}

	svc := executor.NewService(st, executor.DefaultFactory(endpoints), config.DefaultBroker, executor.TraderAccount{
		Broker:   cfg.Trader.Broker,
		Email:    cfg.Trader.Email,
		Password: cfg.Trader.Password,
		Stake:    decimal.NewFromFloat(cfg.Trader.Stake),
	})

	audit, err := store.NewAuditLog(filepath.Join(filepath.Dir(cfg.Store.Path), "audit.db"))
	if err != nil {
		log.Fatalf("opening audit log failed: %v", err)
	}
	defer audit.Close()
	svc.SetAuditLog(audit)

	server, err := httpapi.NewServer(cfg.App.HTTPAddr, svc)
	if err != nil {
		log.Fatalf("initializing http server failed: %v", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("http server listening on %s", server.Addr())
		return server.Start(ctx)
	})

	if cfg.Scheduler.Enabled {
		book := scheduler.NewBook(cfg.Scheduler.SignalsPath)
		if err := book.Load(); err != nil {
			log.Fatalf("loading signals failed: %v", err)
		}
		g.Go(func() error {
			err := book.Watch(ctx)
			if err != nil && ctx.Err() != nil {
				return nil
			}
			return err
		})
		g.Go(func() error {
			scheduler.NewDispatcher(ctx, book, st, svc.Operate).Run()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("run failed: %v", err)
	}
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
