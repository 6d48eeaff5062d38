package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"todo-list/internal/app"
	"todo-list/internal/bot"
	"todo-list/internal/config"
	"todo-list/internal/logging"
)

func main() {
	configPath := flag.String("config", os.Getenv("TODO_CONFIG"), "path to a TOML config file")
	printConfig := flag.Bool("print-config", false, "print the effective config and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if *printConfig {
		if err := cfg.WriteTOML(os.Stdout); err != nil {
			log.Fatal("print config", "err", err)
		}
		return
	}
	if err != nil {
		log.Fatal("config", "err", err)
	}

	opts := logging.DefaultOptions()
	opts.Level = cfg.LogLevel
	opts.Format = cfg.LogFormat
	logger := logging.New(os.Stderr, opts)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("app", "err", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error("close", "err", err)
		}
	}()

	telegramBot, err := bot.New(cfg.TelegramToken, application, logger.WithPrefix("bot"))
	if err != nil {
		logger.Fatal("bot", "err", err)
	}

	if err := application.Start(ctx); err != nil {
		logger.Fatal("start", "err", err)
	}

	go reloadOnHangup(ctx, *configPath, application, logger)

	logger.Info("todo-list bot started", "db", cfg.DatabaseURL, "origin", application.Store.Origin())
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bot stopped with error", "err", err)
	}
	logger.Info("shutdown complete")
}

// reloadOnHangup re-reads the config on SIGHUP and applies the runtime settings.
func reloadOnHangup(ctx context.Context, path string, application *app.App, logger *log.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := config.Load(path)
			if err != nil {
				logger.Error("reload config", "err", err)
				continue
			}
			if err := application.Reload(cfg); err != nil {
				logger.Error("apply config", "err", err)
			}
		}
	}
}
