package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/LJTian/NewsRelay/internal/config"
	"github.com/LJTian/NewsRelay/internal/publisher"
	"github.com/LJTian/NewsRelay/internal/scheduler"
	"github.com/LJTian/NewsRelay/internal/storage"
)

// 只执行一轮：读取全部 RSS 源、逐条发布后退出
func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	dest, err := publisher.ParseDestination(cfg.TelegramChannelID)
	if err != nil {
		log.Fatalf("parse channel id failed: %v", err)
	}
	sender, err := publisher.NewTelegramPublisher(cfg.TelegramToken, cfg.TelegramAPIEndpoint, dest)
	if err != nil {
		log.Fatalf("init telegram failed: %v", err)
	}

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr, cfg.PageCacheTTL)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}
	defer store.Close()

	relay, err := scheduler.BuildRelay(cfg, sender, store)
	if err != nil {
		log.Fatalf("init relay failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	relay.RunOnce(ctx)
}
