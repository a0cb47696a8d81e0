package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LJTian/NewsRelay/internal/api"
	"github.com/LJTian/NewsRelay/internal/config"
	"github.com/LJTian/NewsRelay/internal/publisher"
	"github.com/LJTian/NewsRelay/internal/scheduler"
	"github.com/LJTian/NewsRelay/internal/storage"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	dest, err := publisher.ParseDestination(cfg.TelegramChannelID)
	if err != nil {
		log.Fatalf("parse channel id failed: %v", err)
	}
	// 整个进程只创建一个 bot 客户端，注入到发布流程
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

	s, err := scheduler.New(cfg.CronSpec, relay)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	s.Start()

	r := gin.Default()
	api.NewServer(store, s).RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}
	go func() {
		log.Printf("starting api server at %s ...", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server exit: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	s.Stop()
}
