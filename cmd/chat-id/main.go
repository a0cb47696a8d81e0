package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/LJTian/NewsRelay/internal/config"
	"github.com/LJTian/NewsRelay/internal/publisher"
)

// 把频道名（如 @my_news_channel）换成数字 id，结果填入 TELEGRAM_CHANNEL_ID
func main() {
	channel := flag.String("channel", "", "channel username, e.g. @my_news_channel")
	flag.Parse()

	cfg := config.Load()
	handle := *channel
	if handle == "" {
		handle = flag.Arg(0)
	}
	if handle == "" {
		handle = cfg.TelegramChannelID
	}
	if handle == "" || cfg.TelegramToken == "" {
		log.Fatalf("usage: chat-id -channel @name (TELEGRAM_TOKEN must be set)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	id, err := publisher.ResolveChatID(ctx, cfg.TelegramToken, cfg.TelegramAPIEndpoint, handle)
	if err != nil {
		log.Fatalf("resolve %s failed: %v", handle, err)
	}
	fmt.Printf("Chat ID: %d\n", id)
}
