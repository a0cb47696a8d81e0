package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Feed 一个 RSS 源
type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// DefaultFeeds 默认订阅的新闻源，按顺序逐个处理
var DefaultFeeds = []Feed{
	{Name: "РБК", URL: "https://rssexport.rbc.ru/rbcnews/news/stream.rss"},
	{Name: "РИА Новости", URL: "https://ria.ru/export/rss2/index.xml"},
	{Name: "ТАСС", URL: "https://tass.ru/rss/v2.xml"},
	{Name: "Ведомости", URL: "https://www.vedomosti.ru/rss/news"},
	{Name: "Коммерсантъ", URL: "https://www.kommersant.ru/RSS/news"},
}

type Config struct {
	AppPort string

	TelegramToken       string
	TelegramChannelID   string
	TelegramAPIEndpoint string

	Feeds         []Feed
	FeedItemLimit int
	FetchTimeout  time.Duration
	UserAgent     string

	// 两次发送之间的停顿；历史版本从 1s 到 180s 不等，这里做成可配置
	SendPause    time.Duration
	SendPhotos   bool
	BodyLimit    int
	ExtractMode  string
	CommentLabel string

	PostgresDSN  string
	RedisAddr    string
	PageCacheTTL time.Duration

	CronSpec string
}

func Load() *Config {
	// .env 不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warn: load .env: %v", err)
	}

	cfg := &Config{
		AppPort:             getEnv("APP_PORT", "9000"),
		TelegramToken:       getEnv("TELEGRAM_TOKEN", ""),
		TelegramChannelID:   getEnv("TELEGRAM_CHANNEL_ID", ""),
		TelegramAPIEndpoint: getEnv("TELEGRAM_API_ENDPOINT", ""),
		FeedItemLimit:       getEnvInt("FEED_ITEM_LIMIT", 5),
		FetchTimeout:        getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
		UserAgent:           getEnv("USER_AGENT", "NewsRelayBot/1.0"),
		SendPause:           getEnvDuration("SEND_PAUSE", 180*time.Second),
		SendPhotos:          getEnvBool("SEND_PHOTOS", true),
		BodyLimit:           getEnvInt("BODY_LIMIT", 0),
		ExtractMode:         getEnv("EXTRACT_MODE", "lines"),
		CommentLabel:        getEnv("COMMENT_LABEL", "Оставить комментарий"),
		PostgresDSN:         getEnv("POSTGRES_DSN", ""),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		PageCacheTTL:        getEnvDuration("PAGE_CACHE_TTL", 10*time.Minute),
		CronSpec:            getEnv("CRON_SPEC", "*/30 * * * *"),
	}

	feeds, err := loadFeeds(getEnv("FEEDS_FILE", ""), getEnv("FEEDS", ""))
	if err != nil {
		log.Printf("warn: load feeds: %v, fallback to defaults", err)
		feeds = DefaultFeeds
	}
	cfg.Feeds = feeds

	log.Printf("config loaded: port=%s feeds=%d pause=%s mode=%s cron=%s",
		cfg.AppPort, len(cfg.Feeds), cfg.SendPause, cfg.ExtractMode, cfg.CronSpec)
	return cfg
}

// Validate 检查发布所需的必填项
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("config: TELEGRAM_TOKEN is required")
	}
	if c.TelegramChannelID == "" {
		return fmt.Errorf("config: TELEGRAM_CHANNEL_ID is required")
	}
	if len(c.Feeds) == 0 {
		return fmt.Errorf("config: no feeds configured")
	}
	return nil
}

// loadFeeds 优先级：FEEDS 环境变量 > FEEDS_FILE > 默认列表
func loadFeeds(path, list string) ([]Feed, error) {
	if list != "" {
		var feeds []Feed
		for _, u := range strings.Split(list, ",") {
			u = strings.TrimSpace(u)
			if u == "" {
				continue
			}
			feeds = append(feeds, Feed{Name: u, URL: u})
		}
		if len(feeds) > 0 {
			return feeds, nil
		}
	}
	if path == "" {
		return DefaultFeeds, nil
	}

	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc struct {
		Feeds []Feed `yaml:"feeds"`
	}
	if err := yaml.Unmarshal(bs, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	feeds := make([]Feed, 0, len(doc.Feeds))
	for _, f := range doc.Feeds {
		if strings.TrimSpace(f.URL) == "" {
			continue
		}
		if f.Name == "" {
			f.Name = f.URL
		}
		feeds = append(feeds, f)
	}
	if len(feeds) == 0 {
		return nil, fmt.Errorf("%s: no feeds", path)
	}
	return feeds, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("warn: invalid %s=%q, use %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("warn: invalid %s=%q, use %t", key, v, def)
		return def
	}
	return b
}

// getEnvDuration 支持 "3s"/"2m" 形式，纯数字按秒处理
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("warn: invalid %s=%q, use %s", key, v, def)
		return def
	}
	return d
}
