package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

// Delivery 一次投递记录，只写不读：发布流程从不查询它，不做去重
type Delivery struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	RunID     string `gorm:"size:36;index" json:"runId"`
	FeedURL   string `gorm:"size:1024" json:"feedUrl"`
	Link      string `gorm:"size:1024;index" json:"link"`
	Title     string `gorm:"size:512" json:"title"`
	Status    string `gorm:"size:16;index" json:"status"` // sent / failed
	PhotoSent bool   `json:"photoSent"`
	Error     string `gorm:"size:1024" json:"error,omitempty"`
	// 图片地址、是否拿到正文等附加信息
	ExtraData datatypes.JSONMap `gorm:"type:jsonb" json:"extraData"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client

	pageTTL time.Duration
}

// NewStore dsn 与 redisAddr 都可以为空，为空时对应功能关闭
func NewStore(dsn, redisAddr string, pageTTL time.Duration) (*Store, error) {
	s := &Store{pageTTL: pageTTL}

	if dsn != "" {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.AutoMigrate(&Delivery{}); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		s.DB = db
	}

	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("warn: redis ping failed: %v", err)
		}
		s.Redis = rdb
	}

	return s, nil
}

// RecordDelivery 未配置数据库时直接忽略
func (s *Store) RecordDelivery(ctx context.Context, d *Delivery) error {
	if s == nil || s.DB == nil {
		return nil
	}
	d.Title = truncateRunesDB(toValidUTF8(d.Title), 512)
	d.Error = truncateRunesDB(toValidUTF8(d.Error), 1024)
	return s.DB.WithContext(ctx).Create(d).Error
}

// ListDeliveries 最近的投递记录，按时间倒序
func (s *Store) ListDeliveries(ctx context.Context, limit int) ([]Delivery, error) {
	if s == nil || s.DB == nil {
		return []Delivery{}, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var list []Delivery
	err := s.DB.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&list).Error
	return list, err
}

// ---------- 页面缓存 ----------

func pageKey(pageURL string) string {
	h := sha1.Sum([]byte(pageURL))
	return "page:" + hex.EncodeToString(h[:])
}

// GetPage 缓存以 hash 保存：url 为跳转后的最终地址，body 为页面内容
func (s *Store) GetPage(ctx context.Context, pageURL string) (string, []byte, bool) {
	if s == nil || s.Redis == nil {
		return "", nil, false
	}
	fields, err := s.Redis.HGetAll(ctx, pageKey(pageURL)).Result()
	if err != nil || len(fields) == 0 {
		return "", nil, false
	}
	body, ok := fields["body"]
	if !ok {
		return "", nil, false
	}
	final := fields["url"]
	if final == "" {
		final = pageURL
	}
	return final, []byte(body), true
}

func (s *Store) SetPage(ctx context.Context, pageURL, finalURL string, body []byte) {
	if s == nil || s.Redis == nil || s.pageTTL <= 0 {
		return
	}
	key := pageKey(pageURL)
	_, err := s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "url", finalURL, "body", body)
		pipe.Expire(ctx, key, s.pageTTL)
		return nil
	})
	if err != nil {
		log.Printf("warn: cache page %s: %v", pageURL, err)
	}
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			return err
		}
	}
	if s.DB != nil {
		sqlDB, err := s.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// toValidUTF8 新闻站点偶尔混入非法字节，写库前统一替换
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// truncateRunesDB 按 rune 截断，确保不超过字段长度
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
