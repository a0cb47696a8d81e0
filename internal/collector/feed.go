package collector

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/LJTian/NewsRelay/internal/metrics"
	"github.com/mmcdole/gofeed"
)

// maxFeedItems 每个源每轮最多发布的条数，配置只能调小
const maxFeedItems = 5

// FeedReader 读取 RSS/Atom，只取文档顺序的前 limit 条
type FeedReader struct {
	parser  *gofeed.Parser
	limit   int
	timeout time.Duration
}

func NewFeedReader(limit int, timeout time.Duration, userAgent string) *FeedReader {
	if limit <= 0 || limit > maxFeedItems {
		limit = maxFeedItems
	}
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: timeout}
	if userAgent != "" {
		p.UserAgent = userAgent
	}
	return &FeedReader{parser: p, limit: limit, timeout: timeout}
}

// Read 拉取失败或解析失败时返回空列表，不向上抛错
func (r *FeedReader) Read(ctx context.Context, feedURL string) []FeedItem {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		log.Printf("feed: fetch %s failed: %v", feedURL, err)
		metrics.RecordFetch("feed", "error")
		return nil
	}
	metrics.RecordFetch("feed", "ok")

	return itemsFromFeed(feed, feedURL, r.limit)
}

func itemsFromFeed(feed *gofeed.Feed, feedURL string, limit int) []FeedItem {
	entries := feed.Items
	if len(entries) > limit {
		entries = entries[:limit]
	}

	items := make([]FeedItem, 0, len(entries))
	for _, e := range entries {
		if e == nil {
			continue
		}
		link := strings.TrimSpace(e.Link)
		if link == "" {
			// 没有链接的条目无法提取正文，也无法生成评论按钮
			log.Printf("feed: skip entry without link in %s: %q", feedURL, e.Title)
			continue
		}
		summary := e.Description
		if summary == "" {
			summary = e.Content
		}
		items = append(items, FeedItem{
			Title:   strings.TrimSpace(e.Title),
			Link:    link,
			Summary: strings.TrimSpace(summary),
			Feed:    feedURL,
		})
	}
	return items
}
