package collector

import "context"

// FeedItem RSS 中的一条新闻
type FeedItem struct {
	Title   string
	Link    string
	Summary string
	// 所属 RSS 源，仅用于日志与投递记录
	Feed string
}

// Reader 抽象 RSS 读取
type Reader interface {
	Read(ctx context.Context, feedURL string) []FeedItem
}

// Extractor 抽象正文提取，第二个返回值为 false 表示没有拿到正文
type Extractor interface {
	Extract(ctx context.Context, pageURL string) (string, bool)
}

// Locator 抽象配图查找
type Locator interface {
	Locate(ctx context.Context, pageURL string) (string, bool)
}
