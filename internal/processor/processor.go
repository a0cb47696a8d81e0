package processor

import (
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/LJTian/NewsRelay/internal/collector"
	"github.com/microcosm-cc/bluemonday"
)

// MaxMessageRunes Telegram 单条消息的长度上限
const MaxMessageRunes = 4096

const (
	titlePrefix = "📰 <b>"
	titleSuffix = "</b>\n\n"
)

// OutboundMessage 发送前组装好的一条消息，发送后即丢弃
type OutboundMessage struct {
	// HTML 格式，已转义，长度不超过 MaxMessageRunes
	Text string
	// 为空表示没有配图
	Image        string
	CommentURL   string
	CommentLabel string
}

func (m OutboundMessage) HasImage() bool {
	return m.Image != ""
}

// Composer 把 RSS 条目、正文与配图组装成消息
type Composer struct {
	bodyLimit int
	label     string
	strip     *bluemonday.Policy
}

// NewComposer bodyLimit 为正文在转义前的最大字符数，0 表示不限制
func NewComposer(bodyLimit int, commentLabel string) *Composer {
	if commentLabel == "" {
		commentLabel = "Оставить комментарий"
	}
	return &Composer{
		bodyLimit: bodyLimit,
		label:     commentLabel,
		strip:     bluemonday.StrictPolicy(),
	}
}

// Compose article 为空时使用 RSS 摘要
func (c *Composer) Compose(item collector.FeedItem, article, image string) OutboundMessage {
	body := strings.TrimSpace(article)
	if body == "" {
		body = c.plainSummary(item.Summary)
	}
	if c.bodyLimit > 0 {
		body = truncateRunes(body, c.bodyLimit)
	}

	return OutboundMessage{
		Text:         FormatText(item.Title, body),
		Image:        image,
		CommentURL:   CommentURL(item.Link),
		CommentLabel: c.label,
	}
}

// plainSummary RSS 摘要里常带 HTML 标签，去掉标签后还原实体，最终统一转义
func (c *Composer) plainSummary(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(c.strip.Sanitize(s)))
}

// FormatText 生成 "📰 <b>标题</b>\n\n正文"，超长时从正文尾部截断，不会截断实体或标签
func FormatText(title, body string) string {
	fixed := utf8.RuneCountInString(titlePrefix) + utf8.RuneCountInString(titleSuffix)
	escTitle := escapeWithin(title, MaxMessageRunes-fixed)
	header := titlePrefix + escTitle + titleSuffix
	escBody := escapeWithin(body, MaxMessageRunes-utf8.RuneCountInString(header))
	return header + escBody
}

// escapeWithin 逐字符转义，转义后的字符数不超过 budget
func escapeWithin(s string, budget int) string {
	var b strings.Builder
	used := 0
	for _, r := range s {
		e := html.EscapeString(string(r))
		n := utf8.RuneCountInString(e)
		if used+n > budget {
			break
		}
		b.WriteString(e)
		used += n
	}
	return b.String()
}

// CommentURL 文章链接加上 #comments 锚点
func CommentURL(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		if i := strings.IndexByte(link, '#'); i >= 0 {
			link = link[:i]
		}
		return link + "#comments"
	}
	u.Fragment = "comments"
	u.RawFragment = ""
	return u.String()
}

// truncateRunes 按 rune 截断并追加省略号
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return strings.TrimSpace(string(rs[:limit])) + "…"
}
