package collector

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
)

// ExtractMode 正文提取策略。历史上出现过几种版本，没有明确的“正确”版本，
// 所以全部保留并通过 EXTRACT_MODE 显式选择
type ExtractMode string

const (
	// ModeLines: article → 站点正文容器 → 全页按行过滤（默认）
	ModeLines ExtractMode = "lines"
	// ModeClasses: article → 站点正文容器 → 全页纯文本
	ModeClasses ExtractMode = "classes"
	// ModeArticle: article → 全页纯文本
	ModeArticle ExtractMode = "article"
	// ModeReadability: go-readability，失败时退回 ModeLines
	ModeReadability ExtractMode = "readability"
)

func ParseExtractMode(s string) (ExtractMode, error) {
	switch m := ExtractMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeLines, ModeClasses, ModeArticle, ModeReadability:
		return m, nil
	case "":
		return ModeLines, nil
	default:
		return "", fmt.Errorf("unknown extract mode %q", s)
	}
}

// contentSelectors 已知新闻站点的正文容器，按顺序匹配第一个
var contentSelectors = []string{
	"div.article__text",      // РБК
	"div.article__body",      // РИА Новости
	"div.text-content",       // ТАСС
	"div.article-boxes-list", // Ведомости
	"div.doc__body",          // Коммерсантъ
	"div.text-block",
	"div.article__content",
	"div.news-body",
}

// paragraphStopPhrases 段落中出现这些片段（小写）即丢弃
var paragraphStopPhrases = []string{
	"зарегистрируйтесь",
	"регистрац",
	"войдите в аккаунт",
	"перейдите по ссылке",
	"по ссылке",
	"комментар",
}

// linePrefixStops 全页兜底时以这些开头的行丢弃
var linePrefixStops = []string{
	"©",
	"подписывайтесь",
	"читайте также",
	"реклама",
	"материалы по теме",
	"поделиться",
	"фото:",
	"видео:",
}

var lineMarkerStops = []string{
	"подпис",
	"комментар",
}

const (
	minLineRunes = 30
	maxLines     = 10
)

// ArticleExtractor 抓取文章页面并尽力提取正文
type ArticleExtractor struct {
	pages *PageFetcher
	mode  ExtractMode
}

func NewArticleExtractor(pages *PageFetcher, mode ExtractMode) *ArticleExtractor {
	if mode == "" {
		mode = ModeLines
	}
	return &ArticleExtractor{pages: pages, mode: mode}
}

// Extract 任何失败都只记录日志，返回 ("", false)
func (e *ArticleExtractor) Extract(ctx context.Context, pageURL string) (string, bool) {
	res := e.pages.Fetch(ctx, pageURL)
	if !res.OK() {
		logFetchFailure("article", pageURL, res)
		return "", false
	}
	return ExtractText(res.Doc, e.mode)
}

// ExtractText 对已解析的页面执行提取，不做网络请求；会移除 doc 中的 script/style 节点
func ExtractText(doc *goquery.Document, mode ExtractMode) (string, bool) {
	if doc == nil {
		return "", false
	}
	stripNoise(doc.Selection)

	var text string
	switch mode {
	case ModeReadability:
		text = readableText(doc)
		if text == "" {
			text = extractLines(doc)
		}
	case ModeArticle:
		if art := doc.Find("article").First(); art.Length() > 0 {
			text = paragraphsText(art)
		} else {
			text = doc.Text()
		}
	case ModeClasses:
		if c := findContainer(doc); c != nil {
			text = paragraphsText(c)
		} else {
			text = doc.Text()
		}
	default:
		text = extractLines(doc)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	return text, true
}

func extractLines(doc *goquery.Document) string {
	if c := findContainer(doc); c != nil {
		return paragraphsText(c)
	}
	return filterLines(doc.Text())
}

func findContainer(doc *goquery.Document) *goquery.Selection {
	if art := doc.Find("article").First(); art.Length() > 0 {
		return art
	}
	for _, sel := range contentSelectors {
		if c := doc.Find(sel).First(); c.Length() > 0 {
			return c
		}
	}
	return nil
}

// paragraphsText 容器内 <p> 文本逐行拼接，跳过注册提示、评论引导等段落
func paragraphsText(container *goquery.Selection) string {
	var b strings.Builder
	container.Find("p").Each(func(_ int, p *goquery.Selection) {
		t := strings.TrimSpace(p.Text())
		if t == "" || containsAny(strings.ToLower(t), paragraphStopPhrases) {
			return
		}
		b.WriteString(t)
		b.WriteString("\n")
	})
	return b.String()
}

// filterLines 全页兜底：只保留足够长、不像导航/订阅/评论提示的行，最多 maxLines 行
func filterLines(pageText string) string {
	kept := make([]string, 0, maxLines)
	for _, line := range strings.Split(pageText, "\n") {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) <= minLineRunes {
			continue
		}
		lower := strings.ToLower(line)
		if hasAnyPrefix(lower, linePrefixStops) || containsAny(lower, lineMarkerStops) {
			continue
		}
		kept = append(kept, line)
		if len(kept) == maxLines {
			break
		}
	}
	return strings.Join(kept, "\n")
}

var readableText = readabilityText

func readabilityText(doc *goquery.Document) string {
	html, err := doc.Html()
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(html), doc.Url)
	if err != nil {
		return ""
	}
	var buf bytes.Buffer
	if err := article.RenderText(&buf); err != nil {
		return ""
	}
	return strings.TrimSpace(buf.String())
}

// stripNoise 脚本与样式不参与全页文本
func stripNoise(s *goquery.Selection) {
	s.Find("script, style, noscript, template").Remove()
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
