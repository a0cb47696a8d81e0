package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"time"

	"github.com/LJTian/NewsRelay/internal/metrics"
	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const defaultFetchTimeout = 10 * time.Second

// FetchStatus 页面抓取结果分类
type FetchStatus int

const (
	FetchOK FetchStatus = iota
	FetchTimeout
	FetchTransportError
)

func (s FetchStatus) String() string {
	switch s {
	case FetchOK:
		return "ok"
	case FetchTimeout:
		return "timeout"
	default:
		return "transport_error"
	}
}

// FetchResult 一次页面抓取的结果，Status 非 FetchOK 时 Doc 为 nil
type FetchResult struct {
	Status FetchStatus
	Doc    *goquery.Document
	URL    *url.URL
	Err    error
}

func (r FetchResult) OK() bool {
	return r.Status == FetchOK && r.Doc != nil
}

// PageCache 页面原始 HTML 的短期缓存，正文提取与配图查找会先后请求同一个 URL
type PageCache interface {
	// GetPage 返回跳转后的最终地址与页面内容
	GetPage(ctx context.Context, pageURL string) (finalURL string, body []byte, ok bool)
	SetPage(ctx context.Context, pageURL, finalURL string, body []byte)
}

// PageFetcher 基于 colly 抓取文章页面
type PageFetcher struct {
	timeout   time.Duration
	userAgent string
	cache     PageCache
}

func NewPageFetcher(timeout time.Duration, userAgent string, cache PageCache) *PageFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if userAgent == "" {
		userAgent = "NewsRelayBot/1.0"
	}
	return &PageFetcher{timeout: timeout, userAgent: userAgent, cache: cache}
}

func (f *PageFetcher) Fetch(ctx context.Context, pageURL string) FetchResult {
	u, err := url.Parse(pageURL)
	if err != nil {
		return FetchResult{Status: FetchTransportError, Err: fmt.Errorf("parse url: %w", err)}
	}
	if err := ctx.Err(); err != nil {
		return FetchResult{Status: FetchTransportError, URL: u, Err: err}
	}

	if f.cache != nil {
		if final, body, ok := f.cache.GetPage(ctx, pageURL); ok {
			if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body)); err == nil {
				base := u
				if fu, err := url.Parse(final); err == nil && fu.IsAbs() {
					base = fu
				}
				doc.Url = base
				return FetchResult{Status: FetchOK, Doc: doc, URL: base}
			}
		}
	}

	c := colly.NewCollector(
		colly.UserAgent(f.userAgent),
		colly.DetectCharset(),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(f.timeout)

	var (
		body     []byte
		finalURL = u
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		if r.Request != nil && r.Request.URL != nil {
			finalURL = r.Request.URL
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(pageURL); err != nil && fetchErr == nil {
		fetchErr = err
	}
	if fetchErr != nil {
		status := classifyFetchError(fetchErr)
		metrics.RecordFetch("page", status.String())
		return FetchResult{Status: status, URL: u, Err: fetchErr}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		metrics.RecordFetch("page", FetchTransportError.String())
		return FetchResult{Status: FetchTransportError, URL: u, Err: fmt.Errorf("parse html: %w", err)}
	}
	metrics.RecordFetch("page", FetchOK.String())
	doc.Url = finalURL

	if f.cache != nil && len(body) > 0 {
		f.cache.SetPage(ctx, pageURL, finalURL.String(), body)
	}
	return FetchResult{Status: FetchOK, Doc: doc, URL: finalURL}
}

func classifyFetchError(err error) FetchStatus {
	if errors.Is(err, context.DeadlineExceeded) {
		return FetchTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return FetchTimeout
	}
	return FetchTransportError
}

func logFetchFailure(component, pageURL string, res FetchResult) {
	log.Printf("%s: fetch %s failed (%s): %v", component, pageURL, res.Status, res.Err)
}
