package collector

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ImageLocator 查找文章的代表图片
type ImageLocator struct {
	pages *PageFetcher
}

func NewImageLocator(pages *PageFetcher) *ImageLocator {
	return &ImageLocator{pages: pages}
}

func (l *ImageLocator) Locate(ctx context.Context, pageURL string) (string, bool) {
	res := l.pages.Fetch(ctx, pageURL)
	if !res.OK() {
		logFetchFailure("image", pageURL, res)
		return "", false
	}
	return FindImage(res.Doc, res.URL)
}

// FindImage 优先 og:image，其次第一张 <img>；绝对地址原样返回，相对地址按页面地址补全
func FindImage(doc *goquery.Document, base *url.URL) (string, bool) {
	if doc == nil {
		return "", false
	}

	if content, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
		if content = strings.TrimSpace(content); content != "" {
			return resolveRef(base, content), true
		}
	}

	if src, ok := doc.Find("img").First().Attr("src"); ok {
		if src = strings.TrimSpace(src); src != "" {
			return resolveRef(base, src), true
		}
	}

	return "", false
}

func resolveRef(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	return base.ResolveReference(u).String()
}
