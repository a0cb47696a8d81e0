package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/LJTian/NewsRelay/internal/collector"
	"github.com/LJTian/NewsRelay/internal/metrics"
	"github.com/LJTian/NewsRelay/internal/processor"
	"github.com/LJTian/NewsRelay/internal/storage"
	"github.com/google/uuid"
)

// Sender 消息平台客户端，由 main 创建后注入
type Sender interface {
	SendText(ctx context.Context, msg processor.OutboundMessage) error
	SendPhoto(ctx context.Context, msg processor.OutboundMessage) error
}

// Journal 投递记录，只写
type Journal interface {
	RecordDelivery(ctx context.Context, d *storage.Delivery) error
}

// RunReport 一轮发布的统计
type RunReport struct {
	RunID    string        `json:"runId"`
	Feeds    int           `json:"feeds"`
	Items    int           `json:"items"`
	Sent     int           `json:"sent"`
	Failed   int           `json:"failed"`
	Photos   int           `json:"photos"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}

type RelayOptions struct {
	Feeds     []string
	Reader    collector.Reader
	Extractor collector.Extractor
	Locator   collector.Locator
	Composer  *processor.Composer
	Sender    Sender
	// 可为空
	Journal Journal

	// 每次发送之间的停顿，0 表示不停顿
	Pause      time.Duration
	SendPhotos bool
}

// Relay 串行处理所有 RSS 源：源与源之间、条目与条目之间都不并发
type Relay struct {
	opts  RelayOptions
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRelay(opts RelayOptions) (*Relay, error) {
	switch {
	case opts.Reader == nil:
		return nil, fmt.Errorf("relay: reader is required")
	case opts.Extractor == nil:
		return nil, fmt.Errorf("relay: extractor is required")
	case opts.Locator == nil:
		return nil, fmt.Errorf("relay: locator is required")
	case opts.Sender == nil:
		return nil, fmt.Errorf("relay: sender is required")
	}
	if opts.Composer == nil {
		opts.Composer = processor.NewComposer(0, "")
	}
	return &Relay{opts: opts, sleep: sleepCtx}, nil
}

// RunOnce 处理一遍全部 RSS 源后返回；ctx 取消时在下一个条目前停止
func (r *Relay) RunOnce(ctx context.Context) RunReport {
	report := RunReport{RunID: uuid.NewString(), Started: time.Now()}
	log.Printf("relay run %s start, feeds=%d", report.RunID, len(r.opts.Feeds))

feeds:
	for _, feedURL := range r.opts.Feeds {
		if ctx.Err() != nil {
			break
		}
		log.Printf("fetch news from %s...", feedURL)
		items := r.opts.Reader.Read(ctx, feedURL)
		report.Feeds++
		if len(items) == 0 {
			log.Printf("fetch %s got 0 items", feedURL)
			continue
		}

		for _, it := range items {
			if ctx.Err() != nil {
				break feeds
			}
			report.Items++
			photoSent, err := r.publishItem(ctx, report.RunID, it)
			if photoSent {
				report.Photos++
			}
			if err != nil {
				report.Failed++
				continue
			}
			report.Sent++
		}
	}

	report.Duration = time.Since(report.Started)
	metrics.RunDuration.Observe(report.Duration.Seconds())
	log.Printf("relay run %s done: feeds=%d items=%d sent=%d failed=%d photos=%d (%s)",
		report.RunID, report.Feeds, report.Items, report.Sent, report.Failed, report.Photos,
		report.Duration.Round(time.Millisecond))
	return report
}

// publishItem 正文与配图都取完后才开始发送
func (r *Relay) publishItem(ctx context.Context, runID string, it collector.FeedItem) (bool, error) {
	log.Printf("processing news item: %s", it.Title)

	article, hasArticle := r.opts.Extractor.Extract(ctx, it.Link)
	var image string
	if r.opts.SendPhotos {
		image, _ = r.opts.Locator.Locate(ctx, it.Link)
	}
	msg := r.opts.Composer.Compose(it, article, image)

	photoSent, err := r.send(ctx, msg)
	if err != nil {
		log.Printf("send news %q (%s) error: %v", it.Title, it.Link, err)
		metrics.RecordItem("failed")
	} else {
		log.Printf("sent news: %s", it.Title)
		metrics.RecordItem("sent")
	}

	r.record(ctx, runID, it, msg, hasArticle, photoSent, err)
	return photoSent, err
}

// send 有图：停顿 → 图片 → 停顿 → 正文；无图：正文 → 停顿。
// 图片发送失败则整条跳过；图片已发出后正文失败不会撤回图片
func (r *Relay) send(ctx context.Context, msg processor.OutboundMessage) (bool, error) {
	if msg.HasImage() {
		if err := r.sleep(ctx, r.opts.Pause); err != nil {
			return false, err
		}
		err := r.opts.Sender.SendPhoto(ctx, msg)
		metrics.RecordSend("photo", err)
		if err != nil {
			return false, fmt.Errorf("send photo: %w", err)
		}

		if err := r.sleep(ctx, r.opts.Pause); err != nil {
			return true, err
		}
		err = r.opts.Sender.SendText(ctx, msg)
		metrics.RecordSend("text", err)
		if err != nil {
			return true, fmt.Errorf("send text: %w", err)
		}
		return true, nil
	}

	err := r.opts.Sender.SendText(ctx, msg)
	metrics.RecordSend("text", err)
	if err != nil {
		return false, fmt.Errorf("send text: %w", err)
	}
	// 发送已成功，停顿被取消不影响结果
	_ = r.sleep(ctx, r.opts.Pause)
	return false, nil
}

func (r *Relay) record(ctx context.Context, runID string, it collector.FeedItem, msg processor.OutboundMessage, hasArticle, photoSent bool, sendErr error) {
	if r.opts.Journal == nil {
		return
	}
	d := &storage.Delivery{
		RunID:     runID,
		FeedURL:   it.Feed,
		Link:      it.Link,
		Title:     it.Title,
		Status:    storage.DeliverySent,
		PhotoSent: photoSent,
		ExtraData: map[string]any{
			"article": hasArticle,
			"image":   msg.Image,
		},
	}
	if sendErr != nil {
		d.Status = storage.DeliveryFailed
		d.Error = sendErr.Error()
	}
	// 取消后仍然写入记录
	if err := r.opts.Journal.RecordDelivery(context.WithoutCancel(ctx), d); err != nil {
		log.Printf("record delivery %s error: %v", it.Link, err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
