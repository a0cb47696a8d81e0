package scheduler

import (
	"github.com/LJTian/NewsRelay/internal/collector"
	"github.com/LJTian/NewsRelay/internal/config"
	"github.com/LJTian/NewsRelay/internal/processor"
	"github.com/LJTian/NewsRelay/internal/storage"
)

// BuildRelay 按配置组装采集、组装与发送链路；store 可为 nil
func BuildRelay(cfg *config.Config, sender Sender, store *storage.Store) (*Relay, error) {
	mode, err := collector.ParseExtractMode(cfg.ExtractMode)
	if err != nil {
		return nil, err
	}

	var cache collector.PageCache
	var journal Journal
	if store != nil {
		if store.Redis != nil {
			cache = store
		}
		if store.DB != nil {
			journal = store
		}
	}

	pages := collector.NewPageFetcher(cfg.FetchTimeout, cfg.UserAgent, cache)

	feeds := make([]string, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		feeds = append(feeds, f.URL)
	}

	return NewRelay(RelayOptions{
		Feeds:      feeds,
		Reader:     collector.NewFeedReader(cfg.FeedItemLimit, cfg.FetchTimeout, cfg.UserAgent),
		Extractor:  collector.NewArticleExtractor(pages, mode),
		Locator:    collector.NewImageLocator(pages),
		Composer:   processor.NewComposer(cfg.BodyLimit, cfg.CommentLabel),
		Sender:     sender,
		Journal:    journal,
		Pause:      cfg.SendPause,
		SendPhotos: cfg.SendPhotos,
	})
}
