package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/NewsRelay/internal/collector"
	"github.com/LJTian/NewsRelay/internal/processor"
	"github.com/LJTian/NewsRelay/internal/storage"
)

type fakeReader map[string][]collector.FeedItem

func (f fakeReader) Read(_ context.Context, feedURL string) []collector.FeedItem {
	return f[feedURL]
}

// recorder 按调用顺序记录所有事件，用来校验串行顺序
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeExtractor struct {
	rec   *recorder
	texts map[string]string
}

func (f *fakeExtractor) Extract(_ context.Context, pageURL string) (string, bool) {
	f.rec.add("extract " + pageURL)
	t, ok := f.texts[pageURL]
	return t, ok
}

type fakeLocator struct {
	rec    *recorder
	images map[string]string
}

func (f *fakeLocator) Locate(_ context.Context, pageURL string) (string, bool) {
	f.rec.add("locate " + pageURL)
	img, ok := f.images[pageURL]
	return img, ok
}

type fakeSender struct {
	rec       *recorder
	texts     []processor.OutboundMessage
	photos    []processor.OutboundMessage
	photoErr  error
	textErr   error
	textBlock chan struct{}
}

func (f *fakeSender) SendText(ctx context.Context, msg processor.OutboundMessage) error {
	if f.textBlock != nil {
		select {
		case <-f.textBlock:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.rec.add("text " + msg.CommentURL)
	if f.textErr != nil {
		return f.textErr
	}
	f.texts = append(f.texts, msg)
	return nil
}

func (f *fakeSender) SendPhoto(_ context.Context, msg processor.OutboundMessage) error {
	f.rec.add("photo " + msg.Image)
	if f.photoErr != nil {
		return f.photoErr
	}
	f.photos = append(f.photos, msg)
	return nil
}

type fakeJournal struct {
	deliveries []storage.Delivery
}

func (f *fakeJournal) RecordDelivery(_ context.Context, d *storage.Delivery) error {
	f.deliveries = append(f.deliveries, *d)
	return nil
}

type relayFixture struct {
	rec     *recorder
	sender  *fakeSender
	journal *fakeJournal
	relay   *Relay
	pauses  []time.Duration
}

func newFixture(t *testing.T, reader fakeReader, feeds []string, texts, images map[string]string) *relayFixture {
	t.Helper()
	rec := &recorder{}
	f := &relayFixture{
		rec:     rec,
		sender:  &fakeSender{rec: rec},
		journal: &fakeJournal{},
	}
	relay, err := NewRelay(RelayOptions{
		Feeds:      feeds,
		Reader:     reader,
		Extractor:  &fakeExtractor{rec: rec, texts: texts},
		Locator:    &fakeLocator{rec: rec, images: images},
		Composer:   processor.NewComposer(0, "Leave a comment"),
		Sender:     f.sender,
		Journal:    f.journal,
		Pause:      3 * time.Second,
		SendPhotos: true,
	})
	require.NoError(t, err)
	relay.sleep = func(ctx context.Context, d time.Duration) error {
		rec.add("pause")
		f.pauses = append(f.pauses, d)
		return ctx.Err()
	}
	f.relay = relay
	return f
}

func TestRelaySingleItemWithoutArticleOrImage(t *testing.T) {
	reader := fakeReader{"http://feed/1": {{Title: "A & B", Link: "http://x/1", Summary: "s", Feed: "http://feed/1"}}}
	f := newFixture(t, reader, []string{"http://feed/1"}, nil, nil)

	report := f.relay.RunOnce(context.Background())

	require.Len(t, f.sender.texts, 1)
	assert.Empty(t, f.sender.photos)
	msg := f.sender.texts[0]
	assert.True(t, strings.HasPrefix(msg.Text, "📰 <b>A &amp; B</b>"))
	assert.Equal(t, "📰 <b>A &amp; B</b>\n\ns", msg.Text)
	assert.Equal(t, "Leave a comment", msg.CommentLabel)
	assert.Equal(t, "http://x/1#comments", msg.CommentURL)

	assert.Equal(t, []string{"extract http://x/1", "locate http://x/1", "text http://x/1#comments", "pause"}, f.rec.list())
	assert.Equal(t, 1, report.Feeds)
	assert.Equal(t, 1, report.Items)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 0, report.Failed)
	assert.NotEmpty(t, report.RunID)

	require.Len(t, f.journal.deliveries, 1)
	assert.Equal(t, storage.DeliverySent, f.journal.deliveries[0].Status)
	assert.Equal(t, "http://feed/1", f.journal.deliveries[0].FeedURL)
}

func TestRelayPhotoThenTextWithPauses(t *testing.T) {
	reader := fakeReader{"http://feed/1": {{Title: "Заголовок", Link: "http://x/1"}}}
	f := newFixture(t, reader, []string{"http://feed/1"},
		map[string]string{"http://x/1": "Полный текст"},
		map[string]string{"http://x/1": "http://img/1.jpg"})

	report := f.relay.RunOnce(context.Background())

	assert.Equal(t, []string{
		"extract http://x/1",
		"locate http://x/1",
		"pause",
		"photo http://img/1.jpg",
		"pause",
		"text http://x/1#comments",
	}, f.rec.list())
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, f.pauses)
	require.Len(t, f.sender.texts, 1)
	assert.Equal(t, "📰 <b>Заголовок</b>\n\nПолный текст", f.sender.texts[0].Text)
	assert.Equal(t, 1, report.Photos)
	assert.True(t, f.journal.deliveries[0].PhotoSent)
}

func TestRelayPhotoFailureSkipsItemAndContinues(t *testing.T) {
	reader := fakeReader{"http://feed/1": {
		{Title: "one", Link: "http://x/1"},
		{Title: "two", Link: "http://x/2"},
	}}
	f := newFixture(t, reader, []string{"http://feed/1"}, nil, map[string]string{"http://x/1": "http://img/1.jpg"})
	f.sender.photoErr = errors.New("bad photo")

	report := f.relay.RunOnce(context.Background())

	require.Len(t, f.sender.texts, 1)
	assert.Equal(t, "http://x/2#comments", f.sender.texts[0].CommentURL)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 0, report.Photos)

	require.Len(t, f.journal.deliveries, 2)
	assert.Equal(t, storage.DeliveryFailed, f.journal.deliveries[0].Status)
	assert.Contains(t, f.journal.deliveries[0].Error, "bad photo")
}

func TestRelayTextFailureAfterPhotoKeepsPhoto(t *testing.T) {
	reader := fakeReader{"http://feed/1": {{Title: "one", Link: "http://x/1"}}}
	f := newFixture(t, reader, []string{"http://feed/1"}, nil, map[string]string{"http://x/1": "http://img/1.jpg"})
	f.sender.textErr = errors.New("flood")

	report := f.relay.RunOnce(context.Background())

	assert.Len(t, f.sender.photos, 1)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Photos)
	require.Len(t, f.journal.deliveries, 1)
	assert.True(t, f.journal.deliveries[0].PhotoSent)
	assert.Equal(t, storage.DeliveryFailed, f.journal.deliveries[0].Status)
}

func TestRelayProcessesFeedsAndItemsInOrder(t *testing.T) {
	reader := fakeReader{
		"http://feed/1": {{Title: "1a", Link: "http://x/1a"}, {Title: "1b", Link: "http://x/1b"}},
		"http://feed/2": {{Title: "2a", Link: "http://x/2a"}},
	}
	f := newFixture(t, reader, []string{"http://feed/1", "http://feed/missing", "http://feed/2"}, nil, nil)

	report := f.relay.RunOnce(context.Background())

	var order []string
	for _, m := range f.sender.texts {
		order = append(order, m.CommentURL)
	}
	assert.Equal(t, []string{"http://x/1a#comments", "http://x/1b#comments", "http://x/2a#comments"}, order)
	assert.Equal(t, 3, report.Feeds)
	assert.Equal(t, 3, report.Items)
}

func TestRelayPhotosDisabledSkipsLocator(t *testing.T) {
	reader := fakeReader{"http://feed/1": {{Title: "one", Link: "http://x/1"}}}
	f := newFixture(t, reader, []string{"http://feed/1"}, nil, map[string]string{"http://x/1": "http://img/1.jpg"})
	f.relay.opts.SendPhotos = false

	f.relay.RunOnce(context.Background())

	assert.Empty(t, f.sender.photos)
	assert.NotContains(t, f.rec.list(), "locate http://x/1")
}

func TestRelayStopsWhenContextCancelled(t *testing.T) {
	reader := fakeReader{"http://feed/1": {{Title: "one", Link: "http://x/1"}, {Title: "two", Link: "http://x/2"}}}
	f := newFixture(t, reader, []string{"http://feed/1"}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	f.relay.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	report := f.relay.RunOnce(ctx)
	assert.Equal(t, 1, report.Items)
	assert.Equal(t, 1, report.Sent)
}

func TestNewRelayValidatesDependencies(t *testing.T) {
	_, err := NewRelay(RelayOptions{})
	assert.Error(t, err)
}

func TestSleepCtx(t *testing.T) {
	assert.NoError(t, sleepCtx(context.Background(), 0))
	assert.NoError(t, sleepCtx(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}
