package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvWithDefault(t *testing.T) {
	const key = "TEST_APP_PORT"

	// 未设置时返回默认值
	t.Setenv(key, "")
	assert.Equal(t, "9000", getEnv(key, "9000"))

	t.Setenv(key, "8080")
	assert.Equal(t, "8080", getEnv(key, "9000"))
}

func TestGetEnvDuration(t *testing.T) {
	const key = "TEST_SEND_PAUSE"

	t.Setenv(key, "3")
	assert.Equal(t, 3*time.Second, getEnvDuration(key, time.Minute))

	t.Setenv(key, "250ms")
	assert.Equal(t, 250*time.Millisecond, getEnvDuration(key, time.Minute))

	t.Setenv(key, "abc")
	assert.Equal(t, time.Minute, getEnvDuration(key, time.Minute))
}

func TestLoadReadsTelegramAndPacing(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHANNEL_ID", "@news")
	t.Setenv("SEND_PAUSE", "2s")
	t.Setenv("SEND_PHOTOS", "false")
	t.Setenv("FEEDS", "")
	t.Setenv("FEEDS_FILE", "")

	cfg := Load()
	assert.Equal(t, "123:abc", cfg.TelegramToken)
	assert.Equal(t, "@news", cfg.TelegramChannelID)
	assert.Equal(t, 2*time.Second, cfg.SendPause)
	assert.False(t, cfg.SendPhotos)
	assert.Equal(t, 5, cfg.FeedItemLimit)
	assert.Equal(t, DefaultFeeds, cfg.Feeds)
	assert.NoError(t, cfg.Validate())
}

func TestValidateRequiresToken(t *testing.T) {
	cfg := &Config{TelegramChannelID: "1", Feeds: DefaultFeeds}
	assert.Error(t, cfg.Validate())

	cfg = &Config{TelegramToken: "t", Feeds: DefaultFeeds}
	assert.Error(t, cfg.Validate())
}

func TestLoadFeedsFromEnvList(t *testing.T) {
	feeds, err := loadFeeds("", " http://a/rss , ,http://b/rss")
	require.NoError(t, err)
	require.Len(t, feeds, 2)
	assert.Equal(t, "http://a/rss", feeds[0].URL)
	assert.Equal(t, "http://b/rss", feeds[1].URL)
}

func TestLoadFeedsFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	content := "feeds:\n  - name: one\n    url: http://one/rss\n  - url: http://two/rss\n  - name: empty\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	feeds, err := loadFeeds(path, "")
	require.NoError(t, err)
	require.Len(t, feeds, 2)
	assert.Equal(t, Feed{Name: "one", URL: "http://one/rss"}, feeds[0])
	assert.Equal(t, "http://two/rss", feeds[1].Name)

	_, err = loadFeeds(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)
}
