// Package publisher 负责把组装好的消息发到 Telegram 频道
package publisher

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/LJTian/NewsRelay/internal/processor"
)

// Destination 频道地址：数字 id 或 @username
type Destination struct {
	ChatID   int64
	Username string
}

// ParseDestination 支持 "-1001234567890" 与 "@channel" 两种写法
func ParseDestination(s string) (Destination, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Destination{}, fmt.Errorf("empty destination")
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Destination{ChatID: id}, nil
	}
	if !strings.HasPrefix(s, "@") {
		s = "@" + s
	}
	return Destination{Username: s}, nil
}

func (d Destination) String() string {
	if d.Username != "" {
		return d.Username
	}
	return strconv.FormatInt(d.ChatID, 10)
}

// TelegramPublisher 持有唯一的 bot 客户端，所有发送复用同一个实例
type TelegramPublisher struct {
	bot  *tgbotapi.BotAPI
	dest Destination
}

// NewTelegramPublisher apiEndpoint 为空时使用官方地址
func NewTelegramPublisher(token, apiEndpoint string, dest Destination) (*TelegramPublisher, error) {
	bot, err := newBot(token, apiEndpoint)
	if err != nil {
		return nil, err
	}
	return &TelegramPublisher{bot: bot, dest: dest}, nil
}

func newBot(token, apiEndpoint string) (*tgbotapi.BotAPI, error) {
	if apiEndpoint == "" {
		apiEndpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, apiEndpoint)
	if err != nil {
		return nil, fmt.Errorf("telegram: init bot: %w", err)
	}
	return bot, nil
}

// SendText 以 HTML 格式发送正文，附带评论按钮
func (p *TelegramPublisher) SendText(ctx context.Context, msg processor.OutboundMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var cfg tgbotapi.MessageConfig
	if p.dest.Username != "" {
		cfg = tgbotapi.NewMessageToChannel(p.dest.Username, msg.Text)
	} else {
		cfg = tgbotapi.NewMessage(p.dest.ChatID, msg.Text)
	}
	cfg.ParseMode = tgbotapi.ModeHTML
	cfg.ReplyMarkup = commentKeyboard(msg)

	if _, err := p.bot.Send(cfg); err != nil {
		return fmt.Errorf("telegram: send message to %s: %w", p.dest, err)
	}
	return nil
}

// SendPhoto 按 URL 发送图片，不带说明文字
func (p *TelegramPublisher) SendPhoto(ctx context.Context, msg processor.OutboundMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !msg.HasImage() {
		return fmt.Errorf("telegram: message has no image")
	}
	var cfg tgbotapi.PhotoConfig
	if p.dest.Username != "" {
		cfg = tgbotapi.NewPhotoToChannel(p.dest.Username, tgbotapi.FileURL(msg.Image))
	} else {
		cfg = tgbotapi.NewPhoto(p.dest.ChatID, tgbotapi.FileURL(msg.Image))
	}
	cfg.ReplyMarkup = commentKeyboard(msg)

	if _, err := p.bot.Send(cfg); err != nil {
		return fmt.Errorf("telegram: send photo to %s: %w", p.dest, err)
	}
	return nil
}

func commentKeyboard(msg processor.OutboundMessage) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(msg.CommentLabel, msg.CommentURL),
		),
	)
}

// ResolveChatID 把 "@news" 这类频道名解析成数字 id，供初始化配置时使用
func ResolveChatID(ctx context.Context, token, apiEndpoint, handle string) (int64, error) {
	dest, err := ParseDestination(handle)
	if err != nil {
		return 0, err
	}
	if dest.Username == "" {
		return dest.ChatID, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	bot, err := newBot(token, apiEndpoint)
	if err != nil {
		return 0, err
	}
	chat, err := bot.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{SuperGroupUsername: dest.Username},
	})
	if err != nil {
		return 0, fmt.Errorf("telegram: get chat %s: %w", dest.Username, err)
	}
	return chat.ID, nil
}
