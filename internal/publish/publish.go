// Package publish sends generated news items to a Telegram chat.
package publish

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/TobiSchelling/newsgen/internal/news"
)

// ChannelTelegram is the channel name stored with publications.
const ChannelTelegram = "telegram"

// MaxMessageRunes is the Telegram limit for a text message.
const MaxMessageRunes = 4096

// ErrNotConfigured means the bot token or chat ID is missing.
var ErrNotConfigured = errors.New("telegram publishing not configured")

// Publisher delivers a record and returns the message ID.
type Publisher interface {
	Publish(ctx context.Context, rec news.Record) (string, error)
}

// Sender sends an HTML message to a chat.
type Sender interface {
	SendHTML(ctx context.Context, chatID int64, htmlText string) (int, error)
}

// TelegramSender implements Sender using tgbotapi.
type TelegramSender struct {
	api *tgbotapi.BotAPI
}

// NewTelegramSender creates a new sender.
func NewTelegramSender(api *tgbotapi.BotAPI) *TelegramSender {
	return &TelegramSender{api: api}
}

// SendHTML sends an HTML-formatted message.
func (s *TelegramSender) SendHTML(ctx context.Context, chatID int64, htmlText string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, htmlText)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	resp, err := s.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return resp.MessageID, nil
}

// Telegram publishes records to one chat.
type Telegram struct {
	Sender Sender
	ChatID int64
}

// NewTelegram connects to the bot API with the token read from tokenEnv.
func NewTelegram(tokenEnv string, chatID int64) (*Telegram, error) {
	token := os.Getenv(tokenEnv)
	if token == "" || chatID == 0 {
		return nil, ErrNotConfigured
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	return &Telegram{Sender: NewTelegramSender(api), ChatID: chatID}, nil
}

// Publish sends the record as one HTML message.
func (t *Telegram) Publish(ctx context.Context, rec news.Record) (string, error) {
	if t.ChatID == 0 {
		return "", ErrNotConfigured
	}
	id, err := t.Sender.SendHTML(ctx, t.ChatID, FormatMessage(rec))
	if err != nil {
		return "", fmt.Errorf("sending to telegram: %w", err)
	}
	return strconv.Itoa(id), nil
}

// FormatMessage renders the title in bold followed by the article. The
// article is cut on a rune boundary so the escaped message stays within
// MaxMessageRunes.
func FormatMessage(rec news.Record) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(rec.Title))
	b.WriteString("</b>")

	article := strings.TrimSpace(rec.Article)
	if article == "" {
		return b.String()
	}
	b.WriteString("\n\n")

	used := utf8.RuneCountInString(b.String())
	const ellipsis = "…"
	for i, r := range article {
		esc := html.EscapeString(string(r))
		n := utf8.RuneCountInString(esc)
		rest := article[i+utf8.RuneLen(r):]
		reserve := 0
		if rest != "" {
			reserve = 1
		}
		if used+n+reserve > MaxMessageRunes {
			b.WriteString(ellipsis)
			break
		}
		b.WriteString(esc)
		used += n
	}
	return b.String()
}
