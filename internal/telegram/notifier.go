// Package telegram delivers match alerts through the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"discover-scanner/internal/domain"
	"discover-scanner/internal/reporting"
)

// Sender is the subset of *tgbotapi.BotAPI used by Notifier.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier sends one MarkdownV2 message per match, retrying with linear backoff.
type Notifier struct {
	bot            Sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewNotifier connects to the Bot API with botToken.
func NewNotifier(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return NewNotifierWithSender(bot, chatID, maxRetries, retryDelayBase)
}

// NewNotifierWithSender creates a notifier over an existing sender.
func NewNotifierWithSender(bot Sender, chatID string, maxRetries int, retryDelayBase time.Duration) (*Notifier, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Notifier{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// Name returns "telegram".
func (n *Notifier) Name() string {
	return "telegram"
}

// Report sends the formatted match. Retries stop early when ctx is done.
func (n *Notifier) Report(ctx context.Context, m *domain.MatchResult) error {
	msg := tgbotapi.NewMessage(n.chatID, FormatMessage(m))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true

	var lastErr error
	for i := 0; i < n.maxRetries; i++ {
		_, err := n.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err

		if i == n.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("send interrupted: %w", ctx.Err())
		case <-time.After(n.retryDelayBase * time.Duration(i+1)):
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", n.maxRetries, lastErr)
}

// FormatMessage renders a match as a MarkdownV2 alert.
func FormatMessage(m *domain.MatchResult) string {
	e := m.Event
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("🚀 *%s* \\(%s\\)\n", escapeMarkdownV2(e.Name), escapeMarkdownV2(e.Symbol)))
	sb.WriteString(fmt.Sprintf("`%s`\n\n", escapeMarkdownV2(e.TokenAddress)))

	sb.WriteString(fmt.Sprintf("💰 Mcap: %s \\| Vol: %s\n",
		escapeMarkdownV2(e.MarketCap.StringFixed(0)), escapeMarkdownV2(e.Volume.StringFixed(0))))
	sb.WriteString(fmt.Sprintf("📈 Buys/Sells: %d/%d \\(%s\\)\n",
		e.Buys, e.Sells, escapeMarkdownV2(fmt.Sprintf("%.2f", m.Score.BuySellRatio))))
	sb.WriteString(fmt.Sprintf("💧 Pooled: %s SOL\n", escapeMarkdownV2(e.PooledLiquidity.String())))
	sb.WriteString(fmt.Sprintf("👥 Top holders: %s\n", escapeMarkdownV2(fmt.Sprintf("%.2f%%", e.TopHolders()))))
	sb.WriteString(fmt.Sprintf("⚠️ Risk: %s\n", escapeMarkdownV2(m.Risk.Level.String())))

	if e.Socials.Twitter != "" {
		sb.WriteString(fmt.Sprintf("🐦 %s\n", escapeMarkdownV2(e.Socials.Twitter)))
	}
	if e.CreatedTimestamp > 0 {
		sb.WriteString(fmt.Sprintf("⏱ Age: %s\n", escapeMarkdownV2(formatAge(m.Score.AgeHours))))
	}

	return sb.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	var sb strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			sb.WriteRune('\\')
		}
		sb.WriteRune(char)
	}
	return sb.String()
}

func formatAge(hours float64) string {
	d := time.Duration(hours * float64(time.Hour))
	if d >= time.Hour {
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dm", int(d.Minutes()))
}

var _ reporting.Sink = (*Notifier)(nil)
