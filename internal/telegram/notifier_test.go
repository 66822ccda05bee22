package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discover-scanner/internal/domain"
)

type fakeSender struct {
	failures int
	calls    int
	last     tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.calls++
	f.last = c
	if f.calls <= f.failures {
		return tgbotapi.Message{}, errors.New("Too Many Requests: retry after 1")
	}
	return tgbotapi.Message{MessageID: f.calls}, nil
}

func testMatch() *domain.MatchResult {
	return &domain.MatchResult{
		MatchID: "m1",
		Event: &domain.TokenEvent{
			Name:             "Dog.wif-hat",
			Symbol:           "WIF!",
			TokenAddress:     "So11111111111111111111111111111111111111112",
			MarketCap:        decimal.NewFromInt(120_000),
			Volume:           decimal.NewFromInt(25_000),
			PooledLiquidity:  decimal.RequireFromString("42.5"),
			Buys:             40,
			Sells:            10,
			Socials:          domain.Socials{Twitter: "@dog_wif"},
			CreatedTimestamp: 1_700_000_000,
		},
		Score: domain.Score{BuySellRatio: 4, VolumeMcapRatio: 0.2083, AgeHours: 1.5},
		Risk:  domain.RiskAssessment{Level: domain.RiskVeryHigh},
	}
}

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a.b", "a\\.b"},
		{"(x)-[y]", "\\(x\\)\\-\\[y\\]"},
		{"back\\slash", "back\\\\slash"},
		{"_*~`>#+=|{}!", "\\_\\*\\~\\`\\>\\#\\+\\=\\|\\{\\}\\!"},
	}
	for _, tt := range tests {
		if got := escapeMarkdownV2(tt.in); got != tt.want {
			t.Errorf("escapeMarkdownV2(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatAge(t *testing.T) {
	assert.Equal(t, "1h30m", formatAge(1.5))
	assert.Equal(t, "45m", formatAge(0.75))
	assert.Equal(t, "0m", formatAge(0))
}

func TestFormatMessage(t *testing.T) {
	msg := FormatMessage(testMatch())

	assert.Contains(t, msg, "*Dog\\.wif\\-hat* \\(WIF\\!\\)")
	assert.Contains(t, msg, "Buys/Sells: 40/10 \\(4\\.00\\)")
	assert.Contains(t, msg, "Pooled: 42\\.5 SOL")
	assert.Contains(t, msg, "Top holders: 100\\.00%")
	assert.Contains(t, msg, "Risk: VERY\\_HIGH")
	assert.Contains(t, msg, "@dog\\_wif")
	assert.Contains(t, msg, "Age: 1h30m")
}

func TestFormatMessage_OmitsMissingFields(t *testing.T) {
	m := testMatch()
	m.Event.Socials = domain.Socials{}
	m.Event.CreatedTimestamp = 0

	msg := FormatMessage(m)
	assert.False(t, strings.Contains(msg, "🐦"))
	assert.False(t, strings.Contains(msg, "Age:"))
}

func TestNotifier_RetriesThenSucceeds(t *testing.T) {
	sender := &fakeSender{failures: 2}
	n, err := NewNotifierWithSender(sender, "-100123", 3, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "telegram", n.Name())

	require.NoError(t, n.Report(context.Background(), testMatch()))
	assert.Equal(t, 3, sender.calls)

	sent, ok := sender.last.(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(-100123), sent.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, sent.ParseMode)
}

func TestNotifier_GivesUp(t *testing.T) {
	sender := &fakeSender{failures: 10}
	n, err := NewNotifierWithSender(sender, "42", 2, time.Millisecond)
	require.NoError(t, err)

	err = n.Report(context.Background(), testMatch())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Equal(t, 2, sender.calls)
}

func TestNotifier_StopsOnCancel(t *testing.T) {
	sender := &fakeSender{failures: 10}
	n, err := NewNotifierWithSender(sender, "42", 5, time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = n.Report(ctx, testMatch())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sender.calls)
}

func TestNewNotifier_InvalidChatID(t *testing.T) {
	_, err := NewNotifierWithSender(&fakeSender{}, "not-a-number", 0, 0)
	assert.Error(t, err)
}
