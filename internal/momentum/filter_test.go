package momentum

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discover-scanner/internal/domain"
)

func ptr(v float64) *float64 {
	return &v
}

// baseEvent is the reference event: ratio 1.5, volume/mcap exactly 0.1.
func baseEvent() *domain.TokenEvent {
	return &domain.TokenEvent{
		Name:              "Example",
		Symbol:            "EX",
		MarketCap:         decimal.NewFromInt(100_000),
		TopHoldersPercent: ptr(10),
		Buys:              30,
		Sells:             20,
		Volume:            decimal.NewFromInt(10_000),
		PooledLiquidity:   decimal.NewFromInt(50),
		Socials:           domain.Socials{Twitter: "@x"},
	}
}

func TestEvaluate_VolumeMcapBoundaryExcluded(t *testing.T) {
	e := baseEvent()
	th := domain.DefaultFilterThresholds()

	score := Score(e, time.Unix(0, 0))
	assert.Equal(t, 1.5, score.BuySellRatio)
	assert.Equal(t, 0.1, score.VolumeMcapRatio)

	v := Evaluate(e, th)
	assert.False(t, v.Admitted)
	assert.Equal(t, ReasonVolumeMcapRatio, v.Reason)
	assert.False(t, Admits(e, th))
}

func TestEvaluate_VolumeMcapJustAbove(t *testing.T) {
	e := baseEvent()
	e.Volume = decimal.NewFromInt(10_001)

	score := Score(e, time.Unix(0, 0))
	assert.Equal(t, 0.10001, score.VolumeMcapRatio)

	v := Evaluate(e, domain.DefaultFilterThresholds())
	assert.True(t, v.Admitted)
	assert.Equal(t, ReasonNone, v.Reason)
}

func TestEvaluate_VolumeMcapAboveBoundaryBeyondDivisionPrecision(t *testing.T) {
	e := baseEvent()
	e.Volume = decimal.RequireFromString("10000.000000000001")

	v := Evaluate(e, domain.DefaultFilterThresholds())
	assert.True(t, v.Admitted)
	assert.Equal(t, ReasonNone, v.Reason)
}

func admittedEvent() *domain.TokenEvent {
	e := baseEvent()
	e.Volume = decimal.NewFromInt(20_000)
	return e
}

func TestEvaluate_FirstFailingReason(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *domain.TokenEvent)
		want   Reason
	}{
		{"no social", func(e *domain.TokenEvent) { e.Socials = domain.Socials{Telegram: "t.me/x"} }, ReasonNoSocialHandle},
		{"blank social handle", func(e *domain.TokenEvent) { e.Socials = domain.Socials{Twitter: "  \t"} }, ReasonNoSocialHandle},
		{"mcap below", func(e *domain.TokenEvent) { e.MarketCap = decimal.NewFromInt(39_999) }, ReasonMarketCapRange},
		{"mcap above", func(e *domain.TokenEvent) { e.MarketCap = decimal.NewFromInt(500_001) }, ReasonMarketCapRange},
		{"top holders", func(e *domain.TokenEvent) { e.TopHoldersPercent = ptr(25.01) }, ReasonTopHolders},
		{"missing audit", func(e *domain.TokenEvent) { e.TopHoldersPercent = nil }, ReasonTopHolders},
		{"buy sell", func(e *domain.TokenEvent) { e.Buys = 23 }, ReasonBuySellRatio},
		{"volume", func(e *domain.TokenEvent) { e.Volume = decimal.NewFromInt(4_999) }, ReasonVolume},
		{"pooled", func(e *domain.TokenEvent) { e.PooledLiquidity = decimal.RequireFromString("19.99") }, ReasonPooledLiquidity},
		{"zero mcap", func(e *domain.TokenEvent) { e.MarketCap = decimal.Zero }, ReasonZeroMarketCap},
	}

	th := domain.DefaultFilterThresholds()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := admittedEvent()
			tt.mutate(e)
			v := Evaluate(e, th)
			assert.False(t, v.Admitted)
			assert.Equal(t, tt.want, v.Reason)
			assert.NotEmpty(t, v.Detail)
		})
	}
}

func TestEvaluate_InclusiveBounds(t *testing.T) {
	th := domain.DefaultFilterThresholds()

	e := admittedEvent()
	e.MarketCap = decimal.NewFromInt(40_000)
	e.Volume = decimal.NewFromInt(5_000)
	e.PooledLiquidity = decimal.NewFromInt(20)
	e.TopHoldersPercent = ptr(25)
	e.Buys, e.Sells = 12, 10

	assert.True(t, Admits(e, th), Evaluate(e, th).Detail)

	e.MarketCap = decimal.NewFromInt(500_000)
	e.Volume = decimal.NewFromInt(60_000)
	assert.True(t, Admits(e, th), Evaluate(e, th).Detail)
}

func TestBuySellRatio_ZeroSellsTreatedAsOne(t *testing.T) {
	e := admittedEvent()
	e.Buys, e.Sells = 5, 0

	assert.True(t, BuySellRatio(e).Equal(decimal.NewFromInt(5)))
	assert.Equal(t, 5.0, Score(e, time.Now()).BuySellRatio)
	assert.True(t, Admits(e, domain.DefaultFilterThresholds()))

	e.Buys = 1
	assert.Equal(t, ReasonBuySellRatio, Evaluate(e, domain.DefaultFilterThresholds()).Reason)
}

func TestZeroMarketCap_FailsClosed(t *testing.T) {
	th := domain.DefaultFilterThresholds()
	th.MinMarketCap = decimal.Zero

	e := admittedEvent()
	e.MarketCap = decimal.Zero

	require.NotPanics(t, func() { Evaluate(e, th) })
	assert.Equal(t, ReasonZeroMarketCap, Evaluate(e, th).Reason)

	ratio, ok := VolumeMcapRatio(e)
	assert.False(t, ok)
	assert.True(t, ratio.IsZero())
	assert.Equal(t, 0.0, Score(e, time.Now()).VolumeMcapRatio)
}

func TestEvaluate_Deterministic(t *testing.T) {
	th := domain.DefaultFilterThresholds()
	for _, e := range []*domain.TokenEvent{baseEvent(), admittedEvent()} {
		first := Evaluate(e, th)
		for i := 0; i < 100; i++ {
			if got := Evaluate(e, th); got != first {
				t.Fatalf("verdict changed on iteration %d: %+v vs %+v", i, got, first)
			}
		}
	}
}

func TestEvaluate_MonotoneInMinVolume(t *testing.T) {
	events := []*domain.TokenEvent{baseEvent(), admittedEvent()}
	for _, v := range []int64{4_000, 6_000, 15_000, 25_000} {
		e := admittedEvent()
		e.Volume = decimal.NewFromInt(v)
		events = append(events, e)
	}

	low := domain.DefaultFilterThresholds()
	high := low
	high.MinVolume = decimal.NewFromInt(15_000)

	for _, e := range events {
		if Admits(e, high) && !Admits(e, low) {
			t.Errorf("raising MinVolume admitted volume %s", e.Volume)
		}
	}
}

func TestEvaluate_DoesNotMutate(t *testing.T) {
	e := admittedEvent()
	before := *e
	Evaluate(e, domain.DefaultFilterThresholds())
	Score(e, time.Now())
	assert.Equal(t, before, *e)
}

func TestScore_AgeHours(t *testing.T) {
	e := admittedEvent()
	e.CreatedTimestamp = 1_700_000_000
	now := time.Unix(1_700_000_000+90*60, 0)

	assert.InDelta(t, 1.5, Score(e, now).AgeHours, 1e-9)

	e.CreatedTimestamp = 0
	assert.Equal(t, 0.0, Score(e, now).AgeHours)
}

func TestLiquiditySafe(t *testing.T) {
	e := admittedEvent()
	e.PooledLiquidity = decimal.NewFromInt(2)
	e.LPBurnedPercent = 100
	assert.True(t, LiquiditySafe(e, DefaultMinSafeLiquidity))

	e.LPBurnedPercent = 99
	assert.False(t, LiquiditySafe(e, DefaultMinSafeLiquidity))

	e.LPBurnedPercent = 100
	e.PooledLiquidity = decimal.RequireFromString("1.9")
	assert.False(t, LiquiditySafe(e, DefaultMinSafeLiquidity))
}
