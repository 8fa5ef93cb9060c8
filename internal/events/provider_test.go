package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/scout/internal/marketdata"
	"github.com/wonny/scout/pkg/diskcache"
	"github.com/wonny/scout/pkg/logger"
)

type fakeMD struct {
	infos map[string]marketdata.Info
	calls int
}

func (f *fakeMD) History(_ context.Context, _, _, _ string) *marketdata.Series { return nil }

func (f *fakeMD) Info(_ context.Context, symbol string) marketdata.Info {
	f.calls++
	return f.infos[symbol]
}

func (f *fakeMD) FX(_ context.Context, _ string) (float64, bool) { return 0, false }

func TestEarningsAndDividend(t *testing.T) {
	md := &fakeMD{infos: map[string]marketdata.Info{
		"AAPL": {"earningsDate": float64(1766880000), "exDividendDate": float64(1765000000)},
	}}
	p := NewProvider(md, logger.Nop(), diskcache.New(t.TempDir(), time.Hour))

	cal := p.EarningsAndDividend(context.Background(), "AAPL")
	assert.Equal(t, "2025-12-28T00:00:00Z", cal.EarningsDate)
	assert.Equal(t, "2025-12-06T05:46:40Z", cal.ExDivDate)
}

func TestEarningsAndDividendAbsent(t *testing.T) {
	p := NewProvider(&fakeMD{}, logger.Nop(), diskcache.New(t.TempDir(), time.Hour))

	cal := p.EarningsAndDividend(context.Background(), "GHOST")
	assert.Empty(t, cal.EarningsDate)
	assert.Empty(t, cal.ExDivDate)
}

func TestEarningsAndDividendCaches(t *testing.T) {
	md := &fakeMD{infos: map[string]marketdata.Info{
		"AAPL": {"earningsDate": float64(1766880000)},
	}}
	p := NewProvider(md, logger.Nop(), diskcache.New(t.TempDir(), time.Hour))
	ctx := context.Background()

	first := p.EarningsAndDividend(ctx, "AAPL")
	second := p.EarningsAndDividend(ctx, "AAPL")
	require.Equal(t, first, second)
	assert.Equal(t, 1, md.calls, "second read must come from cache")
}
