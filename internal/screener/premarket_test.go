package screener

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intrascan/intrascan/internal/domain/indicators"
)

var testDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func TestGapFilter_WindowAndAlignment(t *testing.T) {
	cfg := testConfig()
	data := newFakeData()
	early := time.Date(2024, 3, 15, 9, 5, 0, 0, time.UTC)

	data.prev["UP.NS"] = 100
	data.minute["UP.NS"] = append(data.minute["UP.NS"], flatBar(early, 101, 1000)) // +1.0%, aligned
	data.prev["DOWN.NS"] = 200
	data.minute["DOWN.NS"] = append(data.minute["DOWN.NS"], flatBar(early, 198, 1000)) // -1.0%
	data.prev["FLAT.NS"] = 100
	data.minute["FLAT.NS"] = append(data.minute["FLAT.NS"], flatBar(early, 100.1, 1000)) // 0.1%, too small
	data.prev["WIDE.NS"] = 100
	data.minute["WIDE.NS"] = append(data.minute["WIDE.NS"], flatBar(early, 103, 1000)) // 3.0%, too large
	data.prev["NOBARS.NS"] = 100
	data.errs["BROKEN.NS"] = errors.New("disk error")
	data.prev["BROKEN.NS"] = 100

	symbols := []string{"DOWN.NS", "FLAT.NS", "UP.NS", "WIDE.NS", "NOPREV.NS", "NOBARS.NS", "BROKEN.NS"}
	p := NewPreMarket(cfg, data)
	out, skips := p.GapFilter(symbols, testDate, indicators.TrendUp)

	require.Len(t, out, 2)
	// Aligned-with-index candidates partition strictly ahead.
	assert.Equal(t, "UP.NS", out[0].Symbol)
	assert.True(t, out[0].AlignedWithIndex)
	assert.Equal(t, GapUp, out[0].Direction)
	assert.InDelta(t, 1.0, out[0].GapPercent, 1e-9)

	assert.Equal(t, "DOWN.NS", out[1].Symbol)
	assert.False(t, out[1].AlignedWithIndex)
	assert.Equal(t, GapDown, out[1].Direction)

	require.Len(t, skips, 5)
	reasons := map[string]string{}
	for _, s := range skips {
		assert.Equal(t, "gap", s.Stage)
		reasons[s.Symbol] = s.Reason
	}
	assert.Equal(t, "gap outside window", reasons["FLAT.NS"])
	assert.Equal(t, "gap outside window", reasons["WIDE.NS"])
	assert.Equal(t, "no previous close", reasons["NOPREV.NS"])
	assert.Equal(t, "no early prints", reasons["NOBARS.NS"])
	assert.Contains(t, reasons["BROKEN.NS"], "minute data error")
}

func TestGapFilter_AlignedGapsSortByMagnitude(t *testing.T) {
	cfg := testConfig()
	data := newFakeData()
	early := time.Date(2024, 3, 15, 9, 5, 0, 0, time.UTC)

	data.prev["A.NS"] = 100
	data.minute["A.NS"] = append(data.minute["A.NS"], flatBar(early, 100.5, 1)) // +0.5%
	data.prev["B.NS"] = 100
	data.minute["B.NS"] = append(data.minute["B.NS"], flatBar(early, 101.5, 1)) // +1.5%

	p := NewPreMarket(cfg, data)
	out, _ := p.GapFilter([]string{"A.NS", "B.NS"}, testDate, indicators.TrendUp)

	require.Len(t, out, 2)
	assert.Equal(t, "B.NS", out[0].Symbol)
	assert.Equal(t, "A.NS", out[1].Symbol)
}

func TestLiquidityFilter_FloorSurgeAndEscapeHatch(t *testing.T) {
	cfg := testConfig()
	data := newFakeData()
	preopen := time.Date(2024, 3, 15, 9, 5, 0, 0, time.UTC)

	data.daily["LIQ.NS"] = risingDaily(testDate, 100, 10, 1_000_000)
	data.minute["LIQ.NS"] = append(data.minute["LIQ.NS"], flatBar(preopen, 101, 50_000))
	data.daily["ILLIQ.NS"] = risingDaily(testDate, 100, 10, 50_000)
	data.daily["NOSURGE.NS"] = risingDaily(testDate, 100, 10, 150_000)
	data.daily["ESCAPE.NS"] = risingDaily(testDate, 100, 10, 250_000)

	candidates := []GapCandidate{
		{Symbol: "LIQ.NS"}, {Symbol: "ILLIQ.NS"}, {Symbol: "NOSURGE.NS"},
		{Symbol: "ESCAPE.NS"}, {Symbol: "NODAILY.NS"},
	}
	p := NewPreMarket(cfg, data)
	out, skips := p.LiquidityFilter(candidates, testDate)

	require.Len(t, out, 2)
	// Sorted by average volume descending.
	assert.Equal(t, "LIQ.NS", out[0].Symbol)
	assert.InDelta(t, 50_000, out[0].PreopenVolume, 1e-9)
	assert.Greater(t, out[0].VolumeRatio, 1.2)

	// Escape hatch: heavy average volume passes without an early surge.
	assert.Equal(t, "ESCAPE.NS", out[1].Symbol)
	assert.Equal(t, 0.0, out[1].VolumeRatio)

	reasons := map[string]string{}
	for _, s := range skips {
		assert.Equal(t, "liquidity", s.Stage)
		reasons[s.Symbol] = s.Reason
	}
	assert.Equal(t, "average volume below floor", reasons["ILLIQ.NS"])
	assert.Equal(t, "no early volume surge", reasons["NOSURGE.NS"])
	assert.Equal(t, "no daily data", reasons["NODAILY.NS"])
}

func TestScoreCandidates_CompositeTiers(t *testing.T) {
	cfg := testConfig()
	p := NewPreMarket(cfg, newFakeData())

	strong := Candidate{
		LiquidCandidate: LiquidCandidate{
			GapCandidate: GapCandidate{GapPercent: 2.0, AlignedWithIndex: true},
			AvgVolume:    12_000_000,
		},
		HasNews:  true,
		NewsType: "earnings",
	}
	weak := Candidate{
		LiquidCandidate: LiquidCandidate{
			GapCandidate: GapCandidate{GapPercent: -1.0},
			AvgVolume:    600_000,
		},
	}

	out := p.ScoreCandidates([]Candidate{strong, weak})
	require.Len(t, out, 2)
	assert.Equal(t, 100.0, out[0].Score) // 30 gap + 25 aligned + 25 volume + 20 earnings
	assert.Equal(t, 25.0, out[1].Score)  // 15 gap + 10 volume
}

func TestScoreCandidates_NonEarningsNews(t *testing.T) {
	cfg := testConfig()
	p := NewPreMarket(cfg, newFakeData())

	c := Candidate{
		LiquidCandidate: LiquidCandidate{
			GapCandidate: GapCandidate{GapPercent: 1.0},
			AvgVolume:    2_000_000,
		},
		HasNews:  true,
		NewsType: "dividend",
	}
	out := p.ScoreCandidates([]Candidate{c})
	assert.Equal(t, 40.0, out[0].Score) // 15 gap + 15 volume + 10 other news
}

func TestScreen_EndToEnd(t *testing.T) {
	cfg := testConfig()
	data := newFakeData()
	early := time.Date(2024, 3, 15, 9, 5, 0, 0, time.UTC)

	data.daily["^NSEI"] = risingDaily(testDate, 20000, 10, 0)
	data.prev["UP.NS"] = 100
	data.minute["UP.NS"] = append(data.minute["UP.NS"], flatBar(early, 101, 50_000))
	data.daily["UP.NS"] = risingDaily(testDate, 100, 10, 2_000_000)
	data.news["UP.NS"] = [2]string{"earnings", "Q4 results due"}

	p := NewPreMarket(cfg, data)
	result, err := p.Screen(testDate)
	require.NoError(t, err)

	assert.Equal(t, indicators.TrendUp, result.Index.Primary.Trend)
	assert.Equal(t, "^NSEI", result.Index.Primary.Symbol)

	require.Len(t, result.Candidates, 1)
	c := result.Candidates[0]
	assert.Equal(t, "UP.NS", c.Symbol)
	assert.True(t, c.AlignedWithIndex)
	assert.True(t, c.HasNews)
	assert.Equal(t, "earnings", c.NewsType)
	// 15 gap + 25 aligned + 15 volume + 20 earnings news
	assert.Equal(t, 75.0, c.Score)
}

func TestScreen_EmptyUniverseResult(t *testing.T) {
	cfg := testConfig()
	data := newFakeData()
	data.daily["^NSEI"] = risingDaily(testDate, 20000, 10, 0)

	p := NewPreMarket(cfg, data)
	result, err := p.Screen(testDate)
	require.NoError(t, err)
	assert.Empty(t, result.Candidates)
	assert.NotEmpty(t, result.Skipped)
}

func TestIndexTrends_MissingDataIsSideways(t *testing.T) {
	cfg := testConfig()
	p := NewPreMarket(cfg, newFakeData())

	ctx := p.IndexTrends(testDate)
	require.Len(t, ctx.All, 1)
	assert.Equal(t, indicators.TrendSideways, ctx.Primary.Trend)
}
