package candle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(ts time.Time, o, h, l, c, v float64) Candle {
	return Candle{Timestamp: ts, Open: o, High: h, Low: l, Close: c, Volume: v}
}

func TestCandle_BodyAndWicks(t *testing.T) {
	c := bar(time.Time{}, 100, 106, 98, 104, 1000)

	assert.Equal(t, 4.0, c.Body())
	assert.Equal(t, 8.0, c.Range())
	assert.True(t, c.Bullish())
	assert.Equal(t, 2.0, c.UpperWick())
	assert.Equal(t, 2.0, c.LowerWick())

	down := bar(time.Time{}, 104, 106, 98, 100, 1000)
	assert.False(t, down.Bullish())
	assert.Equal(t, 4.0, down.Body())
	assert.Equal(t, 2.0, down.UpperWick())
	assert.Equal(t, 2.0, down.LowerWick())
}

func TestSeries_Aggregates(t *testing.T) {
	base := time.Date(2024, 3, 15, 9, 15, 0, 0, time.UTC)
	s := Series{
		bar(base, 100, 102, 99, 101, 10),
		bar(base.Add(5*time.Minute), 101, 105, 100, 104, 20),
		bar(base.Add(10*time.Minute), 104, 104, 97, 98, 30),
	}

	assert.Equal(t, []float64{101, 104, 98}, s.Closes())
	assert.Equal(t, []float64{10, 20, 30}, s.Volumes())
	assert.Equal(t, 105.0, s.HighestHigh())
	assert.Equal(t, 97.0, s.LowestLow())
	assert.Equal(t, 60.0, s.TotalVolume())
	assert.Equal(t, 20.0, s.MeanVolume())

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, 98.0, last.Close)

	_, ok = Series{}.Last()
	assert.False(t, ok)
	assert.Equal(t, 0.0, Series{}.MeanVolume())
}

func TestSeries_BetweenAndTail(t *testing.T) {
	base := time.Date(2024, 3, 15, 9, 15, 0, 0, time.UTC)
	s := Series{}
	for i := 0; i < 5; i++ {
		s = append(s, bar(base.Add(time.Duration(i)*5*time.Minute), 100, 101, 99, 100, 1))
	}

	window := s.Between(base.Add(5*time.Minute), base.Add(15*time.Minute))
	require.Len(t, window, 3)
	assert.Equal(t, base.Add(5*time.Minute), window[0].Timestamp)

	assert.Len(t, s.Tail(2), 2)
	assert.Len(t, s.Tail(10), 5)
}

func TestValidate_FlagsMalformedBars(t *testing.T) {
	base := time.Date(2024, 3, 15, 9, 15, 0, 0, time.UTC)
	s := Series{
		bar(base, 100, 102, 99, 101, 10),
		bar(base.Add(5*time.Minute), 100, 99, 101, 100, 10),  // high < low
		bar(base.Add(10*time.Minute), 100, 101, 99, 100, -5), // negative volume
		bar(base.Add(10*time.Minute), 100, 101, 99, 100, 10), // duplicate timestamp
	}

	issues := Validate(s)
	require.NotEmpty(t, issues)

	indices := map[int]bool{}
	for _, issue := range issues {
		indices[issue.Index] = true
	}
	assert.True(t, indices[1])
	assert.True(t, indices[2])
	assert.True(t, indices[3])
	assert.False(t, indices[0])

	assert.Empty(t, Validate(Series{bar(base, 100, 102, 99, 101, 10)}))
}

func TestGaps_ReportsHoles(t *testing.T) {
	base := time.Date(2024, 3, 15, 9, 15, 0, 0, time.UTC)
	s := Series{
		bar(base, 100, 101, 99, 100, 1),
		bar(base.Add(5*time.Minute), 100, 101, 99, 100, 1),
		bar(base.Add(25*time.Minute), 100, 101, 99, 100, 1), // 20 minute hole
		bar(base.Add(30*time.Minute), 100, 101, 99, 100, 1),
	}

	gaps := Gaps(s, 5*time.Minute)
	require.Len(t, gaps, 1)
	assert.Equal(t, base.Add(5*time.Minute), gaps[0].Start)
	assert.Equal(t, 20*time.Minute, gaps[0].Duration)

	// 50% tolerance: a 7-minute spacing on a 5-minute series is not a gap.
	tolerant := Series{
		bar(base, 100, 101, 99, 100, 1),
		bar(base.Add(7*time.Minute), 100, 101, 99, 100, 1),
	}
	assert.Empty(t, Gaps(tolerant, 5*time.Minute))
}
