package candle

import (
	"fmt"
	"time"
)

// Issue describes one integrity violation found in a series.
type Issue struct {
	Index  int    `json:"index"`
	Detail string `json:"detail"`
}

// Validate checks OHLC relationships, volume sign and timestamp ordering.
// It returns every violation found; an empty slice means the series is clean.
func Validate(s Series) []Issue {
	var issues []Issue
	for i, c := range s {
		if c.High < c.Low {
			issues = append(issues, Issue{i, fmt.Sprintf("high %.2f below low %.2f", c.High, c.Low)})
		}
		if c.High < c.Open {
			issues = append(issues, Issue{i, fmt.Sprintf("high %.2f below open %.2f", c.High, c.Open)})
		}
		if c.High < c.Close {
			issues = append(issues, Issue{i, fmt.Sprintf("high %.2f below close %.2f", c.High, c.Close)})
		}
		if c.Low > c.Open {
			issues = append(issues, Issue{i, fmt.Sprintf("low %.2f above open %.2f", c.Low, c.Open)})
		}
		if c.Low > c.Close {
			issues = append(issues, Issue{i, fmt.Sprintf("low %.2f above close %.2f", c.Low, c.Close)})
		}
		if c.Volume < 0 {
			issues = append(issues, Issue{i, fmt.Sprintf("negative volume %.0f", c.Volume)})
		}
		if i > 0 && !s[i-1].Timestamp.Before(c.Timestamp) {
			issues = append(issues, Issue{i, "timestamp not after previous bar"})
		}
	}
	return issues
}

// Gap marks a hole in a fixed-interval series.
type Gap struct {
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"duration"`
}

// Gaps reports spans between consecutive bars exceeding the expected
// interval by more than 50%.
func Gaps(s Series, expected time.Duration) []Gap {
	var gaps []Gap
	for i := 1; i < len(s); i++ {
		delta := s[i].Timestamp.Sub(s[i-1].Timestamp)
		if delta > expected+expected/2 {
			gaps = append(gaps, Gap{Start: s[i-1].Timestamp, End: s[i].Timestamp, Duration: delta})
		}
	}
	return gaps
}
