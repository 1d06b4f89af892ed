// Package data implements the market-data collaborator over local CSV
// files: minute bars, daily bars, previous-close lookup and a news/event
// calendar. Missing files and symbols yield empty results, never errors;
// the funnel treats absent data as a per-symbol skip, not a failure.
package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/intrascan/intrascan/internal/config"
	"github.com/intrascan/intrascan/internal/domain/candle"
)

const (
	minuteTimeLayout = "2006-01-02 15:04:05"
	dailyTimeLayout  = "2006-01-02"
)

// Loader reads OHLCV series from per-symbol CSV files laid out as
// <dir>/<SYMBOL>_minute.csv and <dir>/<SYMBOL>_daily.csv.
type Loader struct {
	minuteDir string
	dailyDir  string
	newsFile  string
	loc       *time.Location
}

// NewLoader builds a loader for the configured data directories.
func NewLoader(cfg config.DataConfig, loc *time.Location) *Loader {
	return &Loader{
		minuteDir: cfg.MinuteDir,
		dailyDir:  cfg.DailyDir,
		newsFile:  cfg.NewsFile,
		loc:       loc,
	}
}

// MinuteBars loads the minute series for a symbol restricted to
// [from, to]. A missing file returns an empty series and nil error.
func (l *Loader) MinuteBars(symbol string, from, to time.Time) (candle.Series, error) {
	path := filepath.Join(l.minuteDir, symbol+"_minute.csv")
	series, err := l.readSeries(path, minuteTimeLayout)
	if err != nil {
		return nil, fmt.Errorf("minute bars %s: %w", symbol, err)
	}
	return series.Between(from, to), nil
}

// DailyBars loads the last lookbackDays daily bars for a symbol.
func (l *Loader) DailyBars(symbol string, lookbackDays int) (candle.Series, error) {
	path := filepath.Join(l.dailyDir, symbol+"_daily.csv")
	series, err := l.readSeries(path, dailyTimeLayout)
	if err != nil {
		return nil, fmt.Errorf("daily bars %s: %w", symbol, err)
	}
	return series.Tail(lookbackDays), nil
}

// PreviousClose returns the last daily close strictly before date.
func (l *Loader) PreviousClose(symbol string, date time.Time) (float64, bool) {
	series, err := l.DailyBars(symbol, 10)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("previous close lookup failed")
		return 0, false
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, l.loc)
	for i := len(series) - 1; i >= 0; i-- {
		if series[i].Timestamp.Before(day) {
			return series[i].Close, true
		}
	}
	return 0, false
}

// News returns the event type and description for a symbol on a date, if
// the news calendar has an entry. No calendar file means no news.
func (l *Loader) News(symbol string, date time.Time) (eventType, description string, ok bool) {
	if l.newsFile == "" {
		return "", "", false
	}
	events, err := l.readNews()
	if err != nil {
		log.Warn().Err(err).Msg("news calendar unreadable")
		return "", "", false
	}
	y, m, d := date.Date()
	for _, ev := range events {
		ey, em, ed := ev.Date.Date()
		if ev.Symbol == symbol && ey == y && em == m && ed == d {
			return ev.EventType, ev.Description, true
		}
	}
	return "", "", false
}

type newsEvent struct {
	Date        time.Time
	Symbol      string
	EventType   string
	Description string
}

// readNews parses the news calendar: date,symbol,event_type,description.
func (l *Loader) readNews() ([]newsEvent, error) {
	f, err := os.Open(l.newsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var events []newsEvent
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			if len(rec) > 0 && rec[0] == "date" {
				continue
			}
		}
		if len(rec) < 3 {
			continue
		}
		ts, err := time.ParseInLocation(dailyTimeLayout, rec[0], l.loc)
		if err != nil {
			continue
		}
		ev := newsEvent{Date: ts, Symbol: rec[1], EventType: rec[2]}
		if len(rec) > 3 {
			ev.Description = rec[3]
		}
		events = append(events, ev)
	}
	return events, nil
}

// readSeries parses a timestamp,open,high,low,close,volume CSV into an
// ordered series. A missing file is an empty series, not an error.
func (l *Loader) readSeries(path, layout string) (candle.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("path", path).Msg("data file not found")
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var series candle.Series
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if first {
			first = false
			if len(rec) > 0 && (rec[0] == "timestamp" || rec[0] == "date") {
				continue
			}
		}
		if len(rec) < 6 {
			return nil, fmt.Errorf("parse %s: want 6 columns, got %d", path, len(rec))
		}
		c, err := parseCandle(rec, layout, l.loc)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		series = append(series, c)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Timestamp.Before(series[j].Timestamp) })
	return series, nil
}

func parseCandle(rec []string, layout string, loc *time.Location) (candle.Candle, error) {
	ts, err := time.ParseInLocation(layout, rec[0], loc)
	if err != nil {
		return candle.Candle{}, fmt.Errorf("timestamp %q: %w", rec[0], err)
	}
	fields := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(rec[i+1], 64)
		if err != nil {
			return candle.Candle{}, fmt.Errorf("column %d %q: %w", i+1, rec[i+1], err)
		}
		fields[i] = v
	}
	return candle.Candle{
		Timestamp: ts,
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}, nil
}
