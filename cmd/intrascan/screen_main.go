package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/intrascan/intrascan/internal/config"
	"github.com/intrascan/intrascan/internal/data"
	"github.com/intrascan/intrascan/internal/risk"
	"github.com/intrascan/intrascan/internal/screener"
	"github.com/intrascan/intrascan/internal/signals"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Run the screening funnel for one trading date",
	Long: `Run the screening funnel for a single trading date.

Examples:
  intrascan screen --date 2024-03-15
  intrascan screen --date 2024-03-15 --mode premarket
  intrascan screen --date 2024-03-15 --mode full --capital 100000`,
	RunE: runScreen,
}

var (
	screenDate    string
	screenMode    = modeValue("full")
	screenCapital float64
	screenOutput  string
)

// modeValue restricts --mode to the funnel depths the command supports.
type modeValue string

var _ pflag.Value = (*modeValue)(nil)

func (m *modeValue) String() string { return string(*m) }
func (m *modeValue) Type() string   { return "mode" }

func (m *modeValue) Set(s string) error {
	switch s {
	case "premarket", "live", "full":
		*m = modeValue(s)
		return nil
	}
	return fmt.Errorf("invalid mode %q: want premarket, live or full", s)
}

func init() {
	rootCmd.AddCommand(screenCmd)

	screenCmd.Flags().StringVar(&screenDate, "date", "", "Trading date, YYYY-MM-DD (default today)")
	screenCmd.Flags().Var(&screenMode, "mode", "Funnel depth: premarket|live|full")
	screenCmd.Flags().Float64Var(&screenCapital, "capital", 100_000, "Account capital for position sizing")
	screenCmd.Flags().StringVar(&screenOutput, "output", "out/screen", "Output directory for run artifacts")
}

// screenArtifact is the JSON document a screen run writes.
type screenArtifact struct {
	RunID     string                    `json:"run_id"`
	Mode      string                    `json:"mode"`
	PreMarket *screener.PreMarketResult `json:"pre_market"`
	Live      *screener.LiveResult      `json:"live,omitempty"`
	Signals   []signals.Signal          `json:"signals,omitempty"`
	Positions []risk.Position           `json:"positions,omitempty"`
}

func runScreen(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	date, err := parseDate(screenDate, cfg)
	if err != nil {
		return err
	}
	loader := data.NewLoader(cfg.Data, cfg.Location())
	artifact := &screenArtifact{Mode: string(screenMode)}

	pre, err := screener.NewPreMarket(cfg, loader).Screen(date)
	if err != nil {
		return fmt.Errorf("pre-market screen: %w", err)
	}
	artifact.PreMarket = pre

	if screenMode != "premarket" {
		live, err := screener.NewLiveFilter(cfg, loader).Filter(pre.Candidates, date)
		if err != nil {
			return fmt.Errorf("live filter: %w", err)
		}
		artifact.Live = live

		if screenMode == "full" {
			sigs := signals.NewGenerator(cfg, nil).Generate(live.Candidates)
			artifact.Signals = sigs
			artifact.Positions = sizeSignals(cfg, sigs, screenCapital)
		}
	}

	path, err := writeArtifact(screenOutput, "screen", artifact, func(id string) { artifact.RunID = id })
	if err != nil {
		return err
	}
	log.Info().Str("artifact", path).Msg("screen run written")
	return nil
}

// sizeSignals converts signals into positions under the session limits,
// stopping at the first admission refusal.
func sizeSignals(cfg *config.Config, sigs []signals.Signal, capital float64) []risk.Position {
	manager := risk.NewManager(cfg.Risk, capital)
	sizer := risk.NewSizer(cfg.Risk)

	var out []risk.Position
	for _, sig := range sigs {
		ok, reason := manager.CanTakeTrade()
		if !ok {
			log.Info().Str("reason", reason).Msg("position admission stopped")
			break
		}
		pos, err := sizer.Size(sig, manager.Capital())
		if err != nil {
			log.Warn().Err(err).Str("symbol", sig.Symbol).Msg("sizing rejected")
			continue
		}
		manager.AddTrade(pos, time.Now())
		out = append(out, pos)
	}
	return out
}

// parseDate resolves the --date flag, defaulting to today in the
// exchange timezone.
func parseDate(s string, cfg *config.Config) (time.Time, error) {
	if s == "" {
		now := time.Now().In(cfg.Location())
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, cfg.Location()), nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, cfg.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}
