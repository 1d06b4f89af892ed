package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/intrascan/intrascan/internal/config"
	"github.com/intrascan/intrascan/internal/data"
	"github.com/intrascan/intrascan/internal/domain/candle"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and spot-check the data files",
	Long: `Load and validate the configuration, then spot-check each universe
symbol's daily series for malformed bars.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	log.Info().Str("config", flagConfig).Int("stocks", len(cfg.Universe.Stocks)).
		Int("indices", len(cfg.Universe.Indices)).Msg("configuration valid")

	loader := data.NewLoader(cfg.Data, cfg.Location())
	symbols := append(append([]string{}, cfg.Universe.Stocks...), cfg.Universe.Indices...)

	missing, malformed := 0, 0
	for _, symbol := range symbols {
		series, err := loader.DailyBars(symbol, cfg.IndexTrend.LookbackDays)
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("daily series unreadable")
			malformed++
			continue
		}
		if len(series) == 0 {
			log.Warn().Str("symbol", symbol).Msg("no daily data")
			missing++
			continue
		}
		if issues := candle.Validate(series); len(issues) > 0 {
			malformed++
			for _, issue := range issues {
				log.Warn().Str("symbol", symbol).Int("index", issue.Index).
					Str("detail", issue.Detail).Msg("malformed bar")
			}
		}
	}

	fmt.Printf("Checked %d symbols: %d missing data, %d with issues\n", len(symbols), missing, malformed)
	if malformed > 0 {
		return fmt.Errorf("%d symbols have malformed data", malformed)
	}
	return nil
}
