package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/barrioguide/venue-cli/internal/scorer"
)

var scoreCity string

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Recompute quality scores and tiers for a city's venues",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if _, err := cfg.City(scoreCity); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		scored, err := scorer.ScoreCity(ctx, st, scoreCity)
		if err != nil {
			return eris.Wrap(err, "score city")
		}

		zap.L().Info("scoring complete", zap.String("city", scoreCity), zap.Int("scored", scored))
		return nil
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreCity, "city", "", "city identifier from config (required)")
	_ = scoreCmd.MarkFlagRequired("city")
	rootCmd.AddCommand(scoreCmd)
}
