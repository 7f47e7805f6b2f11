package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/barrioguide/venue-cli/internal/tile"
)

var tilesCity string

var tilesCmd = &cobra.Command{
	Use:   "tiles",
	Short: "Print the search grid for a city",
	Long:  "Prints the tile lattice the sync command would scan, for inspecting coverage before spending API calls.",
	RunE: func(cmd *cobra.Command, args []string) error {
		city, err := cfg.City(tilesCity)
		if err != nil {
			return err
		}

		tiles := tile.Grid(city.CenterLat, city.CenterLng, city.RadiusKM, city.GridRows, city.GridCols)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tiles)
	},
}

func init() {
	tilesCmd.Flags().StringVar(&tilesCity, "city", "", "city identifier from config (required)")
	_ = tilesCmd.MarkFlagRequired("city")
	rootCmd.AddCommand(tilesCmd)
}
