package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/barrioguide/venue-cli/internal/geo"
)

var (
	boundariesCity      string
	boundariesGeoJSON   string
	boundariesShapefile string
	boundariesNameField string
)

var boundariesCmd = &cobra.Command{
	Use:   "boundaries",
	Short: "Manage neighborhood boundary polygons",
}

var boundariesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import neighborhood boundaries from GeoJSON or a shapefile",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if _, err := cfg.City(boundariesCity); err != nil {
			return err
		}

		var (
			set *geo.BoundarySet
			err error
		)
		switch {
		case boundariesGeoJSON != "" && boundariesShapefile != "":
			return eris.New("pass either --geojson or --shapefile, not both")
		case boundariesGeoJSON != "":
			set, err = geo.LoadGeoJSON(boundariesGeoJSON)
		case boundariesShapefile != "":
			set, err = geo.LoadShapefile(boundariesShapefile, boundariesNameField)
		default:
			return eris.New("one of --geojson or --shapefile is required")
		}
		if err != nil {
			return eris.Wrap(err, "load boundaries")
		}
		if set.Len() == 0 {
			return eris.New("no usable polygon features in input")
		}

		rows, err := set.Export()
		if err != nil {
			return eris.Wrap(err, "encode boundaries")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.SaveBoundaries(ctx, boundariesCity, rows); err != nil {
			return eris.Wrap(err, "save boundaries")
		}

		zap.L().Info("boundaries imported",
			zap.String("city", boundariesCity),
			zap.Int("features", set.Len()),
		)
		return nil
	},
}

var boundariesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored boundary names for a city",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		rows, err := st.LoadBoundaries(ctx, boundariesCity)
		if err != nil {
			return eris.Wrap(err, "load boundaries")
		}
		for _, row := range rows {
			fmt.Fprintln(cmd.OutOrStdout(), row.Name)
		}
		return nil
	},
}

func init() {
	boundariesImportCmd.Flags().StringVar(&boundariesGeoJSON, "geojson", "", "GeoJSON FeatureCollection file")
	boundariesImportCmd.Flags().StringVar(&boundariesShapefile, "shapefile", "", "ESRI shapefile (.shp)")
	boundariesImportCmd.Flags().StringVar(&boundariesNameField, "name-field", "name", "attribute field holding the neighborhood name (shapefile only)")

	boundariesCmd.PersistentFlags().StringVar(&boundariesCity, "city", "", "city identifier from config (required)")
	_ = boundariesCmd.MarkPersistentFlagRequired("city")

	boundariesCmd.AddCommand(boundariesImportCmd)
	boundariesCmd.AddCommand(boundariesListCmd)
	rootCmd.AddCommand(boundariesCmd)
}
