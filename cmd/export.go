package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/barrioguide/venue-cli/internal/venue"
)

var (
	exportCity string
	exportOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a city's venue catalog to an xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if _, err := cfg.City(exportCity); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		venues, err := st.ListByCity(ctx, exportCity)
		if err != nil {
			return eris.Wrap(err, "list venues")
		}

		file := xlsx.NewFile()
		sheet, err := file.AddSheet("Venues")
		if err != nil {
			return eris.Wrap(err, "add sheet")
		}

		header := sheet.AddRow()
		for _, h := range []string{
			"Name", "Neighborhood", "Rating", "Reviews", "Score", "Tier",
			"Verified", "Address", "Phone", "Website", "Price", "Categories",
		} {
			header.AddCell().SetString(h)
		}

		for _, v := range venues {
			writeVenueRow(sheet.AddRow(), v)
		}

		if err := file.Save(exportOut); err != nil {
			return eris.Wrap(err, "write workbook")
		}

		zap.L().Info("export complete",
			zap.String("city", exportCity),
			zap.String("file", exportOut),
			zap.Int("venues", len(venues)),
		)
		return nil
	},
}

func writeVenueRow(row *xlsx.Row, v venue.Venue) {
	row.AddCell().SetString(v.Name)
	row.AddCell().SetString(v.Neighborhood)
	row.AddCell().SetFloat(v.Rating)

	if v.RatingCount != nil {
		row.AddCell().SetInt(*v.RatingCount)
	} else {
		row.AddCell().SetString("")
	}
	if v.QualityScore != nil {
		row.AddCell().SetInt(*v.QualityScore)
	} else {
		row.AddCell().SetString("")
	}
	row.AddCell().SetString(string(v.Tier))

	if v.HasSecondaryData {
		row.AddCell().SetString("yes")
	} else {
		row.AddCell().SetString("no")
	}
	row.AddCell().SetString(deref(v.Address))
	row.AddCell().SetString(deref(v.Phone))
	row.AddCell().SetString(deref(v.Website))
	if v.PriceTier != nil {
		row.AddCell().SetString(strings.Repeat("$", *v.PriceTier))
	} else {
		row.AddCell().SetString("")
	}
	row.AddCell().SetString(strings.Join(append(append([]string{}, v.PrimaryCategories...), v.SecondaryCategories...), ", "))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func init() {
	exportCmd.Flags().StringVar(&exportCity, "city", "", "city identifier from config (required)")
	exportCmd.Flags().StringVar(&exportOut, "out", "venues.xlsx", "output file path")
	_ = exportCmd.MarkFlagRequired("city")
	rootCmd.AddCommand(exportCmd)
}
