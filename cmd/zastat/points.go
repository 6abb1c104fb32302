package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"zastat/internal/category"
	"zastat/internal/masspoint"
	"zastat/internal/samples"
)

var (
	pointsTHDM  string
	pointsEra   string
	pointsInput string
)

var pointsCmd = &cobra.Command{
	Use:   "points",
	Short: "List the signal mass points per production and region",
	Long: `List the grid mass points of every production and region. With --input
only points that have a shape file in the directory are listed, and points
simulated in gg fusion but not in b-associated production are reported.

Examples:
  zastat points --thdm HToZA
  zastat points --thdm AToZH --input results/ --era 2017`,
	RunE: runPoints,
}

func init() {
	pointsCmd.Flags().StringVar(&pointsTHDM, "thdm", "HToZA", "HToZA or AToZH")
	pointsCmd.Flags().StringVar(&pointsEra, "era", "", "Only files of this era (2016, 2017, 2018)")
	pointsCmd.Flags().StringVar(&pointsInput, "input", "", "Directory of signal shape files")
	rootCmd.AddCommand(pointsCmd)
}

func runPoints(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	grid, err := masspoint.LoadGrid(cfg.Combine.SignalGrid)
	if err != nil {
		return err
	}
	var files []string
	if pointsInput != "" {
		if files, err = samples.Discover(pointsInput, "**/*.root"); err != nil {
			return err
		}
	}

	eraTag := cfg.EraTag(pointsEra)
	byProd := make(map[category.Production][]masspoint.MassPoint)
	for _, prod := range category.SingleProductions {
		for _, reg := range category.LeafRegions {
			var pts []masspoint.MassPoint
			if len(files) > 0 {
				pts = grid.Available(files, pointsTHDM, string(prod), string(reg), eraTag)
			} else {
				pts = grid.Points(string(prod), string(reg), pointsTHDM)
			}
			byProd[prod] = append(byProd[prod], pts...)
			fmt.Printf("%s %s %s (%d): %s\n", pointsTHDM, prod, reg, len(pts), joinPoints(pts))
		}
	}

	if len(files) > 0 {
		gg := masspoint.NewSkipSet(byProd[category.GGFusion]...).Points()
		bb := masspoint.NewSkipSet(byProd[category.BBAssociated]...).Points()
		if missing := masspoint.NotInBoth(gg, bb); len(missing) > 0 {
			fmt.Printf("not in %s: %s\n", category.BBAssociated, joinPoints(missing))
		}
	}
	return nil
}

func joinPoints(pts []masspoint.MassPoint) string {
	s := make([]string, len(pts))
	for i, p := range pts {
		s[i] = p.String()
	}
	return strings.Join(s, " ")
}
