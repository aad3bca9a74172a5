package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/grantley-gardens/tribunal-cli/internal/model"
	"github.com/grantley-gardens/tribunal-cli/internal/store"
	"github.com/grantley-gardens/tribunal-cli/internal/wales"
)

var walesCmd = &cobra.Command{
	Use:   "wales",
	Short: "Discover Wales tribunal decisions",
	Long:  "Scrapes the Residential Property Tribunal Wales list and detail pages. Decision text lives in PDFs; run 'pdfs' afterwards to fetch it.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sample, _ := cmd.Flags().GetInt("sample")

		return runLogged(cmd.Context(), "wales", func(ctx context.Context, _ store.RunStore) (*model.RunReport, error) {
			recs, cp, err := openDataset(model.SourceWales)
			if err != nil {
				return nil, err
			}

			scraper := wales.NewScraper(cfg.Wales)
			rep, runErr := scraper.Run(ctx, recs, wales.Options{Sample: sample})

			if saveErr := cp.Save(recs, string(model.SourceWales)); saveErr != nil {
				zap.L().Error("snapshot save failed", zap.Error(saveErr))
				if runErr == nil {
					runErr = saveErr
				}
			}
			return rep, runErr
		})
	},
}

func init() {
	walesCmd.Flags().Int("sample", 0, "only fetch detail pages for N decisions (for testing)")
	rootCmd.AddCommand(walesCmd)
}
