package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/grantley-gardens/tribunal-cli/internal/govuk"
	"github.com/grantley-gardens/tribunal-cli/internal/model"
	"github.com/grantley-gardens/tribunal-cli/internal/store"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Discover GOV.UK tribunal decisions",
	Long:  "Pages through the GOV.UK search API and seeds the dataset with pending decision records. Existing records keep any text they already carry.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sample, _ := cmd.Flags().GetInt("sample")

		return runLogged(cmd.Context(), "scrape", func(ctx context.Context, _ store.RunStore) (*model.RunReport, error) {
			started := time.Now()

			recs, cp, err := openDataset(model.SourceGovUK)
			if err != nil {
				return nil, err
			}

			client := govuk.NewClient(cfg.GovUK)
			added := 0
			seen, err := client.SearchAll(ctx, cfg.GovUK.BatchSize, func(d *model.Decision) {
				if sample > 0 && added >= sample {
					return
				}
				if recs.Upsert(d) {
					added++
				}
			})

			rep := &model.RunReport{
				Total:       recs.Len(),
				Processed:   seen,
				Skipped:     seen - added,
				ElapsedSecs: time.Since(started).Seconds(),
			}

			if saveErr := cp.Save(recs, string(model.SourceGovUK)); saveErr != nil {
				zap.L().Error("snapshot save failed", zap.Error(saveErr))
				if err == nil {
					err = saveErr
				}
			}
			if err != nil {
				return rep, err
			}

			if dupes := recs.Collisions(); len(dupes) > 0 {
				zap.L().Warn("duplicate identifiers in listing", zap.Int("count", len(dupes)))
			}
			zap.L().Info("scrape complete",
				zap.Int("listed", seen),
				zap.Int("new", added),
				zap.Int("dataset", recs.Len()),
			)
			return rep, nil
		})
	},
}

func init() {
	scrapeCmd.Flags().Int("sample", 0, "stop after discovering N new decisions (for testing)")
	rootCmd.AddCommand(scrapeCmd)
}
