package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/grantley-gardens/tribunal-cli/internal/merge"
	"github.com/grantley-gardens/tribunal-cli/internal/model"
	"github.com/grantley-gardens/tribunal-cli/internal/sitedata"
	"github.com/grantley-gardens/tribunal-cli/internal/store"
)

var sitedataCmd = &cobra.Command{
	Use:   "sitedata",
	Short: "Build the slim JSON payload for the static site",
	Long:  "Strips full text and pipeline bookkeeping from the merged dataset, computes aggregate stats, and builds the client-side keyword index.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = filepath.Join("docs", "data", "decisions.json")
		}

		return runLogged(cmd.Context(), "sitedata", func(ctx context.Context, _ store.RunStore) (*model.RunReport, error) {
			started := time.Now()

			decisions, err := loadMerged()
			if err != nil {
				return nil, err
			}

			data := sitedata.Build(decisions)
			if err := sitedata.WriteFile(output, data); err != nil {
				return nil, err
			}

			zap.L().Info("site data written",
				zap.String("output", output),
				zap.Int("decisions", len(data.Decisions)),
			)
			return &model.RunReport{
				Total:         len(decisions),
				Processed:     len(data.Decisions),
				FieldCoverage: data.Stats.FieldCoverage,
				ElapsedSecs:   time.Since(started).Seconds(),
			}, nil
		})
	},
}

// loadMerged prefers the merged snapshot and falls back to merging the
// per-source datasets in memory.
func loadMerged() ([]*model.Decision, error) {
	cp := store.NewCheckpoint(mergedPath())
	if cp.Exists() {
		recs := store.NewRecordStore()
		if _, err := cp.Load(recs); err != nil {
			return nil, err
		}
		return recs.Snapshot(), nil
	}

	var snapshots [][]*model.Decision
	for _, source := range []model.Source{model.SourceGovUK, model.SourceWales} {
		recs, _, err := openDataset(source)
		if err != nil {
			return nil, err
		}
		if recs.Len() > 0 {
			snapshots = append(snapshots, recs.Snapshot())
		}
	}
	return merge.Merge(snapshots...).Decisions, nil
}

func init() {
	sitedataCmd.Flags().StringP("output", "o", "", "output path (default docs/data/decisions.json)")
	rootCmd.AddCommand(sitedataCmd)
}
