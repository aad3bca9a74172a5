package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/grantley-gardens/tribunal-cli/internal/merge"
	"github.com/grantley-gardens/tribunal-cli/internal/model"
	"github.com/grantley-gardens/tribunal-cli/internal/store"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge source datasets into one file",
	Long:  "Combines the GOV.UK and Wales datasets into a single deduplicated snapshot, sorted for reproducible output.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runLogged(cmd.Context(), "merge", func(ctx context.Context, _ store.RunStore) (*model.RunReport, error) {
			started := time.Now()

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

			result := merge.Merge(snapshots...)
			for _, key := range result.Collisions {
				out.Printf("  duplicate: %s\n", key)
			}

			merged := store.NewRecordStore()
			merged.ReplaceAll(result.Decisions)
			cp := store.NewCheckpoint(mergedPath())
			if err := cp.Save(merged, "merged"); err != nil {
				return nil, err
			}

			zap.L().Info("datasets merged",
				zap.Int("decisions", len(result.Decisions)),
				zap.Int("collisions", len(result.Collisions)),
				zap.String("output", mergedPath()),
			)
			return &model.RunReport{
				Total:       len(result.Decisions),
				Processed:   len(result.Decisions),
				Collisions:  len(result.Collisions),
				ElapsedSecs: time.Since(started).Seconds(),
			}, nil
		})
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
