package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/grantley-gardens/tribunal-cli/internal/enrich"
	"github.com/grantley-gardens/tribunal-cli/internal/govuk"
	"github.com/grantley-gardens/tribunal-cli/internal/model"
	"github.com/grantley-gardens/tribunal-cli/internal/store"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fetch full text for pending GOV.UK decisions",
	Long:  "Runs the concurrent enrichment pool over pending records, filling full text and attachments from the content API. Resumable: interrupt it and run again to continue where it stopped.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		enrichCfg := cfg.Enrich
		if force, _ := cmd.Flags().GetBool("force"); force {
			enrichCfg.Force = true
		}
		if workers, _ := cmd.Flags().GetInt("concurrency"); workers > 0 {
			enrichCfg.Concurrency = workers
		}

		return runLogged(cmd.Context(), "enrich", func(ctx context.Context, _ store.RunStore) (*model.RunReport, error) {
			recs, cp, err := openDataset(model.SourceGovUK)
			if err != nil {
				return nil, err
			}
			if recs.Len() == 0 {
				zap.L().Warn("no records to enrich; run 'scrape' first")
				return &model.RunReport{}, nil
			}

			client := govuk.NewClient(cfg.GovUK)
			runner := enrich.NewRunner(recs, cp, client, enrichCfg)
			return runner.Run(ctx)
		})
	},
}

func init() {
	enrichCmd.Flags().Bool("force", false, "re-fetch records that already have full text")
	enrichCmd.Flags().Int("concurrency", 0, "override worker count")
	rootCmd.AddCommand(enrichCmd)
}
