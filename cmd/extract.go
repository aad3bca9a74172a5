package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/grantley-gardens/tribunal-cli/internal/extract"
	"github.com/grantley-gardens/tribunal-cli/internal/model"
	"github.com/grantley-gardens/tribunal-cli/internal/store"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract structured fields from decision text",
	Long:  "Parses parties, tribunal members, outcomes, amounts, dates, and cited acts out of each decision's full text, and repairs region codes and decision date typos along the way.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		overwrite, _ := cmd.Flags().GetBool("overwrite")
		sources, err := selectedSources(cmd)
		if err != nil {
			return err
		}

		return runLogged(cmd.Context(), "extract", func(ctx context.Context, _ store.RunStore) (*model.RunReport, error) {
			total := &model.RunReport{
				FailReasons:   make(map[string]int),
				FieldCoverage: make(map[string]int),
			}
			for _, source := range sources {
				if err := ctx.Err(); err != nil {
					return total, err
				}
				recs, cp, err := openDataset(source)
				if err != nil {
					return total, err
				}
				if recs.Len() == 0 {
					continue
				}

				rep := extract.Run(recs, extract.Options{
					MinTextChars: cfg.OCR.MinTextChars,
					Overwrite:    overwrite,
				})
				accumulate(total, rep)
				for field, n := range rep.FieldCoverage {
					total.FieldCoverage[field] += n
				}

				if err := cp.Save(recs, string(source)); err != nil {
					return total, err
				}
				zap.L().Info("dataset extracted",
					zap.String("source", string(source)),
					zap.Int("records", rep.Total),
				)
			}
			return total, nil
		})
	},
}

func init() {
	extractCmd.Flags().Bool("overwrite", false, "re-extract fields that already have values")
	extractCmd.Flags().String("source", "all", "dataset to process: govuk, wales, or all")
	rootCmd.AddCommand(extractCmd)
}
