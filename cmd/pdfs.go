package main

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/grantley-gardens/tribunal-cli/internal/config"
	"github.com/grantley-gardens/tribunal-cli/internal/fallback"
	"github.com/grantley-gardens/tribunal-cli/internal/govuk"
	"github.com/grantley-gardens/tribunal-cli/internal/model"
	"github.com/grantley-gardens/tribunal-cli/internal/ocr"
	"github.com/grantley-gardens/tribunal-cli/internal/store"
)

var pdfsCmd = &cobra.Command{
	Use:   "pdfs",
	Short: "Fill missing text from PDF attachments",
	Long:  "Downloads decision PDFs for records the content API left without text and extracts their text. Downloads are recorded in a manifest so interrupted runs reuse prior work.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sample, _ := cmd.Flags().GetInt("sample")
		all, _ := cmd.Flags().GetBool("all")
		sources, err := selectedSources(cmd)
		if err != nil {
			return err
		}

		return runLogged(cmd.Context(), "pdfs", func(ctx context.Context, st store.RunStore) (*model.RunReport, error) {
			extractor, err := ocr.NewExtractor(cfg.OCR)
			if err != nil {
				return nil, err
			}

			// Attachment hosts get the slower PDF pacing, not the API one.
			downloader := govuk.NewClient(config.GovUKConfig{
				BaseURL:      cfg.GovUK.BaseURL,
				UserAgent:    cfg.GovUK.UserAgent,
				Timeout:      cfg.PDF.Timeout,
				MaxRetries:   cfg.GovUK.MaxRetries,
				RetryDelay:   cfg.GovUK.RetryDelay,
				RequestDelay: cfg.PDF.RequestDelay,
			})

			total := &model.RunReport{FailReasons: make(map[string]int)}
			for _, source := range sources {
				recs, cp, err := openDataset(source)
				if err != nil {
					return total, err
				}
				if recs.Len() == 0 {
					zap.L().Info("no dataset for source", zap.String("source", string(source)))
					continue
				}

				runner := fallback.NewRunner(recs, cp, st, downloader, extractor, fallback.Options{
					PDFDir:       filepath.Join(cfg.Data.Dir, "pdfs", string(source)),
					MinTextChars: cfg.OCR.MinTextChars,
					SaveEvery:    cfg.PDF.SaveEvery,
					Sample:       sample,
					All:          all,
				})
				rep, runErr := runner.Run(ctx)
				accumulate(total, rep)
				if runErr != nil {
					return total, runErr
				}
			}
			return total, nil
		})
	},
}

// selectedSources maps the --source flag to dataset sources.
func selectedSources(cmd *cobra.Command) ([]model.Source, error) {
	name, _ := cmd.Flags().GetString("source")
	switch name {
	case "govuk":
		return []model.Source{model.SourceGovUK}, nil
	case "wales":
		return []model.Source{model.SourceWales}, nil
	case "", "all":
		return []model.Source{model.SourceGovUK, model.SourceWales}, nil
	}
	return nil, eris.Errorf("unknown source %q (want govuk, wales, or all)", name)
}

func accumulate(total, rep *model.RunReport) {
	if rep == nil {
		return
	}
	total.Total += rep.Total
	total.Processed += rep.Processed
	total.Enriched += rep.Enriched
	total.FromFallback += rep.FromFallback
	total.Skipped += rep.Skipped
	total.Failed += rep.Failed
	total.OCRRequired += rep.OCRRequired
	total.ElapsedSecs += rep.ElapsedSecs
	for reason, n := range rep.FailReasons {
		total.FailReasons[reason] += n
	}
}

func init() {
	pdfsCmd.Flags().Int("sample", 0, "only process N records (for testing)")
	pdfsCmd.Flags().Bool("all", false, "process every record with attachments, not just those missing text")
	pdfsCmd.Flags().String("source", "all", "dataset to process: govuk, wales, or all")
	rootCmd.AddCommand(pdfsCmd)
}
