package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/grantley-gardens/tribunal-cli/internal/export"
	"github.com/grantley-gardens/tribunal-cli/internal/model"
	"github.com/grantley-gardens/tribunal-cli/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the merged dataset as a spreadsheet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		output, _ := cmd.Flags().GetString("output")

		return runLogged(cmd.Context(), "export", func(ctx context.Context, _ store.RunStore) (*model.RunReport, error) {
			started := time.Now()
			if output == "" {
				output = filepath.Join(cfg.Data.Dir, "tribunal_decisions.xlsx")
			}

			decisions, err := loadMerged()
			if err != nil {
				return nil, err
			}
			if err := export.WriteXLSX(output, decisions); err != nil {
				return nil, err
			}

			return &model.RunReport{
				Total:       len(decisions),
				Processed:   len(decisions),
				ElapsedSecs: time.Since(started).Seconds(),
			}, nil
		})
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "output path (default <data dir>/tribunal_decisions.xlsx)")
	rootCmd.AddCommand(exportCmd)
}
