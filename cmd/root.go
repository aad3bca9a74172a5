package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/grantley-gardens/tribunal-cli/internal/config"
	"github.com/grantley-gardens/tribunal-cli/internal/model"
	"github.com/grantley-gardens/tribunal-cli/internal/store"
)

var cfg *config.Config

// out formats run reports with thousands separators.
var out = message.NewPrinter(language.BritishEnglish)

var rootCmd = &cobra.Command{
	Use:   "tribunal-cli",
	Short: "Residential property tribunal decision pipeline",
	Long:  "Discovers tribunal decisions from GOV.UK and the Wales tribunal site, enriches them with full text, extracts structured fields, and produces merged datasets.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// initStore opens and migrates the run-log/manifest database.
func initStore(ctx context.Context) (store.RunStore, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// checkpointPath is where a source's decision snapshot lives.
func checkpointPath(source model.Source) string {
	return filepath.Join(cfg.Data.Dir, string(source)+"_decisions.json")
}

func mergedPath() string {
	return filepath.Join(cfg.Data.Dir, "tribunal_decisions_full.json")
}

// openDataset loads a source's snapshot into a fresh record store. A
// missing snapshot yields an empty store; interrupted records come back
// pending.
func openDataset(source model.Source) (*store.RecordStore, *store.Checkpoint, error) {
	cp := store.NewCheckpoint(checkpointPath(source))
	s := store.NewRecordStore()
	if cp.Exists() {
		reset, err := cp.Load(s)
		if err != nil {
			return nil, nil, err
		}
		zap.L().Info("dataset loaded",
			zap.String("source", string(source)),
			zap.Int("records", s.Len()),
			zap.Int("reset_to_pending", reset),
		)
	}
	return s, cp, nil
}

// runLogged records a phase execution in the run log around fn. The phase's
// report lands in the run row; a phase error marks the run failed.
func runLogged(ctx context.Context, phase string, fn func(context.Context, store.RunStore) (*model.RunReport, error)) error {
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	run, err := st.StartRun(ctx, phase)
	if err != nil {
		return err
	}

	rep, err := fn(ctx, st)
	if err != nil {
		// Record the failure with a background context so a cancelled run
		// still gets written.
		if ferr := st.FailRun(context.Background(), run.ID, err.Error()); ferr != nil {
			zap.L().Error("run log update failed", zap.Error(ferr))
		}
		return err
	}

	if err := st.CompleteRun(ctx, run.ID, rep); err != nil {
		zap.L().Error("run log update failed", zap.Error(err))
	}
	printReport(phase, rep)
	return nil
}

func printReport(phase string, rep *model.RunReport) {
	if rep == nil {
		return
	}
	out.Printf("%s complete: %d records", phase, rep.Total)
	out.Printf(" | processed %d", rep.Processed)
	if rep.Enriched > 0 {
		out.Printf(" | enriched %d", rep.Enriched)
	}
	if rep.FromFallback > 0 {
		out.Printf(" | from pdf %d", rep.FromFallback)
	}
	if rep.Skipped > 0 {
		out.Printf(" | skipped %d", rep.Skipped)
	}
	if rep.Collisions > 0 {
		out.Printf(" | duplicates %d", rep.Collisions)
	}
	if rep.Failed > 0 {
		out.Printf(" | failed %d", rep.Failed)
	}
	if rep.OCRRequired > 0 {
		out.Printf(" | ocr required %d", rep.OCRRequired)
	}
	out.Printf(" | %.1fs\n", rep.ElapsedSecs)

	for reason, n := range rep.FailReasons {
		out.Printf("  failure %q: %d\n", reason, n)
	}
}
