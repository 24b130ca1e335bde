package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"insider-data/internal/app"
	"insider-data/internal/slogx"
)

var (
	flagStart       string
	flagEnd         string
	flagDaysRange   int
	flagWorkers     int
	flagCIKsFile    string
	flagIncremental bool
	flagSchedule    bool
)

var rootCmd = &cobra.Command{
	Use:           "insider-data",
	Short:         "Ingest insider-trading filings into a partitioned dataset",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run [EID...]",
	Short: "Discover, extract, store and price-enrich ownership filings",
	Long: `Runs every entity once over the date window. Entities come from the
arguments, else from CIKS_FILE (or --ciks-file), else from ciks.txt/.json/.yaml
in the working directory. Flags override the environment.`,
	RunE: runRun,
}

func init() {
	slog.SetDefault(slogx.NewDefault("info"))

	f := runCmd.Flags()
	f.StringVar(&flagStart, "start", "", "window start date (YYYY-MM-DD)")
	f.StringVar(&flagEnd, "end", "", "window end date (YYYY-MM-DD)")
	f.IntVar(&flagDaysRange, "days-range", 0, "window length in days")
	f.IntVar(&flagWorkers, "workers", 0, "entities processed in parallel")
	f.StringVar(&flagCIKsFile, "ciks-file", "", "entity list (.txt, .json or .yaml)")
	f.BoolVar(&flagIncremental, "incremental", false, "resume each entity from its last completed day")
	f.BoolVar(&flagSchedule, "schedule", false, "keep running daily at RUN_HOUR:RUN_MINUTE UTC")
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("insider-data failed", "error", err)
		os.Exit(1)
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := app.LoadConfig()
	applyFlags(cmd, cfg)
	slog.SetDefault(slogx.New(cfg.LogLevel, cfg.LogFile))

	if _, err := cfg.Window(time.Now()); err != nil {
		return err
	}
	eids, err := app.ResolveEntities(args, cfg.EntitiesFile)
	if err != nil {
		return fmt.Errorf("failed to get entities: %w", err)
	}
	slog.Info("got entities", "count", len(eids))

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	a, cleanup, err := InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer cleanup()

	slog.Info("using price provider", "provider", a.Prices.GetName())
	slog.Info("save dir", "dir", cfg.BaseDir(), "seen_backend", cfg.SeenBackend, "export", cfg.ExportFormat)
	slog.Info("parallel mode", "workers", cfg.Workers, "archive_max_rps", cfg.ArchiveMaxRPS, "delay_unit", cfg.DelayUnit)

	app.RunFlow(a.Config, a.Runner, eids)
	return nil
}

func applyFlags(cmd *cobra.Command, cfg *app.Config) {
	f := cmd.Flags()
	if f.Changed("start") {
		cfg.StartDate = flagStart
	}
	if f.Changed("end") {
		cfg.EndDate = flagEnd
	}
	if f.Changed("days-range") {
		cfg.DaysRange = flagDaysRange
	}
	if f.Changed("workers") && flagWorkers > 0 {
		cfg.Workers = flagWorkers
	}
	if f.Changed("ciks-file") {
		cfg.EntitiesFile = flagCIKsFile
	}
	if f.Changed("incremental") {
		cfg.Incremental = flagIncremental
	}
	if f.Changed("schedule") {
		cfg.Schedule = flagSchedule
	}
}
