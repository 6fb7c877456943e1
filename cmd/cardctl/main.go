package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/cardscan/internal/app"
	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/entity"
	"github.com/joseph-ayodele/cardscan/internal/export"
	"github.com/joseph-ayodele/cardscan/internal/extract"
	"github.com/joseph-ayodele/cardscan/internal/ingest"
	"github.com/joseph-ayodele/cardscan/internal/repository"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads .env, the environment and the optional --config file.
func loadConfig(cmd *cobra.Command) (*common.Config, error) {
	_ = godotenv.Load()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := os.Setenv("CONFIG_FILE", path); err != nil {
			return nil, err
		}
	}
	cfg, err := common.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if inmem, _ := cmd.Flags().GetBool("inmem"); inmem {
		cfg.Database.Driver = "sqlite"
		cfg.Database.DSN = ":memory:"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp builds the wired application. The caller must defer a.Close().
func newApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := common.NewLogger(cfg.Log, os.Stderr)
	a, err := app.Build(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func eventFromFlags(cmd *cobra.Command) *entity.EventInfo {
	var ev entity.EventInfo
	ev.Name, _ = cmd.Flags().GetString("event-name")
	ev.Description, _ = cmd.Flags().GetString("event-description")
	ev.Host, _ = cmd.Flags().GetString("event-host")
	ev.Date, _ = cmd.Flags().GetString("event-date")
	ev.Location, _ = cmd.Flags().GetString("event-location")
	if ev == (entity.EventInfo{}) {
		return nil
	}
	return &ev
}

func printBatch(cmd *cobra.Command, res *ingest.BatchResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "batch %s: %d file(s), %d persisted, %d rejected, %d skipped\n",
		res.BatchID, res.Total, res.Persisted, res.Rejected, res.Skipped)
	for _, c := range res.Records {
		fmt.Fprintf(out, "  + [%d] %s %s %s\n", c.ID, c.Name, c.Company, c.Flag)
	}
	for _, e := range res.Errors {
		fmt.Fprintf(out, "  ! %s\n", e.Error())
	}
	if res.Skipped > 0 {
		fmt.Fprintf(out, "  skipped: %s\n", res.SkippedSummary())
	}
}

var rootCmd = &cobra.Command{
	Use:           "cardctl",
	Short:         "Business card ingestion and export",
	SilenceUsage:  true,
	SilenceErrors: false,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <dir>",
	Short: "Ingest every card image under a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		skipHidden, _ := cmd.Flags().GetBool("skip-hidden")
		items, stats, err := ingest.CollectDir(args[0], skipHidden)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "scanned %d file(s), %d unreadable\n", stats.Scanned, stats.Failed)
		if len(items) == 0 {
			return fmt.Errorf("no files found under %s", args[0])
		}
		res := a.Pipeline.Run(cmd.Context(), items, eventFromFlags(cmd))
		printBatch(cmd, res)
		return nil
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Print the fields extracted from one image without storing them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := common.NewLogger(cfg.Log, os.Stderr)
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		ex, closeFn, err := extract.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer closeFn()

		fields := ex.Extract(cmd.Context(), data)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(fields)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write an XLSX export",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		labelIDs, _ := cmd.Flags().GetStringSlice("labels")
		unlabeled, _ := cmd.Flags().GetBool("unlabeled")
		countries, _ := cmd.Flags().GetStringSlice("countries")
		analytics, _ := cmd.Flags().GetBool("analytics")
		outDir, _ := cmd.Flags().GetString("out")

		ctx := cmd.Context()
		var rep *export.Report
		switch {
		case analytics:
			rep, err = a.Exports.Analytics(ctx)
		case len(labelIDs) > 0 || unlabeled:
			rep, err = a.Exports.ByLabels(ctx, export.LabelFilter{IDs: labelIDs, IncludeUnlabeled: unlabeled})
		case len(countries) > 0:
			rep, err = a.Exports.ByCountries(ctx, export.CountryFilter{Codes: countries})
		default:
			rep, err = a.Exports.ExportAll(ctx)
		}
		if err != nil {
			return err
		}

		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return err
		}
		path := filepath.Join(outDir, rep.Filename)
		if err := os.WriteFile(path, rep.Data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d row(s) to %s\n", rep.Rows, path)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>...",
	Short: "Ingest card images as they appear",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		initial, _ := cmd.Flags().GetBool("initial-scan")
		debounce, _ := cmd.Flags().GetDuration("debounce")
		cfg := ingest.WatchConfig{Roots: args, InitialScan: initial, Debounce: debounce, Workers: a.Config.Ingest.Workers}
		fmt.Fprintf(cmd.OutOrStdout(), "watching %s\n", strings.Join(args, ", "))

		var mu sync.Mutex
		return ingest.Watch(ctx, a.Pipeline, cfg, eventFromFlags(cmd), func(res *ingest.BatchResult) {
			mu.Lock()
			defer mu.Unlock()
			printBatch(cmd, res)
		}, nil)
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Resolve missing countries and recount labels",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Cards.BackfillCountries(cmd.Context())
		if err != nil {
			return err
		}
		fixed, err := a.Labels.ReconcileCounts(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "countries updated: %d, label counts corrected: %d\n", n, fixed)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the store schema",
}

func openStore(cmd *cobra.Command) (*repository.DB, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := common.NewLogger(cfg.Log, os.Stderr)
	db, err := repository.Open(cmd.Context(), repository.ConfigFrom(cfg.Database), logger)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { repository.Close(db, logger) }, nil
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, done, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer done()
		if err := repository.MigrateUp(db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, done, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer done()
		version, latest, dirty, err := repository.MigrationStatus(db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version %d of %d (dirty=%t)\n", version, latest, dirty)
		return nil
	},
}

func addEventFlags(cmd *cobra.Command) {
	cmd.Flags().String("event-name", "", "Event the cards were collected at")
	cmd.Flags().String("event-description", "", "Event description")
	cmd.Flags().String("event-host", "", "Event host")
	cmd.Flags().String("event-date", "", "Event date")
	cmd.Flags().String("event-location", "", "Event location")
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a TOML config file")
	rootCmd.PersistentFlags().Bool("inmem", false, "Use a throwaway in-memory SQLite store")

	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().Bool("skip-hidden", true, "Skip dot files and dot directories")
	addEventFlags(ingestCmd)

	rootCmd.AddCommand(extractCmd)

	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringSlice("labels", nil, "Label ids to export")
	exportCmd.Flags().Bool("unlabeled", false, "Include cards without a label")
	exportCmd.Flags().StringSlice("countries", nil, "Country codes to export")
	exportCmd.Flags().Bool("analytics", false, "Write the analytics workbook")
	exportCmd.Flags().StringP("out", "o", ".", "Output directory")

	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Bool("initial-scan", false, "Ingest files already present")
	watchCmd.Flags().Duration("debounce", 500*time.Millisecond, "Coalesce bursts of writes")
	addEventFlags(watchCmd)

	rootCmd.AddCommand(backfillCmd)

	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}
