package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Roska-x/Ninjutsu/internal/config"
	"github.com/Roska-x/Ninjutsu/internal/notification"
	"github.com/Roska-x/Ninjutsu/pkg/catalog"
	"github.com/Roska-x/Ninjutsu/pkg/engine"
	"github.com/Roska-x/Ninjutsu/pkg/export"
	"github.com/Roska-x/Ninjutsu/pkg/providers"
	"github.com/Roska-x/Ninjutsu/pkg/scoring"
)

var (
	cfgFile      string
	catalogFile  string
	category     string
	dorkIDs      []string
	tag          string
	engineName   string
	domain       string
	placeholders []string
	concurrency  int
	callTimeout  int
	outputDir    string
	watchMode    bool
	verbose      bool

	discordClient *notification.NotificationClient
)

var rootCmd = &cobra.Command{
	Use:   "ninjutsu",
	Short: "Dork execution and exposure triage across search providers",
	Long: `Ninjutsu runs catalogued search dorks against multiple search engine
APIs, merges duplicate hits across engines and scores each unique finding
for exposure risk`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		} else {
			log.SetLevel(log.InfoLevel)
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a batch of catalogued dorks",
	Long:  `Execute the selected catalog entries against the selected engines and write the aggregated report`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Handle SIGINT and SIGTERM
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			log.Info("Shutting down")
			cancel()
		}()

		settings, err := config.LoadSettings(cfgFile)
		if err != nil {
			return err
		}
		if concurrency > 0 {
			settings.Concurrency = concurrency
		}
		if callTimeout > 0 {
			settings.CallTimeoutS = callTimeout
		}
		if outputDir != "" {
			settings.OutputDir = outputDir
		}
		if catalogFile != "" {
			settings.CatalogPath = catalogFile
		}

		dorkEngine, err := buildEngine(settings)
		if err != nil {
			return err
		}

		cat, err := catalog.Load(settings.CatalogPath)
		if err != nil {
			return err
		}

		runBatch := func(cat *catalog.Catalog) error {
			entries, err := selectEntries(cat)
			if err != nil {
				return err
			}

			report, err := dorkEngine.Run(ctx, engine.RunParams{
				Entries:      entries,
				Mode:         providers.SelectionMode(engineName),
				Scope:        domain,
				Placeholders: parsePlaceholders(placeholders),
			})
			if err != nil {
				return err
			}

			path, err := export.WriteFile(settings.OutputDir, report)
			if err != nil {
				return err
			}
			printSummary(report, path)

			if discordClient != nil {
				posted, err := discordClient.NotifyHighRisk(report)
				if err != nil {
					log.Warnf("Discord notification failed: %v", err)
				} else if posted > 0 {
					log.Infof("Posted %d high-risk findings to Discord", posted)
				}
			}
			return nil
		}

		if err := runBatch(cat); err != nil {
			return err
		}

		if watchMode {
			log.Info("Watch mode: re-running on catalog changes")
			return catalog.Watch(ctx, settings.CatalogPath, func(cat *catalog.Catalog) {
				if err := runBatch(cat); err != nil {
					log.Errorf("Batch re-run failed: %v", err)
				}
			})
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog entries",
	Long:  `List the dork catalog, optionally filtered by category or tag`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		path := catalogFile
		if path == "" {
			settings, err := config.LoadSettings(cfgFile)
			if err != nil {
				return err
			}
			path = settings.CatalogPath
		}

		cat, err := catalog.Load(path)
		if err != nil {
			return err
		}

		entries, err := selectEntries(cat)
		if err != nil {
			return err
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

		for _, e := range entries {
			fmt.Printf("%-28s %-8s %-16s %s\n", e.ID, e.Risk, e.Category, e.Title)
		}
		fmt.Printf("\n%d entries, %d categories\n", len(entries), len(cat.Categories()))
		return nil
	},
}

func buildEngine(settings *config.Settings) (*engine.DorkEngine, error) {
	creds := config.LoadCredentials()

	registry := providers.NewRegistry()
	registry.Register(providers.NewGoogleProvider(providers.Config{
		APIKey:   creds.GoogleAPIKey,
		EngineID: creds.GoogleEngineID,
	}))
	registry.Register(providers.NewSerperProvider(providers.Config{
		APIKey: creds.SerperAPIKey,
	}))
	registry.Register(providers.NewDuckDuckGoProvider(providers.Config{
		APIKey: creds.SerpAPIKey,
	}))

	manager := providers.NewManager(registry,
		providers.WithPriority(settings.ProviderPriority),
		providers.WithRetries(settings.MaxRetries),
		providers.WithBackoffBase(time.Duration(settings.BackoffBaseMS)*time.Millisecond),
		providers.WithPerCallTimeout(time.Duration(settings.CallTimeoutS)*time.Second),
		providers.WithRateInterval("google", creds.GoogleInterval),
		providers.WithRateInterval("serper", creds.SerperInterval),
		providers.WithRateInterval("duckduckgo", creds.DuckDuckGoInterval),
	)

	return engine.NewDorkEngine(manager,
		engine.WithConcurrency(settings.Concurrency),
		engine.WithResultsPerQuery(settings.ResultsPerQuery),
		engine.WithScorer(scoring.NewScorer(settings.Scoring)),
	), nil
}

// selectEntries resolves the --id/--category/--tag filters against the
// catalog. Explicit ids win; an unknown id is an error rather than a silent
// no-op.
func selectEntries(cat *catalog.Catalog) ([]catalog.DorkEntry, error) {
	if len(dorkIDs) > 0 {
		entries := make([]catalog.DorkEntry, 0, len(dorkIDs))
		for _, id := range dorkIDs {
			entry, ok := cat.ByID(id)
			if !ok {
				return nil, fmt.Errorf("unknown dork id: %s", id)
			}
			entries = append(entries, entry)
		}
		return entries, nil
	}
	if category != "" {
		entries := cat.ByCategory(category)
		if len(entries) == 0 {
			return nil, fmt.Errorf("no entries in category: %s", category)
		}
		return entries, nil
	}
	if tag != "" {
		entries := cat.ByTag(tag)
		if len(entries) == 0 {
			return nil, fmt.Errorf("no entries with tag: %s", tag)
		}
		return entries, nil
	}
	return cat.Entries(), nil
}

// parsePlaceholders turns repeated key=value flags into the expansion map.
func parsePlaceholders(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			log.Warnf("Ignoring malformed placeholder %q, expected key=value", pair)
			continue
		}
		out[key] = value
	}
	return out
}

func printSummary(report *engine.ExecutionReport, path string) {
	log.WithFields(log.Fields{
		"run_id":   report.RunID,
		"findings": len(report.Findings),
		"high":     len(report.ByBucket(catalog.RiskHigh)),
		"medium":   len(report.ByBucket(catalog.RiskMedium)),
		"low":      len(report.ByBucket(catalog.RiskLow)),
		"failures": len(report.Failures),
		"report":   path,
	}).Info("Run complete")

	for _, failure := range report.Failures {
		log.Warnf("Task failed: engine=%s dork=%s kind=%s attempts=%d",
			failure.Engine, failure.DorkID, failure.Kind, failure.Attempts)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Settings file (default searches ./config)")
	rootCmd.PersistentFlags().StringVar(&catalogFile, "catalog", "", "Dork catalog file")

	runCmd.Flags().StringVarP(&category, "category", "c", "", "Run all entries in a category")
	runCmd.Flags().StringSliceVar(&dorkIDs, "id", nil, "Run specific entries by id (repeatable)")
	runCmd.Flags().StringVar(&tag, "tag", "", "Run all entries carrying a tag")
	runCmd.Flags().StringVarP(&engineName, "engine", "e", "auto", "Engine selection: auto, all, or an engine name")
	runCmd.Flags().StringVarP(&domain, "domain", "d", "", "Scope every query to a target domain")
	runCmd.Flags().StringSliceVar(&placeholders, "set", nil, "Placeholder values as key=value (repeatable)")
	runCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Worker pool size (overrides settings)")
	runCmd.Flags().IntVar(&callTimeout, "timeout", 0, "Per-call timeout in seconds (overrides settings)")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Report output directory (overrides settings)")
	runCmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "Keep running and re-execute when the catalog changes")

	listCmd.Flags().StringVarP(&category, "category", "c", "", "Filter by category")
	listCmd.Flags().StringVar(&tag, "tag", "", "Filter by tag")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
}

func main() {
	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		var err error
		discordClient, err = notification.NewNotificationClient()
		if err != nil {
			log.Warnf("Failed to initialize Discord client: %v", err)
		} else {
			defer discordClient.Close()
			log.Info("Discord notifications enabled")
		}
	} else {
		log.Debug("DISCORD_TOKEN not set - Discord notifications disabled")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
