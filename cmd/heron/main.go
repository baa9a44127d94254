// Heron - cross-dataset anomaly analysis for municipal open data.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/opencivic-data/heron/internal/api"
	"github.com/opencivic-data/heron/internal/bus"
	"github.com/opencivic-data/heron/internal/cache"
	"github.com/opencivic-data/heron/internal/dataset"
	"github.com/opencivic-data/heron/internal/domain"
	"github.com/opencivic-data/heron/internal/report"
	"github.com/opencivic-data/heron/internal/repository"
	"github.com/opencivic-data/heron/internal/rules"
	"github.com/opencivic-data/heron/internal/runner"
	"github.com/opencivic-data/heron/internal/similarity"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	licensesPath := flag.String("licenses", "", "Path to the business licenses CSV")
	contractsPath := flag.String("contracts", "", "Path to the city contracts CSV")
	taxesPath := flag.String("taxes", "", "Path to the delinquent taxes CSV")
	outputPath := flag.String("output", "", "Write the JSON report to this path")
	textPath := flag.String("text", "", "Write the text report to this path instead of stdout")
	serve := flag.Bool("serve", false, "Run the HTTP API server and analysis runner")
	quiet := flag.Bool("quiet", false, "Only log errors")

	var thresholds analysisFlags
	flag.IntVar(&thresholds.addressThreshold, "address-threshold", 0, "Minimum businesses sharing an address to report (0 = default)")
	flag.Float64Var(&thresholds.nameSimilarity, "name-similarity", 0, "Fuzzy name match ratio in (0,1] (0 = default)")
	flag.IntVar(&thresholds.temporalWindow, "temporal-window", 0, "Issue-date cluster window in days (0 = default)")
	flag.IntVar(&thresholds.temporalThreshold, "temporal-threshold", 0, "Minimum licenses inside the window to report (0 = default)")
	flag.IntVar(&thresholds.zipThreshold, "zip-threshold", 0, "Minimum licenses in a ZIP code to report (0 = default)")
	flag.Parse()

	cfg := loadConfig()
	cfg.Analysis = thresholds.apply(cfg.Analysis)
	setupLogging(cfg.Logging, *quiet)

	slog.Info("starting heron",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	engine, err := rules.NewEngine()
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	if err := engine.LoadRules(rules.BuiltinRules()); err != nil {
		slog.Error("failed to load builtin rules", "error", err)
		os.Exit(1)
	}
	slog.Info("rule engine initialized", "rules_count", engine.RulesCount())

	aggregator := report.NewAggregator(similarity.Levenshtein{}, engine, cfg.Analysis, slog.Default())

	if *serve {
		runServer(cfg, engine, aggregator)
		return
	}

	if *licensesPath == "" || *contractsPath == "" || *taxesPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: heron -licenses licenses.csv -contracts contracts.csv -taxes taxes.csv [-output report.json] [-text report.txt]")
		fmt.Fprintln(os.Stderr, "       heron -serve")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
		os.Exit(2)
	}

	runOnce(cfg, aggregator, *licensesPath, *contractsPath, *taxesPath, *outputPath, *textPath)
}

// runOnce executes a single analysis and writes the reports.
func runOnce(cfg *domain.Config, aggregator *report.Aggregator, licenses, contracts, taxes, outputPath, textPath string) {
	ctx := context.Background()

	data, err := dataset.Load(licenses, contracts, taxes)
	if err != nil {
		slog.Error("failed to load datasets", "error", err)
		os.Exit(1)
	}

	rep, err := aggregator.Generate(ctx, uuid.New().String(), data)
	if err != nil {
		slog.Error("failed to generate report", "error", err)
		os.Exit(1)
	}

	text := report.FormatText(rep)
	if textPath != "" {
		if err := os.WriteFile(textPath, []byte(text), 0o644); err != nil {
			slog.Error("failed to write text report", "path", textPath, "error", err)
			os.Exit(1)
		}
		slog.Info("text report written", "path", textPath)
	} else {
		fmt.Print(text)
	}

	if outputPath != "" {
		if err := report.SaveJSON(outputPath, rep); err != nil {
			slog.Error("failed to write JSON report", "path", outputPath, "error", err)
			os.Exit(1)
		}
		slog.Info("JSON report written", "path", outputPath)
	}
}

// runServer wires up persistence, cache, and the event bus, then runs
// the API server and analysis runner until a shutdown signal.
func runServer(cfg *domain.Config, engine *rules.Engine, aggregator *report.Aggregator) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	analysisRunner := runner.New(busImpl, repo, cacheImpl, aggregator, slog.Default())
	if err := analysisRunner.Start(); err != nil {
		slog.Error("failed to start analysis runner", "error", err)
		os.Exit(1)
	}

	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, engine, Version)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("heron is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	if err := analysisRunner.Stop(); err != nil {
		slog.Error("failed to stop analysis runner", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("heron shutdown complete")
}

// loadConfig builds the configuration from defaults plus HERON_*
// environment overrides.
func loadConfig() *domain.Config {
	cfg := domain.DefaultConfig()
	if os.Getenv("HERON_MODE") == "distributed" {
		cfg = domain.DistributedConfig()
		slog.Info("running in distributed mode")
	}

	if v := os.Getenv("HERON_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HERON_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("HERON_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("HERON_DB_DRIVER"); v != "" {
		cfg.Repository.Driver = v
	}
	if v := os.Getenv("HERON_SQLITE_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv("HERON_POSTGRES_HOST"); v != "" {
		cfg.Repository.PostgresHost = v
	}
	if v := os.Getenv("HERON_POSTGRES_USER"); v != "" {
		cfg.Repository.PostgresUser = v
	}
	if v := os.Getenv("HERON_POSTGRES_PASSWORD"); v != "" {
		cfg.Repository.PostgresPassword = v
	}
	if v := os.Getenv("HERON_POSTGRES_DB"); v != "" {
		cfg.Repository.PostgresDB = v
	}
	if v := os.Getenv("HERON_REDIS_ADDR"); v != "" {
		cfg.Cache.Type = "redis"
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("HERON_NATS_URL"); v != "" {
		cfg.EventBus.Type = "nats"
		cfg.EventBus.NATSUrl = v
	}

	if v := os.Getenv("HERON_NAME_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Analysis.NameSimilarityThreshold = f
		}
	}
	if v := os.Getenv("HERON_ADDRESS_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.AddressThreshold = n
		}
	}

	cfg.Analysis = cfg.Analysis.Normalized()
	return cfg
}

// analysisFlags carries the threshold overrides accepted on the
// command line. A zero value means the flag was not set.
type analysisFlags struct {
	addressThreshold  int
	nameSimilarity    float64
	temporalWindow    int
	temporalThreshold int
	zipThreshold      int
}

// apply overrides cfg with every flag set to a positive value and
// normalizes the result.
func (f analysisFlags) apply(cfg domain.AnalysisConfig) domain.AnalysisConfig {
	if f.addressThreshold > 0 {
		cfg.AddressThreshold = f.addressThreshold
	}
	if f.nameSimilarity > 0 {
		cfg.NameSimilarityThreshold = f.nameSimilarity
	}
	if f.temporalWindow > 0 {
		cfg.TemporalWindowDays = f.temporalWindow
	}
	if f.temporalThreshold > 0 {
		cfg.TemporalThreshold = f.temporalThreshold
	}
	if f.zipThreshold > 0 {
		cfg.ZipThreshold = f.zipThreshold
	}
	return cfg.Normalized()
}

// logLevel resolves the effective log level. Quiet mode suppresses
// everything below errors; HERON_DEBUG=true wins over both.
func logLevel(cfg domain.LoggingConfig, quiet bool) slog.Level {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if quiet {
		level = slog.LevelError
	}
	if os.Getenv("HERON_DEBUG") == "true" {
		level = slog.LevelDebug
	}
	return level
}

// setupLogging installs the default slog logger per configuration.
func setupLogging(cfg domain.LoggingConfig, quiet bool) {
	opts := &slog.HandlerOptions{Level: logLevel(cfg, quiet)}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  HERON - Municipal Cross-Dataset Analysis")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /v1/analyses                - Queue an analysis run")
	fmt.Println("    GET  /v1/analyses                - List analysis runs")
	fmt.Println("    GET  /v1/analyses/{id}           - Get run status")
	fmt.Println("    GET  /v1/analyses/{id}/report    - Get report (?format=text)")
	fmt.Println("    GET  /v1/analyses/{id}/findings  - Get persisted findings")
	fmt.Println("    GET  /v1/rules                   - List key-finding rules")
	fmt.Println("    POST /v1/rules                   - Load a key-finding rule")
	fmt.Println("    GET  /health                     - Health check")
	fmt.Println()
}
