// ============================================================================
// CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Cobra-based command line surface for batch replication
//
// Usage:
//   couch-replicate -s SOURCE -t TARGET [flags] [DB ...]
//
// Flags:
//   -s, --source        source cluster URL (required)
//   -t, --target        target cluster URL (required)
//   -a, --all           replicate every database on the source
//   -i, --skip          comma-separated databases to skip
//   -c, --concurrency   maximum simultaneous replications (default 5)
//       --use-target    use the target's _replicate API
//       --system-dbs    include _-prefixed system databases
//   -p, --permanent     add continuous replication after the initial copy
//   -v, --verbose       per-database progress messages
//   -q, --quiet         no progress bar, no timing summary
//   -d, --debug         dump control-plane requests and responses
//       --config        YAML config file (default configs/default.yaml)
//
// Validation: databases are given either positionally or via --all, never
// both and never neither.
//
// Configuration file supplies defaults (concurrency, request timeout,
// progress interval, metrics); explicitly set flags win over the file. A
// missing default config file is fine - built-in defaults apply.
//
// Exit mapping: the command returns an error on batch failure; main maps
// that to a non-zero exit code.
//
// ============================================================================

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ChuLiYu/couch-replicate/internal/controller"
	"github.com/ChuLiYu/couch-replicate/internal/couchdb"
	"github.com/ChuLiYu/couch-replicate/internal/metrics"
	"github.com/ChuLiYu/couch-replicate/internal/progress"
	"github.com/ChuLiYu/couch-replicate/internal/worker"
)

const defaultConfigFile = "configs/default.yaml"

// Config maps the YAML config file.
type Config struct {
	Replication struct {
		Concurrency           int `yaml:"concurrency"`
		RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
		ProgressIntervalMs    int `yaml:"progress_interval_ms"`
	} `yaml:"replication"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`
}

type options struct {
	configFile  string
	source      string
	target      string
	all         bool
	skip        string
	concurrency int
	useTarget   bool
	systemDBs   bool
	permanent   bool
	verbose     bool
	quiet       bool
	debug       bool
}

// BuildCLI constructs the root command.
func BuildCLI() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "couch-replicate [flags] [DB ...]",
		Short: "Replicate databases between CouchDB clusters",
		Long: `couch-replicate triggers bulk replication between two CouchDB clusters:
one-shot (and optionally continuous) replication per database, with bounded
concurrency, aggregate progress and fail-fast on the first failure.`,
		Version:       "1.0.0",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplication(cmd, opts, args)
		},
	}

	rootCmd.Flags().StringVarP(&opts.source, "source", "s", "", "URL of the CouchDB cluster to replicate from")
	rootCmd.Flags().StringVarP(&opts.target, "target", "t", "", "URL of the CouchDB cluster to replicate to")
	rootCmd.Flags().BoolVarP(&opts.all, "all", "a", false, "replicate all databases from source to target (combine with --skip for \"all but ...\")")
	rootCmd.Flags().StringVarP(&opts.skip, "skip", "i", "", "comma-separated list of databases to skip")
	rootCmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", controller.DefaultConcurrency, "maximum number of simultaneous replications")
	rootCmd.Flags().BoolVar(&opts.useTarget, "use-target", false, "use the target's _replicate API instead of the source's")
	rootCmd.Flags().BoolVar(&opts.systemDBs, "system-dbs", false, "do not skip system databases starting with underscore (_users, _global_changes, ...)")
	rootCmd.Flags().BoolVarP(&opts.permanent, "permanent", "p", false, "add permanent continuous replication after the initial replication")
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "quiet: do not show the progress bar")
	rootCmd.Flags().BoolVarP(&opts.debug, "debug", "d", false, "debug output such as request and response details")
	rootCmd.Flags().StringVar(&opts.configFile, "config", defaultConfigFile, "config file path")

	rootCmd.MarkFlagRequired("source")
	rootCmd.MarkFlagRequired("target")

	return rootCmd
}

func runReplication(cmd *cobra.Command, opts *options, args []string) error {
	if err := validateSelection(opts.all, args); err != nil {
		return err
	}

	configureLogging(opts.verbose, opts.debug)

	cfg, err := loadConfig(opts.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	concurrency := cfg.Replication.Concurrency
	if cmd.Flags().Changed("concurrency") || concurrency == 0 {
		concurrency = opts.concurrency
	}

	timeout := time.Duration(cfg.Replication.RequestTimeoutSeconds) * time.Second
	client := couchdb.NewClient(timeout, slog.Default(), opts.debug)

	// Enumerate candidates.
	var names []string
	if opts.all {
		slog.Info("Getting list of all databases in source")
		source := controller.RemoteSource{Client: client, Endpoint: opts.source}
		names, err = source.List(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list source databases: %w", err)
		}
	} else {
		names = args
	}

	databases := controller.FilterDatabases(names, controller.FilterOptions{
		Skip:          controller.ParseSkipList(opts.skip),
		IncludeSystem: opts.systemDBs,
	})

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(prometheus.DefaultRegisterer)
		go func() {
			if err := metrics.StartServer(cfg.Metrics.Port); err != nil {
				slog.Error("Metrics server error", "error", err)
			}
		}()
	}

	var startTime time.Time
	if !opts.quiet {
		startTime = time.Now().UTC()
		fmt.Printf("Replication started at %s\n", startTime.Format(time.RFC3339))
	}

	runner := worker.NewRunner(client, slog.Default())
	reporter := progress.NewReporter(len(databases), opts.quiet)

	ctrl := controller.New(controller.Config{
		Source:             opts.source,
		Target:             opts.target,
		Concurrency:        concurrency,
		Continuous:         opts.permanent,
		UseTargetAsTrigger: opts.useTarget,
		ProgressInterval:   time.Duration(cfg.Replication.ProgressIntervalMs) * time.Millisecond,
	}, runner, reporter, collector)

	result := ctrl.Run(databases)

	if !opts.quiet {
		endTime := time.Now().UTC()
		fmt.Printf("Replication ended at %s\n", endTime.Format(time.RFC3339))
		fmt.Printf("Replication of %d databases took %s\n", result.Total, endTime.Sub(startTime))
	}

	if !result.Succeeded() {
		return errors.New(result.Failure.Message())
	}
	return nil
}

// validateSelection enforces that databases come from exactly one of the
// positional arguments or --all.
func validateSelection(all bool, args []string) error {
	if !all && len(args) == 0 {
		return errors.New("need to specify database to replicate or --all")
	}
	if all && len(args) != 0 {
		return errors.New("--all and specifying databases are mutually exclusive")
	}
	return nil
}

// configureLogging sets the default logger's level: warnings only by
// default, notices with --verbose, request traces with --debug.
func configureLogging(verbose, debug bool) {
	switch {
	case debug:
		slog.SetLogLoggerLevel(slog.LevelDebug)
	case verbose:
		slog.SetLogLoggerLevel(slog.LevelInfo)
	default:
		slog.SetLogLoggerLevel(slog.LevelWarn)
	}
}

// loadConfig reads the YAML config file. A missing file at the default path
// is not an error; the built-in defaults apply.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == defaultConfigFile {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	return &cfg, nil
}
