package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/screa/evm-discovery/internal/config"
	logpkg "github.com/screa/evm-discovery/internal/logger"
	"github.com/screa/evm-discovery/internal/metrics"
	"github.com/screa/evm-discovery/internal/tracing"
	"github.com/screa/evm-discovery/pkg/chain"
	"github.com/screa/evm-discovery/pkg/configreader"
	"github.com/screa/evm-discovery/pkg/engine"
	"github.com/screa/evm-discovery/pkg/runner"
	"github.com/screa/evm-discovery/pkg/types"
)

var (
	v       = viper.New()
	cfgFile string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "evm-discovery",
		Short: "Discover the contracts behind an on-chain project",
		Long: `Walks the proxy relations of a project's contracts at a given block and
writes the result to <discovery-root>/<project>/<chain>/discovered.json.
Passes can be retried, repeated as a sanity check, and seeded from the
addresses of a previous discovery.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDiscovery,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "Config file (yaml, json or toml) providing flag values")
	flags.StringP("project", "p", "", "Project name (required)")
	flags.StringP("chain", "c", "", "Chain identifier, e.g. ethereum (required)")
	flags.StringP("rpc-url", "r", "", "JSON-RPC endpoint of the chain (required)")
	flags.StringP("discovery-root", "d", "discovery", "Directory holding <project>/<chain>/config.yaml")
	flags.Uint64P("block-number", "b", 0, "Block to discover against (default: latest)")
	flags.IntP("workers", "w", runtime.NumCPU(), "Number of concurrent address workers")
	flags.Float64("rpc-rate-limit", 0, "Maximum RPC requests per second (0: unlimited)")
	flags.Bool("sanity-check", false, "Run discovery twice and compare the results")
	flags.Bool("inject-initial-addresses", false, "Seed discovery with the contracts of the previous discovered.json")
	flags.Int("max-retries", 0, "Additional attempts after a failed pass")
	flags.Int("retry-delay-ms", 0, "Delay before each retry in milliseconds")
	flags.String("log-level", "info", "Log level: panic, fatal, error, warn, info, debug, trace")
	flags.String("log-format", logpkg.FormatText, "Log format: text or json")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	flags.Bool("trace", false, "Print OpenTelemetry spans to stdout")
	flags.Bool("dry-run", false, "Do not write discovered.json")

	cobra.CheckErr(v.BindPFlags(flags))
	config.BindEnv(v)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	// Validate configuration
	cfg := config.Load(v)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logpkg.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(cfg.Trace)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.WithError(err).Warn("Could not flush traces")
		}
	}()

	if cfg.MetricsAddr != "" {
		metrics.Register()
		srv := serveMetrics(cfg.MetricsAddr, logger)
		defer srv.Close()
	}

	reader := configreader.New(cfg.DiscoveryRoot)
	projectCfg, err := reader.ReadConfig(cfg.Project, cfg.Chain)
	if err != nil {
		return err
	}

	provider, err := chain.Dial(ctx, cfg.RPCURL, cfg.RPCRateLimit)
	if err != nil {
		return err
	}
	defer provider.Close()

	blockNumber := cfg.BlockNumber
	if blockNumber == 0 {
		blockNumber, err = provider.BlockNumber(ctx)
		if err != nil {
			return err
		}
	}

	logger.WithFields(log.Fields{
		"project": cfg.Project,
		"chain":   cfg.Chain,
		"block":   blockNumber,
		"workers": cfg.Workers,
		"run":     cfg.GetRunDescription(),
	}).Info("Starting discovery")

	r := runner.NewRunner(
		engine.NewEngine(provider, cfg.Workers, logger),
		reader,
		runner.WithLogger(logger),
		runner.WithSanityChecker(runner.CmpChecker{}),
	)

	start := time.Now()
	discovery, err := r.Run(ctx, projectCfg, blockNumber, cfg.RunOptions())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("Discovery interrupted")
		}
		return err
	}

	logger.WithFields(log.Fields{
		"entries":   len(discovery.Entries),
		"contracts": len(discovery.Addresses(types.EntryContract)),
		"duration":  time.Since(start).Round(time.Millisecond),
	}).Info("Discovery finished")

	if cfg.DryRun {
		logger.Info("Dry run, not writing discovered.json")
		return nil
	}
	if err := reader.WriteDiscovery(discovery); err != nil {
		return fmt.Errorf("write discovery: %w", err)
	}
	logger.WithField("dir", reader.Dir(cfg.Project, cfg.Chain)).Info("Wrote discovered.json")
	return nil
}

func serveMetrics(addr string, logger log.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).WithField("addr", addr).Error("Could not serve metrics")
		}
	}()
	return srv
}
