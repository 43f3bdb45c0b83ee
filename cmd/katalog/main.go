// Command katalog extracts datasets published in the national open data
// catalog into a configured sink.
//
// Typical usage:
//
//	katalog -config jobs/ovzdusi.json
//	katalog -config jobs/ovzdusi.json -discover
//	katalog -config jobs/ovzdusi.json -validate
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"katalog/internal/config"
	"katalog/internal/metrics"
	"katalog/internal/metrics/datadog"
	"katalog/internal/metrics/prompush"
	"katalog/internal/pipeline"

	// register all sink backends with the factory; the job config selects
	// which one a run uses.
	_ "katalog/internal/sink/all"
)

func main() {
	var (
		cfgPath        string
		metricsBackend string
		pushGatewayURL string
		statsdAddr     string
		validate       bool
		discover       bool
	)

	flag.StringVar(&cfgPath, "config", "jobs/sample.json", "job config path (JSON or YAML)")
	flag.StringVar(&metricsBackend, "metrics-backend", "", "metrics backend to use (none, prompush, datadog; overrides env METRICS_BACKEND)")
	flag.StringVar(&pushGatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&statsdAddr, "statsd-addr", "", "DogStatsD address (overrides env STATSD_ADDR)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.BoolVar(&discover, "discover", false, "resolve datasets and print the streams as JSON, without payloads")
	verbose := flag.Bool("v", false, "enable debug logs")

	flag.Parse()

	logger := newLogger(*verbose)

	job, err := config.Load(cfgPath)
	if err != nil {
		fatalf("load config: %v", err)
	}

	issues := config.ValidateJob(*job)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		fatalf("configuration is invalid: %v", cfgPath)
	}
	if validate {
		fmt.Fprintf(os.Stderr, "configuration is valid: %v\n", cfgPath)
		return
	}

	ctx := context.Background()

	if discover {
		streams, err := pipeline.Discover(ctx, *job)
		if err != nil {
			logger.Fatal().Err(err).Msg("discovery failed")
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(streams); err != nil {
			logger.Fatal().Err(err).Msg("encode discovery output")
		}
		return
	}

	setupMetrics(metricsBackend, pushGatewayURL, statsdAddr, job.Name, logger)

	start := time.Now()
	runErr := pipeline.Run(ctx, *job, logger)

	if err := metrics.Flush(); err != nil {
		logger.Error().Err(err).Msg("metrics flush failed")
	}
	if runErr != nil {
		logger.Fatal().Err(runErr).Msg("run failed")
	}
	logger.Info().Dur("elapsed", time.Since(start)).Msg("done")
}

// newLogger builds the console logger; -v drops the level to debug. Logs go
// to stderr because stdout is reserved for sink and discovery output.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).With().Timestamp().Logger()
}

// setupMetrics installs the selected metrics backend. Each setting resolves
// flag first, then environment, then default. Setup failures only log and
// leave the nop backend in place.
func setupMetrics(backend, gatewayURL, statsdAddr, jobName string, logger zerolog.Logger) {
	if backend == "" {
		backend = os.Getenv("METRICS_BACKEND")
	}
	switch backend {
	case "prompush":
		if gatewayURL == "" {
			gatewayURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gatewayURL == "" {
			gatewayURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(jobName, gatewayURL)
		if err != nil {
			logger.Error().Err(err).Msg("metrics: prompush init failed; metrics disabled")
			return
		}
		metrics.SetBackend(b)
		logger.Info().Str("backend", backend).Str("url", gatewayURL).Msg("metrics enabled")

	case "datadog":
		if statsdAddr == "" {
			statsdAddr = os.Getenv("STATSD_ADDR")
		}
		if statsdAddr == "" {
			statsdAddr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{Addr: statsdAddr})
		if err != nil {
			logger.Error().Err(err).Msg("metrics: datadog init failed; metrics disabled")
			return
		}
		metrics.SetBackend(b)
		logger.Info().Str("backend", backend).Str("addr", statsdAddr).Msg("metrics enabled")

	case "", "none":
		// nop backend remains

	default:
		logger.Warn().Str("backend", backend).Msg("metrics: unknown backend; metrics disabled")
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
