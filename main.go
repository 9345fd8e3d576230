package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"railsim/pkg/api"
	"railsim/pkg/control"
	"railsim/pkg/driver"
	"railsim/pkg/logging"
	"railsim/pkg/loki"
	"railsim/pkg/metrics"
	"railsim/pkg/profiling"
	"railsim/pkg/seed"
	"railsim/pkg/simulation"
	"railsim/pkg/tracing"
	"railsim/pkg/upstream"

	"github.com/joho/godotenv"
)

func main() {
	// .env.local overrides .env for local development
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	var (
		dryRun       = flag.Bool("dry-run", getEnv("RAILSIM_DRY_RUN", "") == "true", "Print every snapshot to stdout instead of sending to Loki")
		interval     = flag.String("interval", getEnv("RAILSIM_INTERVAL", driver.DefaultInterval.String()), "Refresh interval")
		seedFile     = flag.String("seed-file", getEnv("RAILSIM_SEED_FILE", ""), "Initial network state, YAML or XML (default: built-in network)")
		randSeed     = flag.String("rand-seed", getEnv("RAILSIM_RAND_SEED", "0"), "Random seed for the simulation, 0 for time-based")
		speedFloor   = flag.Bool("speed-floor", getEnv("RAILSIM_SPEED_FLOOR", "true") != "false", "Keep simulated speeds at or above zero")
		listen       = flag.String("listen", getEnv("RAILSIM_LISTEN", ":8080"), "HTTP API listen address, empty to disable")
		corsOrigins  = flag.String("cors-origins", getEnv("RAILSIM_CORS_ORIGINS", ""), "Allowed CORS origins, comma-separated (default: any)")
		upstreamURL  = flag.String("upstream-url", getEnv("RAILSIM_UPSTREAM_URL", ""), "Follow another railsim instead of simulating")
		lokiURL      = flag.String("loki-url", getEnv("RAILSIM_LOKI_URL", ""), "Grafana Loki URL, empty to disable")
		lokiUser     = flag.String("loki-user", getEnv("RAILSIM_LOKI_USER", ""), "Loki username (for Grafana Cloud authentication)")
		lokiPassword = flag.String("loki-password", getEnv("RAILSIM_LOKI_PASSWORD", ""), "Loki password/token (for Grafana Cloud authentication)")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Railway Fleet Simulator\n\n")
		fmt.Fprintf(os.Stderr, "Simulates a small railway network, refreshes the fleet on a fixed\n")
		fmt.Fprintf(os.Stderr, "interval and serves it over HTTP, optionally shipping every snapshot\n")
		fmt.Fprintf(os.Stderr, "to Grafana Loki.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  RAILSIM_INTERVAL      - Refresh interval (default: 3s)\n")
		fmt.Fprintf(os.Stderr, "  RAILSIM_SEED_FILE     - Seed file path (.yaml, .yml or .xml)\n")
		fmt.Fprintf(os.Stderr, "  RAILSIM_RAND_SEED     - Random seed (default: time-based)\n")
		fmt.Fprintf(os.Stderr, "  RAILSIM_SPEED_FLOOR   - Set to false to let speeds go negative\n")
		fmt.Fprintf(os.Stderr, "  RAILSIM_LISTEN        - HTTP listen address (default: :8080)\n")
		fmt.Fprintf(os.Stderr, "  RAILSIM_CORS_ORIGINS  - Allowed CORS origins, comma-separated\n")
		fmt.Fprintf(os.Stderr, "  RAILSIM_UPSTREAM_URL  - Upstream railsim base URL\n")
		fmt.Fprintf(os.Stderr, "  RAILSIM_DRY_RUN       - Set to true for dry run mode\n")
		fmt.Fprintf(os.Stderr, "  RAILSIM_LOKI_URL      - Loki URL\n")
		fmt.Fprintf(os.Stderr, "  RAILSIM_LOKI_USER     - Loki username (for Grafana Cloud)\n")
		fmt.Fprintf(os.Stderr, "  RAILSIM_LOKI_PASSWORD - Loki password/token (for Grafana Cloud)\n")
		fmt.Fprintf(os.Stderr, "  LOG_LEVEL, LOG_FORMAT - Logging (debug|info|warn|error, text|json)\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Dry run with a reproducible fleet\n")
		fmt.Fprintf(os.Stderr, "  %s --dry-run --rand-seed=42 --interval=1s\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Custom network, shipped to Grafana Cloud\n")
		fmt.Fprintf(os.Stderr, "  %s --seed-file=network.yaml \\\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "    --loki-url=https://logs-prod-us-central1.grafana.net \\\n")
		fmt.Fprintf(os.Stderr, "    --loki-user=123456 --loki-password=your_token\n\n")
		fmt.Fprintf(os.Stderr, "  # Mirror another instance\n")
		fmt.Fprintf(os.Stderr, "  %s --upstream-url=http://railsim-primary:8080 --listen=:8081\n\n", os.Args[0])
	}

	flag.Parse()

	logging.InitLogging()

	intervalDuration, err := time.ParseDuration(*interval)
	if err != nil {
		log.Fatalf("Invalid interval format: %v", err)
	}

	rngSeed, err := strconv.ParseUint(*randSeed, 10, 64)
	if err != nil {
		log.Fatalf("Invalid rand seed: %v", err)
	}
	if rngSeed == 0 {
		rngSeed = uint64(time.Now().UnixNano())
	}

	network := seed.Default()
	if *seedFile != "" {
		if network, err = seed.Load(*seedFile); err != nil {
			log.Fatalf("Failed to load seed file: %v", err)
		}
	}

	shutdownTracing, err := tracing.InitTracing()
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer shutdownTracing()

	shutdownMetrics, err := metrics.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}
	defer shutdownMetrics()

	shutdownProfiling, err := profiling.InitProfiling()
	if err != nil {
		log.Fatalf("Failed to initialize profiling: %v", err)
	}
	defer shutdownProfiling()

	var source driver.Source
	if *upstreamURL != "" {
		source = upstream.NewClient(*upstreamURL)
		slog.Info("Following upstream fleet", "url", *upstreamURL)
	} else {
		params := simulation.DefaultParams()
		params.FloorSpeed = *speedFloor
		sim, err := simulation.NewSource(simulation.NewRand(rngSeed), params)
		if err != nil {
			log.Fatalf("Failed to create simulation: %v", err)
		}
		source = sim
		slog.Info("Simulating fleet", "rand_seed", rngSeed, "speed_floor", params.FloorSpeed)
	}

	fleet, err := driver.New(driver.Config{Interval: intervalDuration, Trains: network.Trains}, source)
	if err != nil {
		log.Fatalf("Failed to create driver: %v", err)
	}

	// the desk turns fleet changes into notifications for the dashboard feed
	desk := control.NewDesk(network.Recommendations, network.Notifications)
	fleet.Subscribe(control.NewWatcher(desk, control.DefaultLateThreshold).Observer())

	switch {
	case *dryRun:
		fleet.Subscribe(driver.DryRunObserver(os.Stdout))
		slog.Info("Starting railsim in DRY RUN mode, snapshots are printed to stdout")
	case *lokiURL != "":
		// pushes run off the tick loop and never outlast one interval
		lokiClient := loki.NewClient(*lokiURL, *lokiUser, *lokiPassword)
		fleet.SubscribeAsync(lokiClient.Observer(intervalDuration), driver.DefaultAsyncBuffer)
		slog.Info("Starting railsim, snapshots are sent to Loki", "loki_url", *lokiURL)
	default:
		slog.Info("Starting railsim without a snapshot sink")
	}
	slog.Info("Network loaded",
		"trains", len(network.Trains),
		"stations", len(network.Stations),
		"sections", len(network.Sections),
		"recommendations", len(network.Recommendations),
		"interval", intervalDuration,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := fleet.Start(ctx); err != nil {
		log.Fatalf("Failed to start driver: %v", err)
	}
	defer fleet.Stop()

	var server *http.Server
	errChan := make(chan error, 1)
	if *listen != "" {
		apiServer := api.NewServer(fleet, network.Stations, network.Sections, api.Options{
			AllowedOrigins: splitList(*corsOrigins),
			StaleAfter:     5 * intervalDuration,
			Desk:           desk,
		})
		server = &http.Server{
			Addr:              *listen,
			Handler:           apiServer.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("API server starting", "addr", *listen)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down gracefully", "signal", sig.String())
	case err := <-errChan:
		slog.Error("API server error", "error", err)
	}

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("API server shutdown timeout, forcing exit", "error", err)
		}
		shutdownCancel()
	}
	cancel()
	fleet.Stop()

	slog.Info("railsim shutdown complete")
}

// getEnv returns the value of an environment variable or a default value if not set
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
