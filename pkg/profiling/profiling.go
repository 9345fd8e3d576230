package profiling

import (
	"log/slog"
	"os"
	"strings"

	"railsim/pkg/otel"

	"github.com/grafana/pyroscope-go"
)

// InitProfiling starts continuous profiling when PYROSCOPE_PROFILING_ENABLED
// is set and returns a stop function.
func InitProfiling() (func(), error) {
	// Check if profiling is enabled
	if !isTrue(os.Getenv("PYROSCOPE_PROFILING_ENABLED")) {
		slog.Debug("Pyroscope profiling is disabled")
		return func() {}, nil
	}

	// Server and application name, the latter defaulting to the service name
	serverAddress := getEnv("PYROSCOPE_SERVER_ADDRESS", "http://localhost:4040")
	applicationName := getEnv("PYROSCOPE_APPLICATION_NAME", otel.ServiceName)

	// Create Pyroscope config
	config := pyroscope.Config{
		ApplicationName: applicationName,
		ServerAddress:   serverAddress,
		Logger:          pyroscope.StandardLogger,
		Tags: map[string]string{
			"service": otel.ServiceName,
			"version": otel.Version,
		},
		// goroutine profiles show async observer workers piling up
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	}

	// Add basic authentication if provided
	user := getEnv("PYROSCOPE_BASIC_AUTH_USER", "")
	password := getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")
	if user != "" && password != "" {
		config.BasicAuthUser = user
		config.BasicAuthPassword = password
	}

	// Start profiling
	profiler, err := pyroscope.Start(config)
	if err != nil {
		slog.Warn("Failed to start Pyroscope profiler", "error", err)
		// Profiling is optional, carry on without it
		return func() {}, nil
	}

	slog.Debug("Pyroscope profiling started", "server", serverAddress, "application", applicationName)

	return func() {
		if err := profiler.Stop(); err != nil {
			slog.Error("Error stopping Pyroscope profiler", "error", err)
		} else {
			slog.Debug("Pyroscope profiler stopped")
		}
	}, nil
}

// getEnv returns the value of an environment variable or a default value if not set
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// isTrue accepts true, 1, yes and on in any case
func isTrue(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
