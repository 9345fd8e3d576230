package otel

import (
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Protocol represents OTLP transport protocol
type Protocol string

const (
	ProtocolGRPC         Protocol = "grpc"
	ProtocolHTTPProtobuf Protocol = "http/protobuf"
	ProtocolHTTPJSON     Protocol = "http/json"
)

// SignalType represents the OTEL signal type
type SignalType string

const (
	SignalTraces  SignalType = "traces"
	SignalMetrics SignalType = "metrics"
)

// ExporterConfig holds parsed OTLP exporter configuration for a signal
type ExporterConfig struct {
	Endpoint    string
	Protocol    Protocol
	Headers     map[string]string
	Timeout     time.Duration
	Insecure    bool
	Compression string
}

// IsTracingEnabled checks OTEL_TRACING_ENABLED
func IsTracingEnabled() bool {
	return isTrue(os.Getenv("OTEL_TRACING_ENABLED"))
}

func IsMetricsEnabled() bool {
	return isTrue(os.Getenv("OTEL_METRICS_ENABLED"))
}

// GetExporterConfig resolves OTEL_EXPORTER_OTLP_<SIGNAL>_* variables, falling
// back to the signal-less OTEL_EXPORTER_OTLP_* ones.
func GetExporterConfig(signal SignalType) ExporterConfig {
	lookup := signalLookup(signal)

	protocol := parseProtocol(lookup("PROTOCOL", "http/protobuf"))

	var endpoint string
	if e := os.Getenv("OTEL_EXPORTER_OTLP_" + strings.ToUpper(string(signal)) + "_ENDPOINT"); e != "" {
		endpoint = normalizeEndpoint(e, protocol)
	} else if e := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); e != "" {
		endpoint = appendSignalPath(normalizeEndpoint(e, protocol), signal, protocol)
	} else if protocol == ProtocolGRPC {
		endpoint = "localhost:4317"
	} else {
		endpoint = "http://localhost:4318/v1/" + string(signal)
	}

	insecure := strings.HasPrefix(endpoint, "http://")
	if v := lookup("INSECURE", ""); v != "" {
		insecure = isTrue(v)
	}

	return ExporterConfig{
		Endpoint:    endpoint,
		Protocol:    protocol,
		Headers:     parseHeaders(lookup("HEADERS", "")),
		Timeout:     parseDuration(lookup("TIMEOUT", ""), 10*time.Second),
		Insecure:    insecure,
		Compression: lookup("COMPRESSION", ""),
	}
}

func signalLookup(signal SignalType) func(suffix, def string) string {
	upper := strings.ToUpper(string(signal))
	return func(suffix, def string) string {
		if v := os.Getenv("OTEL_EXPORTER_OTLP_" + upper + "_" + suffix); v != "" {
			return v
		}
		if v := os.Getenv("OTEL_EXPORTER_OTLP_" + suffix); v != "" {
			return v
		}
		return def
	}
}

func parseProtocol(s string) Protocol {
	switch strings.ToLower(s) {
	case "grpc":
		return ProtocolGRPC
	case "http/json":
		return ProtocolHTTPJSON
	default:
		return ProtocolHTTPProtobuf
	}
}

// normalizeEndpoint strips gRPC endpoints down to host:port and makes sure
// HTTP endpoints carry a scheme.
func normalizeEndpoint(endpoint string, protocol Protocol) string {
	if protocol == ProtocolGRPC {
		endpoint = strings.TrimPrefix(endpoint, "http://")
		endpoint = strings.TrimPrefix(endpoint, "https://")
		if idx := strings.Index(endpoint, "/"); idx != -1 {
			endpoint = endpoint[:idx]
		}
		return endpoint
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	return endpoint
}

func appendSignalPath(endpoint string, signal SignalType, protocol Protocol) string {
	if protocol == ProtocolGRPC {
		return endpoint
	}

	signalPath := "/v1/" + string(signal)
	u, err := url.Parse(endpoint)
	if err != nil {
		return strings.TrimSuffix(endpoint, "/") + signalPath
	}
	if strings.HasSuffix(u.Path, signalPath) {
		return endpoint
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + signalPath
	return u.String()
}

func isTrue(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseHeaders parses "key1=value1,key2=value2". Values keep everything after
// the first '=' untouched.
func parseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(headerStr, ",") {
		pair = strings.TrimSpace(pair)
		if idx := strings.Index(pair, "="); idx > 0 {
			key := strings.TrimSpace(pair[:idx])
			headers[key] = pair[idx+1:]
			slog.Debug("Parsed OTEL header", "key", key, "value_length", len(pair)-idx-1)
		}
	}
	return headers
}

// parseDuration accepts Go durations ("10s") and plain milliseconds ("10000").
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultVal
}
