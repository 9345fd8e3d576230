package otel

import (
	"testing"
	"time"
)

func TestGetExporterConfig(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		signal   SignalType
		endpoint string
		protocol Protocol
		insecure bool
	}{
		{
			name:     "defaults",
			signal:   SignalTraces,
			endpoint: "http://localhost:4318/v1/traces",
			protocol: ProtocolHTTPProtobuf,
			insecure: true,
		},
		{
			name:     "grpc default",
			env:      map[string]string{"OTEL_EXPORTER_OTLP_PROTOCOL": "grpc"},
			signal:   SignalMetrics,
			endpoint: "localhost:4317",
			protocol: ProtocolGRPC,
		},
		{
			name:     "base endpoint gets signal path",
			env:      map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "https://otlp.example.com/otlp"},
			signal:   SignalMetrics,
			endpoint: "https://otlp.example.com/otlp/v1/metrics",
			protocol: ProtocolHTTPProtobuf,
		},
		{
			name: "signal endpoint used as is",
			env: map[string]string{
				"OTEL_EXPORTER_OTLP_ENDPOINT":        "https://base.example.com",
				"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT": "collector:4318/custom",
			},
			signal:   SignalTraces,
			endpoint: "https://collector:4318/custom",
			protocol: ProtocolHTTPProtobuf,
		},
		{
			name: "grpc strips scheme and path",
			env: map[string]string{
				"OTEL_EXPORTER_OTLP_PROTOCOL": "grpc",
				"OTEL_EXPORTER_OTLP_ENDPOINT": "http://collector:4317/ignored",
				"OTEL_EXPORTER_OTLP_INSECURE": "true",
			},
			signal:   SignalTraces,
			endpoint: "collector:4317",
			protocol: ProtocolGRPC,
			insecure: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg := GetExporterConfig(tt.signal)

			if cfg.Endpoint != tt.endpoint {
				t.Errorf("Endpoint = %q, want %q", cfg.Endpoint, tt.endpoint)
			}
			if cfg.Protocol != tt.protocol {
				t.Errorf("Protocol = %q, want %q", cfg.Protocol, tt.protocol)
			}
			if cfg.Insecure != tt.insecure {
				t.Errorf("Insecure = %v, want %v", cfg.Insecure, tt.insecure)
			}
		})
	}
}

func TestParseHeaders(t *testing.T) {
	headers := parseHeaders("Authorization=Basic abc==, X-Scope-OrgID=tenant")

	if headers["Authorization"] != "Basic abc==" {
		t.Errorf("Authorization = %q", headers["Authorization"])
	}
	if headers["X-Scope-OrgID"] != "tenant" {
		t.Errorf("X-Scope-OrgID = %q", headers["X-Scope-OrgID"])
	}
	if len(parseHeaders("")) != 0 {
		t.Error("expected no headers for empty input")
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 10 * time.Second},
		{"5s", 5 * time.Second},
		{"2500", 2500 * time.Millisecond},
		{"soon", 10 * time.Second},
	}

	for _, tt := range tests {
		if got := parseDuration(tt.in, 10*time.Second); got != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
