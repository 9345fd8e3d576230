package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"railsim/pkg/driver"
	"railsim/pkg/metrics"
	"railsim/pkg/otel"
	"railsim/pkg/types"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	password   string
	tracer     trace.Tracer
}

type PushRequest struct {
	Streams []Stream `json:"streams"`
}

type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

// NewClient creates a Loki client. Basic auth is sent only when both username
// and password are set.
func NewClient(baseURL, username, password string) *Client {
	client := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   30 * time.Second,
	}

	return &Client{
		httpClient: client,
		baseURL:    baseURL,
		username:   username,
		password:   password,
		tracer:     otelapi.Tracer("loki-client"),
	}
}

// SendSnapshot pushes one JSON log line per train, grouped in one stream per
// train category.
func (c *Client) SendSnapshot(ctx context.Context, snap types.Snapshot) error {
	ctx, span := c.tracer.Start(ctx, "loki.send_snapshot",
		trace.WithAttributes(
			attribute.String("snapshot_id", snap.ID),
			attribute.Int("trains_count", len(snap.Trains)),
		),
	)
	defer span.End()

	if len(snap.Trains) == 0 {
		span.SetAttributes(attribute.Bool("skipped", true))
		return nil
	}

	start := time.Now()
	ts := strconv.FormatInt(snap.Timestamp.UnixNano(), 10)

	byCategory := make(map[types.Category]*Stream)
	var order []types.Category
	for _, t := range snap.Trains {
		line, err := json.Marshal(driver.TrainLogLine(snap, t))
		if err != nil {
			otel.RecordError(span, err, otel.ErrorTypeParse, false)
			return fmt.Errorf("failed to marshal train JSON: %w", err)
		}

		s, ok := byCategory[t.Category]
		if !ok {
			s = &Stream{Stream: map[string]string{
				"job":      otel.ServiceName,
				"service":  "fleet",
				"category": string(t.Category),
			}}
			byCategory[t.Category] = s
			order = append(order, t.Category)
		}
		s.Values = append(s.Values, []string{ts, string(line)})
	}

	lokiReq := PushRequest{Streams: make([]Stream, 0, len(order))}
	for _, cat := range order {
		lokiReq.Streams = append(lokiReq.Streams, *byCategory[cat])
	}

	reqBody, err := json.Marshal(lokiReq)
	if err != nil {
		otel.RecordError(span, err, otel.ErrorTypeParse, false)
		return fmt.Errorf("failed to marshal Loki request: %w", err)
	}

	url := fmt.Sprintf("%s/loki/api/v1/push", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		otel.RecordError(span, err, otel.ErrorTypeHTTP, false)
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", otel.ServiceName+"/"+otel.Version)

	if c.username != "" && c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	span.SetAttributes(
		attribute.Bool("auth.enabled", c.username != "" && c.password != ""),
		attribute.Int("request.size_bytes", len(reqBody)),
		attribute.Int("streams_count", len(lokiReq.Streams)),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		otel.RecordError(span, err, otel.ErrorTypeNetwork, true)
		c.record(ctx, start, "error")
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("loki returned status %d", resp.StatusCode)
		otel.RecordError(span, err, otel.ErrorTypeHTTP, resp.StatusCode >= 500)
		c.record(ctx, start, "error")
		return err
	}

	otel.SetSpanOk(span)
	c.record(ctx, start, "ok")
	return nil
}

func (c *Client) record(ctx context.Context, start time.Time, status string) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	metrics.LokiSendTotal.Add(ctx, 1, attrs)
	metrics.LokiSendDuration.Record(ctx, time.Since(start).Seconds(), attrs)
}

// Observer ships every snapshot to Loki. Each push is cut off after timeout
// (zero leaves only the HTTP client timeout) so a hanging Loki cannot hold a
// snapshot queue forever. Push failures are logged and the snapshot is skipped.
func (c *Client) Observer(timeout time.Duration) driver.Observer {
	return func(ctx context.Context, snap types.Snapshot) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		if err := c.SendSnapshot(ctx, snap); err != nil {
			slog.Error("Failed to send snapshot to Loki", "tick", snap.Tick, "error", err)
			return
		}
		slog.Debug("Sent snapshot to Loki", "tick", snap.Tick, "trains", len(snap.Trains))
	}
}
