package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"railsim/pkg/metrics"
	"railsim/pkg/otel"
	"railsim/pkg/types"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const trainsPath = "/api/trains"

// maxErrorBody caps how much of a failed response ends up in the error.
const maxErrorBody = 512

// Client fetches the fleet from another railsim instance. It satisfies
// driver.Source.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tracer     trace.Tracer
}

type trainsResponse struct {
	Trains []types.Train `json:"trains"`
}

// NewClient creates a client for the railsim instance at baseURL
func NewClient(baseURL string) *Client {
	client := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   10 * time.Second,
	}

	return &Client{
		httpClient: client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		tracer:     otelapi.Tracer("upstream-client"),
	}
}

// Next ignores the previous snapshot and returns whatever the upstream
// currently reports. A fleet that fails validation is an error, so the driver
// keeps its previous snapshot.
func (c *Client) Next(ctx context.Context, _ types.Snapshot) ([]types.Train, error) {
	trains, err := c.FetchTrains(ctx)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.UpstreamRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	return trains, err
}

func (c *Client) FetchTrains(ctx context.Context) ([]types.Train, error) {
	url := c.baseURL + trainsPath

	ctx, span := c.tracer.Start(ctx, "upstream.fetch_trains",
		trace.WithAttributes(
			attribute.String("http.url", url),
			attribute.String("http.method", http.MethodGet),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		otel.RecordError(span, err, otel.ErrorTypeHTTP, false)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", otel.ServiceName+"/"+otel.Version)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		otel.RecordError(span, err, otel.ErrorTypeNetwork, true)
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		otel.RecordError(span, err, otel.ErrorTypeHTTP, resp.StatusCode >= 500)
		return nil, err
	}

	var payload trainsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		otel.RecordError(span, err, otel.ErrorTypeParse, false)
		return nil, fmt.Errorf("failed to decode upstream trains: %w", err)
	}
	if payload.Trains == nil {
		err := fmt.Errorf("upstream response has no trains field")
		otel.RecordError(span, err, otel.ErrorTypeParse, false)
		return nil, err
	}

	// the upstream fleet becomes the authoritative snapshot as-is
	if err := types.ValidateTrains(payload.Trains); err != nil {
		otel.RecordError(span, err, otel.ErrorTypeValidation, false)
		return nil, fmt.Errorf("upstream fleet rejected: %w", err)
	}

	span.SetAttributes(attribute.Int("trains_count", len(payload.Trains)))
	otel.SetSpanOk(span)
	return payload.Trains, nil
}
