package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/openexcavate/fieldbook-backend/internal/pkg/envutil"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
)

// Prefer header values understood by the data API.
const (
	PreferRepresentation  = "return=representation"
	PreferMergeDuplicates = "resolution=merge-duplicates"
)

// Row is one JSON row as returned by a collection endpoint.
type Row = map[string]any

// TokenSource supplies the current bearer token. Refresh happens on a timer
// elsewhere; a stale token simply fails the request, there is no retry-on-401.
type TokenSource interface {
	Token() string
}

// Client is the transport to the PostgREST data API. Every entity exposes a
// denormalized read relation (view_X / v_X) and a normalized write relation
// (edit_X); both are plain resources here. No retries, no request dedup.
type Client interface {
	Request(ctx context.Context, method, resourcePath string, body any, prefer string) ([]Row, error)
	Get(ctx context.Context, resource string, f Filter) ([]Row, error)
	Post(ctx context.Context, resource string, body any, prefer string) ([]Row, error)
	Patch(ctx context.Context, resource string, f Filter, body any, prefer string) ([]Row, error)
	Delete(ctx context.Context, resource string, f Filter) error
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL: envutil.String("DATA_API_BASE_URL", "http://localhost:3000"),
		Timeout: envutil.DurationSeconds("DATA_API_TIMEOUT_SECONDS", 30*time.Second),
	}
}

type client struct {
	log        *logger.Logger
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

func New(log *logger.Logger, cfg Config, tokens TokenSource) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("missing DATA_API_BASE_URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &client{
		log:        log.With("service", "PostgRESTClient"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Error is a non-2xx response, carrying the API's structured error payload
// when one was present.
type Error struct {
	StatusCode int
	Payload    ErrorPayload
	Body       string
}

// ErrorPayload is the PostgREST error shape.
type ErrorPayload struct {
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
	Code    string `json:"code"`
}

func (e *Error) Error() string {
	if e.Payload.Message != "" {
		return fmt.Sprintf("data api %d: %s", e.StatusCode, e.Payload.Message)
	}
	return fmt.Sprintf("data api %d: %s", e.StatusCode, e.Body)
}

func (e *Error) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) Request(ctx context.Context, method, resourcePath string, body any, prefer string) ([]Row, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete:
	default:
		return nil, fmt.Errorf("unsupported method %q", method)
	}

	tracer := otel.Tracer("postgrest")
	ctx, span := tracer.Start(ctx, "postgrest.request", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("postgrest.resource", resourcePath),
	)

	var buf bytes.Buffer
	if body != nil && method != http.MethodGet {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			span.SetStatus(codes.Error, "encode")
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(resourcePath, "/"), &buf)
	if err != nil {
		span.SetStatus(codes.Error, "request")
		return nil, err
	}
	if tok := c.tokens.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		span.RecordError(readErr)
		return nil, readErr
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode, Body: string(raw)}
		_ = json.Unmarshal(raw, &apiErr.Payload)
		span.SetStatus(codes.Error, apiErr.Error())
		c.log.Warn("data api request failed",
			"method", method,
			"resource", resourcePath,
			"status", resp.StatusCode,
			"message", apiErr.Payload.Message,
		)
		return nil, apiErr
	}

	return decodeRows(raw)
}

// decodeRows accepts an array body, a single-object body, or no body at all.
func decodeRows(raw []byte) ([]Row, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	switch trimmed[0] {
	case '[':
		var rows []Row
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("decode rows: %w", err)
		}
		return rows, nil
	case '{':
		var row Row
		if err := json.Unmarshal(trimmed, &row); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		return []Row{row}, nil
	default:
		return nil, fmt.Errorf("unexpected response body %q", string(trimmed))
	}
}

func (c *client) Get(ctx context.Context, resource string, f Filter) ([]Row, error) {
	return c.Request(ctx, http.MethodGet, f.Path(resource), nil, "")
}

func (c *client) Post(ctx context.Context, resource string, body any, prefer string) ([]Row, error) {
	return c.Request(ctx, http.MethodPost, resource, body, prefer)
}

func (c *client) Patch(ctx context.Context, resource string, f Filter, body any, prefer string) ([]Row, error) {
	return c.Request(ctx, http.MethodPatch, f.Path(resource), body, prefer)
}

func (c *client) Delete(ctx context.Context, resource string, f Filter) error {
	_, err := c.Request(ctx, http.MethodDelete, f.Path(resource), nil, "")
	return err
}
