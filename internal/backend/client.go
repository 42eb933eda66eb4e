// Package backend talks to the hosted auth, data and realtime services.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/abhijith/smart-bookmark/internal/logger"
	"github.com/abhijith/smart-bookmark/internal/models"
	"github.com/abhijith/smart-bookmark/internal/telemetry"
)

const userAgent = "smart-bookmark/1.0"

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Client is the HTTP client for the auth and rest APIs.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     logger.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

func NewClient(baseURL, apiKey string, httpClient *http.Client, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     log,
		tracer:     telemetry.Tracer(),
		now:        time.Now,
	}
}

// BaseURL returns the backend root URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// APIKey returns the public (anon) key sent with every request.
func (c *Client) APIKey() string { return c.apiKey }

type request struct {
	method  string
	path    string
	query   url.Values
	token   string
	body    any
	headers map[string]string
}

// do sends req and decodes a 2xx JSON body into out (when out is non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	ctx, span := c.tracer.Start(ctx, "backend "+req.method+" "+req.path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.method),
			attribute.String("backend.path", req.path),
		))
	defer span.End()

	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("apikey", c.apiKey)
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	token := req.token
	if token == "" {
		token = c.apiKey
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	start := c.now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("backend request failed",
			logger.String("method", req.method),
			logger.String("path", req.path),
			logger.Error(err))
		return fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.Debug("backend request",
		logger.String("method", req.method),
		logger.String("path", req.path),
		logger.Int("status", resp.StatusCode),
		logger.Duration("duration", c.now().Sub(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		berr := decodeError(resp.StatusCode, data)
		span.SetStatus(codes.Error, berr.Error())
		return berr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", req.method, req.path, err)
	}
	return nil
}

// decodeError maps an error body from either the auth or the rest API.
func decodeError(status int, body []byte) *models.BackendError {
	be := &models.BackendError{Status: status}
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error_code", "code"} {
			if v := gjson.GetBytes(body, path); v.Exists() && v.String() != "" {
				be.Code = v.String()
				break
			}
		}
		for _, path := range []string{"msg", "message", "error_description", "error"} {
			if v := gjson.GetBytes(body, path); v.Exists() && v.Type == gjson.String && v.String() != "" {
				be.Message = v.String()
				break
			}
		}
	}
	if be.Message == "" {
		be.Message = strings.TrimSpace(string(body))
	}
	if be.Message == "" {
		be.Message = http.StatusText(status)
	}
	return be
}
