// Package ocidoc implements port.DocumentAnalyzer against the OCI Document
// Understanding AnalyzeDocument REST action.
package ocidoc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/oracle/oci-go-sdk/v65/common"

	"invoicescan/internal/analyzer"
	"invoicescan/internal/config"
	"invoicescan/internal/domain"
	"invoicescan/internal/metrics"
)

const (
	serviceName    = "ocidoc"
	analyzePath    = "/20221109/actions/analyzeDocument"
	maxErrBodySize = 2048
	maxRetryAfter  = 5 * time.Second
)

// RequestSigner adds OCI request-signature headers to an outgoing request.
// common.HTTPRequestSigner satisfies it.
type RequestSigner interface {
	Sign(r *http.Request) error
}

// Client calls the AnalyzeDocument action and converts the response into a field tree.
type Client struct {
	endpoint      string
	signer        RequestSigner
	compartmentID string
	maxResults    int
	maxRetries    int
	backoff       time.Duration
	client        *http.Client
}

// NewSigner loads the API signing key from the configured OCI profile, or from
// the SDK's default config locations when no file is set. An empty endpoint
// in cfg is filled from the profile region.
func NewSigner(cfg *config.AnalyzerConfig) (RequestSigner, error) {
	provider := common.DefaultConfigProvider()
	if cfg.ConfigFile != "" {
		var err error
		provider, err = common.ConfigurationProviderFromFileWithProfile(cfg.ConfigFile, cfg.Profile, "")
		if err != nil {
			return nil, fmt.Errorf("reading OCI config: %w", err)
		}
	}
	if ok, err := common.IsConfigurationProviderValid(provider); !ok {
		return nil, fmt.Errorf("loading OCI signing key: %w", err)
	}
	if cfg.Endpoint == "" {
		region, err := provider.Region()
		if err != nil {
			return nil, fmt.Errorf("resolving OCI region: %w", err)
		}
		cfg.Endpoint = regionEndpoint(region)
	}
	return common.DefaultRequestSigner(provider), nil
}

func regionEndpoint(region string) string {
	return fmt.Sprintf("https://document.aiservice.%s.oci.oraclecloud.com", region)
}

// NewClient creates a document-analysis client from config. Every request
// is signed by signer before it is sent.
func NewClient(cfg *config.AnalyzerConfig, signer RequestSigner) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Client{
		endpoint:      strings.TrimRight(cfg.Endpoint, "/"),
		signer:        signer,
		compartmentID: cfg.CompartmentID,
		maxResults:    maxResults,
		maxRetries:    cfg.MaxRetries,
		backoff:       time.Duration(cfg.RetryBackoffMilli) * time.Millisecond,
		client:        &http.Client{Timeout: timeout},
	}
}

// Analyze submits the PDF inline with key-value extraction and classification
// enabled. 429 and 5xx responses are retried up to maxRetries times.
func (c *Client) Analyze(ctx context.Context, pdf []byte) (*domain.AnalyzedDocument, error) {
	body, err := json.Marshal(c.buildRequest(pdf))
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.retryDelay(attempt, lastErr)); err != nil {
				return nil, err
			}
		}
		respBody, err := c.do(ctx, body)
		if err == nil {
			return decodeResponse(respBody)
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) buildRequest(pdf []byte) analyzeRequest {
	return analyzeRequest{
		CompartmentID: c.compartmentID,
		Document: inlineDocument{
			Source: "INLINE",
			Data:   base64.StdEncoding.EncodeToString(pdf),
		},
		Features: []feature{
			{FeatureType: "KEY_VALUE_EXTRACTION"},
			{FeatureType: "DOCUMENT_CLASSIFICATION", MaxResults: c.maxResults},
		},
	}
}

func (c *Client) do(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+analyzePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	// The signature covers date, host and the body headers.
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	if err := c.signer.Sign(req); err != nil {
		return nil, fmt.Errorf("signing request: %w", err)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.AnalyzerRequestDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("calling analysis service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.AnalyzerRequestDuration.WithLabelValues(strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := &analyzer.StatusError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), maxErrBodySize)}
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := analyzer.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, analyzer.NewRateLimitError(serviceName, statusErr, retryAfter)
		}
		return nil, statusErr
	}
	return respBody, nil
}

// retryDelay doubles the base backoff per attempt. A short server-provided
// Retry-After wins over the computed delay.
func (c *Client) retryDelay(attempt int, lastErr error) time.Duration {
	d := c.backoff << (attempt - 1)
	var rl *analyzer.RateLimitError
	if errors.As(lastErr, &rl) && rl.RetryAfter <= maxRetryAfter && rl.RetryAfter > d {
		return rl.RetryAfter
	}
	return d
}

func retryable(err error) bool {
	var rl *analyzer.RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	var se *analyzer.StatusError
	return errors.As(err, &se) && se.Retryable()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
