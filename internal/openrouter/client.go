package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/runixer/trendstudio/internal/jobtype"
)

// Retry configuration
const (
	maxRetries   = 3
	baseDelay    = 1 * time.Second
	maxDelay     = 30 * time.Second
	jitterFactor = 0.2 // 20% jitter
)

// DefaultBaseURL is the public OpenRouter API root.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// ErrNoImage is returned when the model answered without any image.
var ErrNoImage = errors.New("model returned no image")

// APIError is a non-OK response from OpenRouter after retries.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openrouter API error: %s", e.Status)
}

type Client interface {
	CreateImage(ctx context.Context, req ImageRequest) (ImageResponse, error)
}

// truncateForLog truncates a string to maxLen characters for logging.
// Adds "... (truncated)" suffix if truncation occurred.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "... (truncated)"
}

type clientImpl struct {
	httpClient  *http.Client
	apiKey      string
	apiEndpoint string
	logger      *slog.Logger
	backoff     func(attempt int) time.Duration
}

// isRetryableStatusCode returns true if the HTTP status code indicates a retryable error.
func isRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests, // 429
		http.StatusInternalServerError, // 500
		http.StatusBadGateway,          // 502
		http.StatusServiceUnavailable,  // 503
		http.StatusGatewayTimeout:      // 504
		return true
	default:
		return false
	}
}

// isRetryableError returns true if the error is a network/timeout error that should be retried.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// calculateBackoff returns the delay for the given attempt using exponential backoff with jitter.
func calculateBackoff(attempt int) time.Duration {
	// 2^5 seconds is already above maxDelay
	if attempt > 5 {
		attempt = 5
	}
	delay := baseDelay * time.Duration(1<<attempt)
	if delay > maxDelay {
		delay = maxDelay
	}

	// ±20%
	jitter := time.Duration(float64(delay) * jitterFactor * (2*rand.Float64() - 1))
	return delay + jitter
}

type ImageURL struct {
	URL string `json:"url"`
}

type ImagePart struct {
	Type     string   `json:"type"`
	ImageURL ImageURL `json:"image_url"`
}

type TextPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// ImageConfig carries the image generation options understood by Gemini image models.
type ImageConfig struct {
	AspectRatio string `json:"aspect_ratio,omitempty"`
	ImageSize   string `json:"image_size,omitempty"`
}

// ImageRequest describes one image generation call.
// InputImage is an optional data URL or https URL sent alongside the prompt.
type ImageRequest struct {
	Model       string
	Prompt      string
	InputImage  string
	AspectRatio string
	ImageSize   string
	Temperature *float64
	Seed        *int64
}

// chatImageRequest is the wire body of an image-producing chat completion.
type chatImageRequest struct {
	Model       string       `json:"model"`
	Messages    []Message    `json:"messages"`
	Modalities  []string     `json:"modalities"`
	ImageConfig *ImageConfig `json:"image_config,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
	Seed        *int64       `json:"seed,omitempty"`
}

func (r ImageRequest) wireBody() chatImageRequest {
	var content interface{} = r.Prompt
	if r.InputImage != "" {
		content = []interface{}{
			TextPart{Type: "text", Text: r.Prompt},
			ImagePart{Type: "image_url", ImageURL: ImageURL{URL: r.InputImage}},
		}
	}

	body := chatImageRequest{
		Model:       r.Model,
		Messages:    []Message{{Role: "user", Content: content}},
		Modalities:  []string{"image", "text"},
		Temperature: r.Temperature,
		Seed:        r.Seed,
	}
	if r.AspectRatio != "" || r.ImageSize != "" {
		body.ImageConfig = &ImageConfig{AspectRatio: r.AspectRatio, ImageSize: r.ImageSize}
	}
	return body
}

type Usage struct {
	PromptTokens     int      `json:"prompt_tokens"`
	CompletionTokens int      `json:"completion_tokens"`
	TotalTokens      int      `json:"total_tokens"`
	Cost             *float64 `json:"cost,omitempty"` // Cost in USD from OpenRouter
}

type ImageResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string      `json:"role"`
			Content string      `json:"content"`
			Images  []ImagePart `json:"images,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason,omitempty"`
		Index        int    `json:"index"`
	} `json:"choices"`
	Usage Usage `json:"usage"`

	// DebugRequestBody contains the raw JSON request body sent to OpenRouter.
	// Not part of API response - populated by client for the exchange log.
	DebugRequestBody string `json:"-"`

	// DebugResponseBody contains the raw JSON response body from OpenRouter.
	// Not part of API response - populated by client for the exchange log.
	DebugResponseBody string `json:"-"`
}

// ImageURLs returns every generated image URL in response order.
func (r ImageResponse) ImageURLs() []string {
	var urls []string
	for _, choice := range r.Choices {
		for _, img := range choice.Message.Images {
			if img.ImageURL.URL != "" {
				urls = append(urls, img.ImageURL.URL)
			}
		}
	}
	return urls
}

// Text returns the text content of the first choice.
func (r ImageResponse) Text() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

func NewClient(logger *slog.Logger, apiKey, proxyURL string) (Client, error) {
	return NewClientWithBaseURL(logger, apiKey, proxyURL, DefaultBaseURL)
}

func NewClientWithBaseURL(logger *slog.Logger, apiKey, proxyURL, baseURL string) (Client, error) {
	return newClient(logger, apiKey, proxyURL, baseURL)
}

func newClient(logger *slog.Logger, apiKey, proxyURL, baseURL string) (*clientImpl, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConnsPerHost:   10,
	}

	if proxyURL != "" {
		proxy, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	clientLogger := logger.With("component", "openrouter_client")

	if proxyURL != "" {
		safeProxyURL := proxyURL
		if u, err := url.Parse(proxyURL); err == nil {
			if u.User != nil {
				u.User = url.UserPassword(u.User.Username(), "*****")
				safeProxyURL = u.String()
			}
		}
		clientLogger.Info("Using proxy for OpenRouter", "proxy_url", safeProxyURL)
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &clientImpl{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   300 * time.Second, // Image models at 4K can take minutes
		},
		apiKey:      apiKey,
		apiEndpoint: baseURL,
		logger:      clientLogger,
		backoff:     calculateBackoff,
	}, nil
}

func (c *clientImpl) CreateImage(ctx context.Context, req ImageRequest) (ImageResponse, error) {
	startTime := time.Now()
	jt := jobtype.FromContext(ctx).String()

	c.logger.Info("Sending image request to OpenRouter",
		"model", req.Model,
		"prompt_chars", len(req.Prompt),
		"prompt_preview", truncateForLog(req.Prompt, 200),
		"has_input_image", req.InputImage != "",
		"aspect_ratio", req.AspectRatio,
		"image_size", req.ImageSize,
		"job_type", jt,
	)

	body, err := json.Marshal(req.wireBody())
	if err != nil {
		return ImageResponse{}, err
	}

	endpoint, err := url.JoinPath(c.apiEndpoint, "chat/completions")
	if err != nil {
		return ImageResponse{}, err
	}

	fail := func(resp ImageResponse, err error) (ImageResponse, error) {
		RecordImageRequest(req.Model, time.Since(startTime).Seconds(), false, 0, 0, 0, nil, jt)
		return resp, err
	}

	responseBody, err := c.post(ctx, endpoint, body, req.Model)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return fail(ImageResponse{DebugRequestBody: string(body), DebugResponseBody: apiErr.Body}, err)
		}
		return fail(ImageResponse{DebugRequestBody: string(body)}, err)
	}

	var imageResp ImageResponse
	if err := json.Unmarshal(responseBody, &imageResp); err != nil {
		c.logger.Error("Failed to decode OpenRouter response", "error", err, "body_length", len(responseBody))
		return fail(ImageResponse{DebugRequestBody: string(body), DebugResponseBody: string(responseBody)}, err)
	}

	imageResp.DebugRequestBody = string(body)
	imageResp.DebugResponseBody = string(responseBody)

	urls := imageResp.ImageURLs()
	if len(urls) == 0 {
		c.logger.Warn("OpenRouter response has no images",
			"model", imageResp.Model,
			"content_preview", truncateForLog(imageResp.Text(), 500),
		)
		return fail(imageResp, ErrNoImage)
	}

	c.logger.Info("OpenRouter image response parsed successfully",
		"model", imageResp.Model,
		"images", len(urls),
		"prompt_tokens", imageResp.Usage.PromptTokens,
		"completion_tokens", imageResp.Usage.CompletionTokens,
		"cost", imageResp.Usage.Cost,
	)

	RecordImageRequest(req.Model, time.Since(startTime).Seconds(), true, len(urls),
		imageResp.Usage.PromptTokens, imageResp.Usage.CompletionTokens, imageResp.Usage.Cost, jt)

	return imageResp, nil
}

// post sends body to endpoint, retrying transient failures with backoff.
func (c *clientImpl) post(ctx context.Context, endpoint string, body []byte, model string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			RecordLLMRetry(model)
			delay := c.backoff(attempt - 1)
			c.logger.Warn("Retrying OpenRouter request",
				"attempt", attempt,
				"max_retries", maxRetries,
				"delay", delay,
				"last_error", lastErr,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}

		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("User-Agent", "trendstudio/1.0")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if isRetryableError(err) && attempt < maxRetries {
				lastErr = err
				continue
			}
			return nil, err
		}

		responseBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			if isRetryableError(err) && attempt < maxRetries {
				lastErr = err
				continue
			}
			return nil, err
		}

		c.logger.Debug("OpenRouter response received", "status", resp.Status, "attempt", attempt)

		if resp.StatusCode == http.StatusOK {
			return responseBody, nil
		}

		apiErr := &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(responseBody)}
		if isRetryableStatusCode(resp.StatusCode) && attempt < maxRetries {
			lastErr = apiErr
			continue
		}

		c.logger.Error("OpenRouter returned non-OK status",
			"status", resp.Status,
			"body", truncateForLog(strings.TrimSpace(string(responseBody)), 2000),
		)
		return nil, apiErr
	}

	return nil, lastErr
}
