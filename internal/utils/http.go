package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/kaptinlin/jsonrepair"

	"github.com/leofalp/aichat/providers/observability"
)

// maxErrorPreview bounds the portion of a failing response body copied into errors.
const maxErrorPreview = 500

// HeaderOption is an extra request header applied after the defaults.
type HeaderOption struct {
	Key   string
	Value string
}

// StatusError is returned when a vendor answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status %d: %s", e.StatusCode, e.Body)
}

// DoPostSync performs a synchronous HTTP POST request with JSON body and parses the response.
//
// The apiKey, when set, is sent as a bearer token. Vendors that authenticate
// differently pass an empty apiKey and supply their own header instead.
//
// Error Handling Strategy:
//   - Context errors (timeout, cancellation) are propagated immediately
//   - Non-2xx statuses return a *StatusError whose body is converted to
//     markdown when the vendor answered with an HTML error page
//   - Malformed JSON bodies are repaired once before giving up
//   - Response body close errors are logged but don't override primary errors
func DoPostSync[OutputStruct any](ctx context.Context, client *http.Client, url string, apiKey string, body any, headers ...HeaderOption) (*http.Response, *OutputStruct, error) {
	span := observability.SpanFromContext(ctx)

	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("error marshaling body: %w", err)
	}

	if span != nil {
		span.AddEvent("http.request.prepared",
			observability.String(observability.AttrHTTPMethod, http.MethodPost),
			observability.String(observability.AttrHTTPURL, url),
			observability.Int(observability.AttrHTTPRequestBodySize, len(jsonBody)),
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	for _, header := range headers {
		req.Header.Set(header.Key, header.Value)
	}

	requestStart := time.Now()
	res, err := httpClient.Do(req)
	requestDuration := time.Since(requestStart)
	if err != nil {
		if span != nil {
			span.AddEvent("http.request.error",
				observability.Error(err),
				observability.Duration("http.request.duration", requestDuration),
			)
		}
		return res, nil, fmt.Errorf("error sending request: %w", err)
	}
	defer CloseWithLog(res.Body)

	respBody, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBodySize))
	if err != nil {
		return res, nil, fmt.Errorf("error reading response body: %w", err)
	}

	if span != nil {
		span.AddEvent("http.response.received",
			observability.Int(observability.AttrHTTPStatusCode, res.StatusCode),
			observability.Int(observability.AttrHTTPResponseBodySize, len(respBody)),
			observability.Duration("http.request.duration", requestDuration),
		)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return res, nil, &StatusError{
			StatusCode: res.StatusCode,
			Body:       describeErrorBody(res.Header.Get("Content-Type"), respBody),
		}
	}

	resStruct, err := UnmarshalLenient[OutputStruct](respBody)
	if err != nil {
		return res, nil, fmt.Errorf("error unmarshaling response body (status %d): %w\nResponse preview: %s",
			res.StatusCode, err, TruncateString(string(respBody), maxErrorPreview))
	}
	return res, &resStruct, nil
}

// UnmarshalLenient decodes data into T. Bodies that fail to parse are passed
// through jsonrepair once, which recovers from truncated objects and trailing
// garbage some gateways append.
func UnmarshalLenient[T any](data []byte) (T, error) {
	var result T
	err := json.Unmarshal(data, &result)
	if err == nil {
		return result, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(string(data))
	if repairErr != nil {
		return result, fmt.Errorf("%w (repair failed: %v)", err, repairErr)
	}
	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		return result, fmt.Errorf("unmarshal repaired JSON: %w", err)
	}
	return result, nil
}

// describeErrorBody turns a failing response body into something readable in
// a terminal. Proxies in front of the vendors tend to answer with HTML pages.
func describeErrorBody(contentType string, body []byte) string {
	text := strings.TrimSpace(string(body))
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil && mediaType == "text/html" {
		if markdown, convErr := htmltomarkdown.ConvertString(text); convErr == nil {
			text = strings.TrimSpace(markdown)
		}
	}
	return TruncateString(text, maxErrorPreview)
}

// CloseWithLog closes c and logs a failure instead of returning it.
func CloseWithLog(c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err.Error())
	}
}
