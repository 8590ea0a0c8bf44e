package storage

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/http/httpproxy"
	"k8s.io/klog/v2"
)

const defaultRetries = 3

// BaseStorageProvider provides the HTTP plumbing shared by management API clients
type BaseStorageProvider struct {
	Client     *retryablehttp.Client
	BaseURL    string
	Username   string
	Password   string
	AccessInfo StorageAccessInfo
}

// InitHTTPClient initializes the retrying HTTP client with SSL and proxy configuration.
// Requests are retried only when no response was received; once the backend
// answers, its reply is final.
func (b *BaseStorageProvider) InitHTTPClient(skipSSLVerify bool, retries int) {
	proxyFunc := httpproxy.FromEnvironment().ProxyFunc()
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: skipSSLVerify,
		},
		Proxy: func(req *http.Request) (*url.URL, error) {
			return proxyFunc(req.URL)
		},
	}
	if retries < 0 {
		retries = defaultRetries
	}

	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{
		Transport:     transport,
		Timeout:       30 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	client.RetryMax = retries
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.Logger = klogLeveledLogger{}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if resp != nil {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	b.Client = client
}

// DoRequest performs an HTTP request with basic auth
func (b *BaseStorageProvider) DoRequest(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	reqURL := b.BaseURL + endpoint

	req, err := retryablehttp.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(b.Username, b.Password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// DoRequestJSON marshals payload, performs the request and unmarshals the JSON response
func (b *BaseStorageProvider) DoRequestJSON(ctx context.Context, method, endpoint string, payload, result interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	data, err := b.DoRequest(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// HTTPStatusError is returned when the management endpoint answers with an HTTP error
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// TransportError is returned when no response was received from the endpoint
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// klogLeveledLogger routes retryablehttp logs to klog
type klogLeveledLogger struct{}

func (klogLeveledLogger) Error(msg string, keysAndValues ...interface{}) {
	klog.ErrorS(nil, msg, keysAndValues...)
}

func (klogLeveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	klog.InfoS("WARN "+msg, keysAndValues...)
}

func (klogLeveledLogger) Info(msg string, keysAndValues ...interface{}) {
	klog.V(2).InfoS(msg, keysAndValues...)
}

func (klogLeveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	klog.V(4).InfoS(msg, keysAndValues...)
}
