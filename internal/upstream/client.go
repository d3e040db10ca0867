// Package upstream talks to the configured upstream npm registry: metadata
// GETs with conditional revalidation, tarball GET/HEAD, and an audit
// passthrough, all through one shared *http.Client with bounded retry.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Response is a streaming upstream response; callers must Close Body.
type Response struct {
	Status int
	Etag   string
	Header http.Header
	Body   io.ReadCloser
}

type Client struct {
	base       string
	http       *http.Client
	tarballHTTP *http.Client
	retries    int
	log        *logrus.Logger
}

// New builds a Client. connectTimeout/readTimeout bound metadata/JSON
// calls; tarballTimeout is a separate, longer cap for tarball bodies.
func New(baseURL string, connectTimeout, readTimeout, tarballTimeout time.Duration, retries int, log *logrus.Logger) *Client {
	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		base:        strings.TrimSuffix(baseURL, "/"),
		http:        &http.Client{Transport: transport, Timeout: readTimeout},
		tarballHTTP: &http.Client{Transport: transport, Timeout: tarballTimeout},
		retries:     retries,
		log:         log,
	}
}

// GetMetadata issues a conditional GET for a package's metadata document.
// ifNoneMatch may be empty.
func (c *Client) GetMetadata(ctx context.Context, name, ifNoneMatch string) (*Response, error) {
	url := fmt.Sprintf("%s/%s", c.base, encodePathSegment(name))
	return c.doWithRetry(ctx, c.http, http.MethodGet, url, ifNoneMatch)
}

// GetTarball streams a tarball body from upstream.
func (c *Client) GetTarball(ctx context.Context, name, filename string) (*Response, error) {
	url := fmt.Sprintf("%s/%s/-/%s", c.base, encodePathSegment(name), filename)
	return c.doWithRetry(ctx, c.tarballHTTP, http.MethodGet, url, "")
}

// HeadTarball issues a HEAD for a tarball, used only when no local row
// exists yet and the caller just needs size/etag before deciding to fetch.
func (c *Client) HeadTarball(ctx context.Context, name, filename string) (*Response, error) {
	url := fmt.Sprintf("%s/%s/-/%s", c.base, encodePathSegment(name), filename)
	return c.doWithRetry(ctx, c.http, http.MethodHead, url, "")
}

// AuditBulk is a byte-for-byte passthrough of npm's security audit
// endpoints.
func (c *Client) AuditBulk(ctx context.Context, path string, body io.Reader) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	return &Response{Status: resp.StatusCode, Etag: resp.Header.Get("ETag"), Header: resp.Header, Body: resp.Body}, nil
}

// doWithRetry retries connection errors and 5xx responses up to c.retries
// times with capped exponential backoff; 4xx is never retried.
func (c *Client) doWithRetry(ctx context.Context, client *http.Client, method, url, ifNoneMatch string) (*Response, error) {
	var lastErr error
	backoff := 200 * time.Millisecond
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return nil, err
		}
		if ifNoneMatch != "" {
			req.Header.Set("If-None-Match", ifNoneMatch)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			if c.log != nil {
				c.log.WithFields(logrus.Fields{"action": "upstream_retry", "url": url, "attempt": attempt}).Warn(err.Error())
			}
			continue
		}
		if resp.StatusCode >= 500 && attempt < c.retries {
			resp.Body.Close()
			lastErr = fmt.Errorf("upstream returned %d", resp.StatusCode)
			continue
		}
		return &Response{
			Status: resp.StatusCode,
			Etag:   resp.Header.Get("ETag"),
			Header: resp.Header,
			Body:   resp.Body,
		}, nil
	}
	return nil, fmt.Errorf("upstream request failed after %d attempts: %w", c.retries+1, lastErr)
}

func encodePathSegment(name string) string {
	// npm scoped names are sent to upstream with a literal "/", not
	// percent-encoded; the registry.npmjs.org API accepts @scope/name
	// directly in the path.
	return name
}
