package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Request describes one API call.
type Request struct {
	Method      string
	URL         string
	Body        string
	ContentType string
	Headers     map[string]string
	AccessToken string
}

// Response is the outcome of an executed request.
type Response struct {
	Code int
	Body []byte
}

// Expected reports whether the status code denotes success.
func (r *Response) Expected() bool {
	return r.Code >= http.StatusOK && r.Code < http.StatusMultipleChoices
}

// Provider executes API requests over one shared HTTP client.
type Provider struct {
	client *http.Client
}

// NewProvider returns a provider whose calls time out after callTimeout.
func NewProvider(callTimeout time.Duration) *Provider {
	return &Provider{client: &http.Client{Timeout: callTimeout}}
}

// Run executes the request. A non-2xx status is returned as a response, not
// an error; errors denote transport failures.
func (p *Provider) Run(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if req.AccessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.AccessToken)
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return &Response{Code: resp.StatusCode, Body: content}, nil
}
