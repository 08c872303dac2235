package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/instanthost/internal/client/models"
	"github.com/dmitrijs2005/instanthost/internal/common"
)

// maxResponseBody bounds how much of an API response is read.
const maxResponseBody = 10 << 20

type HTTPClient struct {
	baseURL    string
	apiKey     string
	requestID  string
	httpClient *http.Client
}

type Option func(*HTTPClient)

// WithAPIKey attaches "Authorization: Bearer <key>" to publish and finalize
// calls. An empty key means anonymous mode.
func WithAPIKey(key string) Option {
	return func(c *HTTPClient) { c.apiKey = key }
}

// WithRequestID sets the X-Request-Id header on every API call.
func WithRequestID(id string) Option {
	return func(c *HTTPClient) { c.requestID = id }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// NewHTTPClient returns a Client talking JSON over HTTP to baseURL.
func NewHTTPClient(baseURL string, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host required", baseURL)
	}

	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Authenticated reports whether calls carry a bearer token.
func (c *HTTPClient) Authenticated() bool {
	return c.apiKey != ""
}

// Publish sends the manifest. With an empty slug it POSTs to
// /api/v1/publish, otherwise it PUTs to /api/v1/publish/{slug}.
func (c *HTTPClient) Publish(ctx context.Context, slug string, req *models.PublishRequest) (*models.PublishResponse, error) {
	method, endpoint := http.MethodPost, c.baseURL+common.PublishPath
	if slug != "" {
		method, endpoint = http.MethodPut, endpoint+"/"+url.PathEscape(slug)
	}

	var resp models.PublishResponse
	if err := c.doJSON(ctx, OpPublish, method, endpoint, req, &resp); err != nil {
		return nil, err
	}
	if err := validatePublishResponse(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// finalizeReply keeps "success" nullable so an omitted flag can be told
// apart from an explicit false.
type finalizeReply struct {
	models.FinalizeResponse
	Success *bool `json:"success"`
}

// Finalize POSTs {versionId} to the session's finalize URL. A 2xx reply
// without a body counts as committed; an explicit "success": false does not.
func (c *HTTPClient) Finalize(ctx context.Context, finalizeURL string, versionID string) (*models.FinalizeResponse, error) {
	var reply finalizeReply
	err := c.doJSON(ctx, OpFinalize, http.MethodPost, finalizeURL, &models.FinalizeRequest{VersionID: versionID}, &reply)
	if err != nil {
		return nil, err
	}
	if reply.Success != nil && !*reply.Success {
		return nil, &ProtocolError{Op: OpFinalize, Message: "server did not confirm the version"}
	}
	resp := reply.FinalizeResponse
	resp.Success = reply.Success != nil
	return &resp, nil
}

// errorEnvelope detects the server's {"error": "..."} shape regardless of
// the HTTP status it came with.
type errorEnvelope struct {
	Error *string `json:"error"`
}

func (c *HTTPClient) doJSON(ctx context.Context, op, method, endpoint string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set(common.ContentTypeHeaderName, "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+c.apiKey)
	}
	if c.requestID != "" {
		req.Header.Set(common.RequestIDHeaderName, c.requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}
		return fmt.Errorf("%s %s: %w: %w", op, endpoint, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%s: read response: %w: %w", op, ErrUnavailable, err)
	}

	return decodeResponse(op, resp, raw, out)
}

func decodeResponse(op string, resp *http.Response, raw []byte, out any) error {
	success := resp.StatusCode >= 200 && resp.StatusCode <= 299
	if success && len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if !success {
			return &ProtocolError{Op: op, StatusCode: resp.StatusCode, Message: resp.Status}
		}
		return &ProtocolError{Op: op, StatusCode: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}
	if env.Error != nil {
		return &ProtocolError{Op: op, StatusCode: resp.StatusCode, Message: *env.Error, ServerReported: true}
	}
	if !success {
		return &ProtocolError{Op: op, StatusCode: resp.StatusCode, Message: resp.Status}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &ProtocolError{Op: op, StatusCode: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}
	return nil
}
