// Package netx performs raw per-file transfers to server-issued upload URLs.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// UploadRequest describes a single transfer. Headers are sent exactly as
// given; ContentLength is used so the body is streamed, not chunked.
type UploadRequest struct {
	Method        string
	URL           string
	Headers       map[string]string
	Body          io.Reader
	ContentLength int64
}

// StatusError is returned when the upload target answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upload failed: %s", e.Status)
	}
	return fmt.Sprintf("upload failed: %s; body: %s", e.Status, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 512

// Upload streams req.Body to req.URL.
func Upload(ctx context.Context, client *http.Client, req UploadRequest) error {
	method := req.Method
	if method == "" {
		method = http.MethodPut
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, req.Body)
	if err != nil {
		return err
	}
	httpReq.ContentLength = req.ContentLength
	if req.ContentLength == 0 {
		httpReq.Body = http.NoBody
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(b)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
