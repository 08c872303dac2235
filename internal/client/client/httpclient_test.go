package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/instanthost/internal/client/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*************
 * Recording API server
 *************/

type recorded struct {
	method    string
	path      string
	auth      string
	requestID string
	body      []byte
}

func newAPI(t *testing.T, status int, respBody string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		calls = append(calls, recorded{
			method:    r.Method,
			path:      r.URL.Path,
			auth:      r.Header.Get("Authorization"),
			requestID: r.Header.Get("X-Request-Id"),
			body:      b,
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, respBody)
	}))
	t.Cleanup(ts.Close)
	return ts, &calls
}

func twoFileRequest() *models.PublishRequest {
	return models.NewPublishRequest([]models.FileEntry{
		{Path: "index.html", Size: 500, ContentType: "text/html; charset=utf-8"},
		{Path: "img/logo.png", Size: 2000, ContentType: "image/png"},
	})
}

const okSession = `{
  "success": true,
  "slug": "abc123",
  "siteUrl": "https://abc123.host",
  "finalizeUrl": "https://host/api/v1/publish/abc123/finalize",
  "versionId": "v1",
  "uploads": [
    {"path": "index.html", "url": "https://bucket/1", "method": "PUT", "headers": {"Content-Type": "text/html; charset=utf-8"}},
    {"path": "img/logo.png", "url": "https://bucket/2", "method": "PUT", "headers": {"Content-Type": "image/png"}}
  ],
  "anonymous": true,
  "claimToken": "tok",
  "claimUrl": "https://host/claim/xyz",
  "expiresAt": "2026-10-20T10:00:00.000Z"
}`

func TestNewHTTPClient_RejectsBadBaseURL(t *testing.T) {
	for _, u := range []string{"", "ftp://host", "not a url", "https://"} {
		_, err := NewHTTPClient(u)
		assert.Error(t, err, "base url %q", u)
	}
}

func TestPublish_CreateUsesPOST(t *testing.T) {
	ts, calls := newAPI(t, http.StatusOK, okSession)
	c, err := NewHTTPClient(ts.URL+"/", WithHTTPClient(ts.Client()), WithRequestID("run-1"))
	require.NoError(t, err)

	resp, err := c.Publish(context.Background(), "", twoFileRequest())
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	got := (*calls)[0]
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/v1/publish", got.path)
	assert.Empty(t, got.auth, "anonymous calls carry no Authorization header")
	assert.Equal(t, "run-1", got.requestID)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(got.body, &sent))
	assert.Len(t, sent["files"], 2)
	assert.NotContains(t, sent, "ttlSeconds")

	assert.Equal(t, "abc123", resp.Slug)
	assert.True(t, resp.Anonymous)
	require.NotNil(t, resp.ClaimURL)
	assert.Equal(t, "https://host/claim/xyz", *resp.ClaimURL)
	require.NotNil(t, resp.ExpiresAt)
	assert.Equal(t, 2026, resp.ExpiresAt.Year())
}

func TestPublish_UpdateUsesPUTWithSlugAndBearer(t *testing.T) {
	ts, calls := newAPI(t, http.StatusOK, okSession)
	c, err := NewHTTPClient(ts.URL, WithHTTPClient(ts.Client()), WithAPIKey("secret"))
	require.NoError(t, err)
	assert.True(t, c.Authenticated())

	_, err = c.Publish(context.Background(), "abc123", twoFileRequest())
	require.NoError(t, err)

	got := (*calls)[0]
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/api/v1/publish/abc123", got.path)
	assert.Equal(t, "Bearer secret", got.auth)
}

func TestPublish_ServerReportedErrorIsVerbatim(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusForbidden, http.StatusInternalServerError} {
		ts, _ := newAPI(t, status, `{"error": "slug already claimed"}`)
		c, err := NewHTTPClient(ts.URL, WithHTTPClient(ts.Client()))
		require.NoError(t, err)

		_, err = c.Publish(context.Background(), "", twoFileRequest())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrProtocol))
		assert.Equal(t, "slug already claimed", err.Error())

		var pe *ProtocolError
		require.True(t, errors.As(err, &pe))
		assert.True(t, pe.ServerReported)
		assert.Equal(t, status, pe.StatusCode)
	}
}

func TestPublish_NonJSONErrorStatus(t *testing.T) {
	ts, _ := newAPI(t, http.StatusBadGateway, `<html>bad gateway</html>`)
	c, err := NewHTTPClient(ts.URL, WithHTTPClient(ts.Client()))
	require.NoError(t, err)

	_, err = c.Publish(context.Background(), "", twoFileRequest())
	var pe *ProtocolError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusBadGateway, pe.StatusCode)
	assert.False(t, pe.ServerReported)
}

func TestPublish_RejectsInvalidSessions(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "missing slug", body: `{"siteUrl":"s","finalizeUrl":"f","versionId":"v","uploads":[]}`, want: "slug"},
		{name: "missing finalizeUrl", body: `{"slug":"a","siteUrl":"s","versionId":"v","uploads":[]}`, want: "finalizeUrl"},
		{name: "missing uploads", body: `{"slug":"a","siteUrl":"s","finalizeUrl":"f","versionId":"v"}`, want: "uploads"},
		{name: "cardinality", body: `{"slug":"a","siteUrl":"s","finalizeUrl":"f","versionId":"v",
			"uploads":[{"path":"index.html","url":"u","method":"PUT"}]}`, want: "expected 2 upload slots, got 1"},
		{name: "unknown path", body: `{"slug":"a","siteUrl":"s","finalizeUrl":"f","versionId":"v",
			"uploads":[{"path":"index.html","url":"u"},{"path":"other.css","url":"u"}]}`, want: "unknown path"},
		{name: "duplicate path", body: `{"slug":"a","siteUrl":"s","finalizeUrl":"f","versionId":"v",
			"uploads":[{"path":"index.html","url":"u"},{"path":"index.html","url":"u"}]}`, want: "duplicate"},
		{name: "slot without url", body: `{"slug":"a","siteUrl":"s","finalizeUrl":"f","versionId":"v",
			"uploads":[{"path":"index.html"},{"path":"img/logo.png","url":"u"}]}`, want: "uploads[0].url"},
		{name: "not json", body: `OK`, want: "malformed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, _ := newAPI(t, http.StatusOK, tt.body)
			c, err := NewHTTPClient(ts.URL, WithHTTPClient(ts.Client()))
			require.NoError(t, err)

			_, err = c.Publish(context.Background(), "", twoFileRequest())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrProtocol))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPublish_TransportFailureIsUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()

	c, err := NewHTTPClient(ts.URL)
	require.NoError(t, err)

	_, err = c.Publish(context.Background(), "", twoFileRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.False(t, errors.Is(err, ErrProtocol))
}

func TestFinalize_SendsVersionAndBearer(t *testing.T) {
	ts, calls := newAPI(t, http.StatusOK,
		`{"success":true,"slug":"abc123","siteUrl":"https://abc123.host","previousVersionId":null,"currentVersionId":"v1"}`)
	c, err := NewHTTPClient("https://unused.example", WithHTTPClient(ts.Client()), WithAPIKey("secret"))
	require.NoError(t, err)

	resp, err := c.Finalize(context.Background(), ts.URL+"/api/v1/publish/abc123/finalize", "v1")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "v1", resp.CurrentVersionID)
	assert.Nil(t, resp.PreviousVersionID)

	got := (*calls)[0]
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/v1/publish/abc123/finalize", got.path)
	assert.Equal(t, "Bearer secret", got.auth)
	assert.JSONEq(t, `{"versionId":"v1"}`, string(got.body))
}

func TestFinalize_NonSuccessIsProtocolError(t *testing.T) {
	ts, _ := newAPI(t, http.StatusBadRequest, `{"error":"Invalid version ID"}`)
	c, err := NewHTTPClient(ts.URL, WithHTTPClient(ts.Client()))
	require.NoError(t, err)

	_, err = c.Finalize(context.Background(), ts.URL+"/finalize", "v0")
	var pe *ProtocolError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, OpFinalize, pe.Op)
	assert.Equal(t, "Invalid version ID", pe.Error())
}

func TestFinalize_EmptyBodyIsCommitted(t *testing.T) {
	ts, _ := newAPI(t, http.StatusNoContent, "")
	c, err := NewHTTPClient(ts.URL, WithHTTPClient(ts.Client()))
	require.NoError(t, err)

	resp, err := c.Finalize(context.Background(), ts.URL+"/finalize", "v1")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Empty(t, cmp.Diff(models.FinalizeResponse{}, *resp))
}

func TestFinalize_ExplicitFailureIsProtocolError(t *testing.T) {
	ts, _ := newAPI(t, http.StatusOK, `{"success":false,"slug":"abc123","currentVersionId":"v0"}`)
	c, err := NewHTTPClient(ts.URL, WithHTTPClient(ts.Client()))
	require.NoError(t, err)

	resp, err := c.Finalize(context.Background(), ts.URL+"/finalize", "v1")
	assert.Nil(t, resp)
	require.ErrorIs(t, err, ErrProtocol)
	var pe *ProtocolError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, OpFinalize, pe.Op)
	assert.False(t, pe.ServerReported)
}
