// Package common contains shared constants and sentinel errors used across
// InstantHost client components.
package common

// Header names set on API calls. Per-file uploads carry only the headers
// returned by the server.
const (
	AuthorizationHeaderName = "Authorization"
	RequestIDHeaderName     = "X-Request-Id"
	ContentTypeHeaderName   = "Content-Type"
)

// DefaultContentType is used when a file's content type cannot be detected.
const DefaultContentType = "application/octet-stream"

// APIKeyEnvVar is the environment variable consulted for the API key.
const APIKeyEnvVar = "INSTANTHOST_API_KEY"

// BaseURLEnvVar overrides the API base URL.
const BaseURLEnvVar = "INSTANTHOST_API_BASE"

// API paths relative to the configured base URL.
const (
	PublishPath = "/api/v1/publish"
)
