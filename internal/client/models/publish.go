package models

import "time"

// FileSpec is the manifest line sent to the server.
type FileSpec struct {
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// Viewer carries optional display metadata for the published site.
type Viewer struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// PublishRequest opens (POST) or updates (PUT) a publish session.
type PublishRequest struct {
	Files      []FileSpec `json:"files"`
	TTLSeconds *int64     `json:"ttlSeconds,omitempty"`
	ClaimToken *string    `json:"claimToken,omitempty"`
	Viewer     Viewer     `json:"viewer"`
}

// NewPublishRequest builds the request body from a manifest.
func NewPublishRequest(entries []FileEntry) *PublishRequest {
	files := make([]FileSpec, 0, len(entries))
	for _, e := range entries {
		files = append(files, FileSpec{Path: e.Path, Size: e.Size, ContentType: e.ContentType})
	}
	return &PublishRequest{Files: files}
}

// UploadSlot is the server-issued target for one file.
type UploadSlot struct {
	Path    string            `json:"path"`
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
}

// PublishResponse is the negotiated session. Optional fields are pointers.
type PublishResponse struct {
	Slug        string       `json:"slug"`
	SiteURL     string       `json:"siteUrl"`
	FinalizeURL string       `json:"finalizeUrl"`
	VersionID   string       `json:"versionId"`
	Uploads     []UploadSlot `json:"uploads"`
	Anonymous   bool         `json:"anonymous"`
	ClaimToken  *string      `json:"claimToken,omitempty"`
	ClaimURL    *string      `json:"claimUrl,omitempty"`
	ExpiresAt   *time.Time   `json:"expiresAt,omitempty"`
	Warning     string       `json:"warning,omitempty"`
}

// FinalizeRequest commits a pending version.
type FinalizeRequest struct {
	VersionID string `json:"versionId"`
}

// FinalizeResponse is returned once the version is live.
type FinalizeResponse struct {
	Success           bool    `json:"success"`
	Slug              string  `json:"slug"`
	SiteURL           string  `json:"siteUrl"`
	PreviousVersionID *string `json:"previousVersionId"`
	CurrentVersionID  string  `json:"currentVersionId"`
}
