// Package models defines the publish protocol payloads, the local file
// manifest and the persisted publish state.
package models

// FileEntry is one local file of the manifest. Path is relative to the
// publish root and always uses forward slashes.
type FileEntry struct {
	Path        string
	Size        int64
	ContentType string
	// LocalPath is where the bytes are read from at upload time.
	LocalPath string
}

// UploadStatus is the outcome of a single transfer.
type UploadStatus string

const (
	UploadSucceeded UploadStatus = "succeeded"
	UploadFailed    UploadStatus = "failed"
)

// UploadResult records what happened to one file during the upload phase.
type UploadResult struct {
	Path     string
	Size     int64
	Status   UploadStatus
	Attempts int
	Err      error
}
