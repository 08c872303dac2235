package client

import (
	"context"

	"github.com/dmitrijs2005/instanthost/internal/client/models"
)

// Client is the publish API contract used by the orchestrator. Per-file
// uploads are not part of it: they go straight to server-issued URLs.
type Client interface {
	// Publish opens a new session (empty slug) or updates an existing one.
	Publish(ctx context.Context, slug string, req *models.PublishRequest) (*models.PublishResponse, error)
	// Finalize commits the uploaded version.
	Finalize(ctx context.Context, finalizeURL string, versionID string) (*models.FinalizeResponse, error)
}
