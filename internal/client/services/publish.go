package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/instanthost/internal/client/client"
	"github.com/dmitrijs2005/instanthost/internal/client/inventory"
	"github.com/dmitrijs2005/instanthost/internal/client/models"
	"github.com/dmitrijs2005/instanthost/internal/client/uploader"
	"github.com/dmitrijs2005/instanthost/internal/logging"
	"github.com/dustin/go-humanize"
	"go.uber.org/multierr"
)

// Uploader runs the upload phase.
type Uploader interface {
	Run(ctx context.Context, slots []models.UploadSlot, entries []models.FileEntry) (uploader.Report, error)
}

// StateStore records publish results locally.
type StateStore interface {
	Get(slug string) (models.PublishRecord, bool)
	Merge(slug string, rec models.PublishRecord) (warning error, err error)
}

type PublishService interface {
	Publish(ctx context.Context, target string, opts PublishOptions) (*PublishResult, error)
}

type PublishOptions struct {
	// Slug selects an existing site to update. Empty creates a new one.
	Slug string
	// ClaimToken authorises an anonymous update. When empty and Slug is set,
	// the token stored for Slug is used.
	ClaimToken  string
	Title       *string
	Description *string
	TTL         time.Duration
	Exclude     []string
}

type PublishResult struct {
	Slug       string
	SiteURL    string
	VersionID  string
	Anonymous  bool
	ClaimToken *string
	ClaimURL   *string
	ExpiresAt  *time.Time
	// ServerWarning is the advisory text the server attaches to anonymous
	// sessions.
	ServerWarning string
	Files         int
	Bytes         int64
	// StateWarning is set when the publish succeeded but local state could
	// not be read or written.
	StateWarning error
}

type publishService struct {
	client   client.Client
	uploader Uploader
	store    StateStore
	log      logging.Logger
}

func NewPublishService(c client.Client, u Uploader, store StateStore, log logging.Logger) PublishService {
	return &publishService{client: c, uploader: u, store: store, log: log}
}

// Publish runs inventory, negotiation, upload and finalize in order, then
// records the result. Any failure before finalize completes leaves local
// state untouched.
func (s *publishService) Publish(ctx context.Context, target string, opts PublishOptions) (*PublishResult, error) {
	entries, err := inventory.Scan(target, inventory.WithExclude(opts.Exclude...))
	if err != nil {
		return nil, err
	}
	total := inventory.TotalSize(entries)
	s.log.Info(ctx, "manifest built", "files", len(entries), "size", humanize.Bytes(uint64(total)))

	req := s.buildRequest(entries, opts)

	resp, err := s.client.Publish(ctx, opts.Slug, req)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "session opened", "slug", resp.Slug, "version", resp.VersionID, "anonymous", resp.Anonymous)

	report, err := s.uploader.Run(ctx, resp.Uploads, entries)
	if err != nil {
		return nil, err
	}
	if err := report.Err(); err != nil {
		return nil, err
	}

	fin, err := s.client.Finalize(ctx, resp.FinalizeURL, resp.VersionID)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "version committed", "slug", fin.Slug, "version", fin.CurrentVersionID)

	res := &PublishResult{
		Slug:          resp.Slug,
		SiteURL:       resp.SiteURL,
		VersionID:     resp.VersionID,
		Anonymous:     resp.Anonymous,
		ClaimToken:    resp.ClaimToken,
		ClaimURL:      resp.ClaimURL,
		ExpiresAt:     resp.ExpiresAt,
		ServerWarning: resp.Warning,
		Files:         len(entries),
		Bytes:         total,
	}

	warn, werr := s.store.Merge(resp.Slug, models.RecordFromResponse(resp))
	if werr != nil {
		werr = fmt.Errorf("save state: %w", werr)
	}
	if res.StateWarning = multierr.Combine(warn, werr); res.StateWarning != nil {
		s.log.Warn(ctx, "local state", "err", res.StateWarning)
	}

	if res.ClaimURL == nil && opts.Slug != "" {
		if rec, ok := s.store.Get(resp.Slug); ok {
			res.ClaimURL = rec.ClaimURL
		}
	}

	return res, nil
}

func (s *publishService) buildRequest(entries []models.FileEntry, opts PublishOptions) *models.PublishRequest {
	req := models.NewPublishRequest(entries)
	req.Viewer = models.Viewer{Title: opts.Title, Description: opts.Description}

	if opts.TTL > 0 {
		secs := int64(opts.TTL / time.Second)
		req.TTLSeconds = &secs
	}

	token := opts.ClaimToken
	if token == "" && opts.Slug != "" {
		if rec, ok := s.store.Get(opts.Slug); ok && rec.ClaimToken != nil {
			token = *rec.ClaimToken
		}
	}
	if token != "" {
		req.ClaimToken = &token
	}
	return req
}
