// Package uploader transfers manifest files to their negotiated upload slots
// through a bounded worker pool and reports a per-file outcome.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/instanthost/internal/client/models"
	"github.com/dmitrijs2005/instanthost/internal/common"
	"github.com/dmitrijs2005/instanthost/internal/logging"
	"github.com/dmitrijs2005/instanthost/internal/netx"
	"github.com/dustin/go-humanize"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency = 5
	DefaultRetries     = 2
	DefaultBackoff     = 500 * time.Millisecond
)

// ErrUnmatchedSlot means the server issued a slot for a path that is not
// in the local manifest.
var ErrUnmatchedSlot = errors.New("upload slot has no matching local file")

// Config controls the upload phase. Zero values select the defaults, except
// Retries where zero means a single attempt and Timeout where zero means no
// per-attempt deadline.
type Config struct {
	Concurrency int
	Retries     int
	Backoff     time.Duration
	Timeout     time.Duration
}

type fileHandle interface {
	io.ReadCloser
	Stat() (fs.FileInfo, error)
}

// openFile and transfer are test seams.
var openFile = func(name string) (fileHandle, error) { return os.Open(name) }

type Scheduler struct {
	cfg        Config
	httpClient *http.Client
	log        logging.Logger
	transfer   func(ctx context.Context, c *http.Client, req netx.UploadRequest) error
}

func New(cfg Config, httpClient *http.Client, log logging.Logger) *Scheduler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Scheduler{cfg: cfg, httpClient: httpClient, log: log, transfer: netx.Upload}
}

// Run uploads every slot's file and waits for all transfers to return. A
// failed transfer never stops its siblings; failures are reported through
// Report. The returned error is non-nil only when a slot cannot be paired
// with a manifest entry, in which case nothing is uploaded.
func (s *Scheduler) Run(ctx context.Context, slots []models.UploadSlot, entries []models.FileEntry) (Report, error) {
	byPath := make(map[string]models.FileEntry, len(entries))
	for _, e := range entries {
		byPath[e.Path] = e
	}

	matched := make([]models.FileEntry, len(slots))
	for i, slot := range slots {
		e, ok := byPath[slot.Path]
		if !ok {
			return Report{}, fmt.Errorf("%w: %q", ErrUnmatchedSlot, slot.Path)
		}
		matched[i] = e
	}

	results := make([]models.UploadResult, len(slots))

	// Plain Group, not WithContext: one failure must not cancel the rest.
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, slot := range slots {
		g.Go(func() error {
			results[i] = s.uploadOne(ctx, slot, matched[i])
			return nil
		})
	}
	_ = g.Wait()

	return Report{Results: results}, nil
}

func (s *Scheduler) uploadOne(ctx context.Context, slot models.UploadSlot, entry models.FileEntry) models.UploadResult {
	log := s.log.With("path", entry.Path)
	res := models.UploadResult{Path: entry.Path, Size: entry.Size}

	backoff := retry.WithMaxRetries(uint64(s.cfg.Retries), retry.NewExponential(s.cfg.Backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res.Attempts++
		err := s.transferFile(ctx, slot, entry)
		if err != nil && retryable(ctx, err) {
			log.Debug(ctx, "upload attempt failed", "attempt", res.Attempts, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})

	if err != nil {
		res.Status, res.Err = models.UploadFailed, err
		log.Warn(ctx, "upload failed", "attempts", res.Attempts, "error", err)
		return res
	}

	res.Status = models.UploadSucceeded
	log.Debug(ctx, "uploaded", "size", humanize.Bytes(uint64(entry.Size)), "attempts", res.Attempts)
	return res
}

// transferFile opens the file for this attempt only; it is closed on every
// return path.
func (s *Scheduler) transferFile(ctx context.Context, slot models.UploadSlot, entry models.FileEntry) error {
	f, err := openFile(entry.LocalPath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() != entry.Size {
		s.log.Warn(ctx, "file size changed since scan", "path", entry.Path, "scanned", entry.Size, "now", info.Size())
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	return s.transfer(ctx, s.httpClient, netx.UploadRequest{
		Method:        slot.Method,
		URL:           slot.URL,
		Headers:       slotHeaders(slot, entry),
		Body:          f,
		ContentLength: info.Size(),
	})
}

// slotHeaders returns the server-supplied headers, adding the entry's
// content type when the server did not specify one.
func slotHeaders(slot models.UploadSlot, entry models.FileEntry) map[string]string {
	headers := make(map[string]string, len(slot.Headers)+1)
	hasCT := false
	for k, v := range slot.Headers {
		headers[k] = v
		if strings.EqualFold(k, common.ContentTypeHeaderName) {
			hasCT = true
		}
	}
	if !hasCT {
		headers[common.ContentTypeHeaderName] = entry.ContentType
	}
	return headers
}

// retryable: transport errors, per-attempt timeouts, 429 and 5xx. Local file
// errors, other statuses and caller cancellation are final.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *netx.StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var pe *fs.PathError
	return !errors.As(err, &pe)
}
