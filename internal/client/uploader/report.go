package uploader

import (
	"fmt"

	"github.com/dmitrijs2005/instanthost/internal/client/models"
	"go.uber.org/multierr"
)

// Report holds one result per upload slot, in slot order.
type Report struct {
	Results []models.UploadResult
}

func (r Report) Failed() []models.UploadResult {
	var failed []models.UploadResult
	for _, res := range r.Results {
		if res.Status != models.UploadSucceeded {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err returns a *TransferError when at least one upload failed.
func (r Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	return &TransferError{Failures: failed, Total: len(r.Results)}
}

// TransferError summarises the uploads that did not complete.
type TransferError struct {
	Failures []models.UploadResult
	Total    int
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%d of %d uploads failed: %v", len(e.Failures), e.Total, e.combined())
}

func (e *TransferError) Unwrap() []error {
	return multierr.Errors(e.combined())
}

func (e *TransferError) combined() error {
	var err error
	for _, f := range e.Failures {
		err = multierr.Append(err, fmt.Errorf("%s: %w", f.Path, f.Err))
	}
	return err
}
