package client

import (
	"fmt"

	"github.com/dmitrijs2005/instanthost/internal/client/models"
)

// validatePublishResponse rejects sessions the upload phase could not work
// with: absent required fields, or upload slots that do not pair one-to-one
// with the files that were sent.
func validatePublishResponse(req *models.PublishRequest, resp *models.PublishResponse) error {
	missing := func(field string) error {
		return &ProtocolError{Op: OpPublish, Message: "response missing required field " + field}
	}

	switch {
	case resp.Slug == "":
		return missing("slug")
	case resp.SiteURL == "":
		return missing("siteUrl")
	case resp.FinalizeURL == "":
		return missing("finalizeUrl")
	case resp.VersionID == "":
		return missing("versionId")
	case resp.Uploads == nil:
		return missing("uploads")
	}

	if len(resp.Uploads) != len(req.Files) {
		return &ProtocolError{Op: OpPublish,
			Message: fmt.Sprintf("expected %d upload slots, got %d", len(req.Files), len(resp.Uploads))}
	}

	sent := make(map[string]struct{}, len(req.Files))
	for _, f := range req.Files {
		sent[f.Path] = struct{}{}
	}

	seen := make(map[string]struct{}, len(resp.Uploads))
	for i, slot := range resp.Uploads {
		if slot.Path == "" {
			return missing(fmt.Sprintf("uploads[%d].path", i))
		}
		if slot.URL == "" {
			return missing(fmt.Sprintf("uploads[%d].url", i))
		}
		if _, ok := sent[slot.Path]; !ok {
			return &ProtocolError{Op: OpPublish, Message: fmt.Sprintf("upload slot for unknown path %q", slot.Path)}
		}
		if _, dup := seen[slot.Path]; dup {
			return &ProtocolError{Op: OpPublish, Message: fmt.Sprintf("duplicate upload slot for %q", slot.Path)}
		}
		seen[slot.Path] = struct{}{}
	}

	return nil
}
