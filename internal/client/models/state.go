package models

import "time"

// PublishRecord is what is remembered locally about one slug.
type PublishRecord struct {
	SiteURL    string     `json:"siteUrl"`
	ClaimToken *string    `json:"claimToken,omitempty"`
	ClaimURL   *string    `json:"claimUrl,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// RecordFromResponse extracts the persisted fields of a negotiated session.
func RecordFromResponse(r *PublishResponse) PublishRecord {
	return PublishRecord{
		SiteURL:    r.SiteURL,
		ClaimToken: r.ClaimToken,
		ClaimURL:   r.ClaimURL,
		ExpiresAt:  r.ExpiresAt,
	}
}

// PublishState maps slug to its record.
type PublishState map[string]PublishRecord
