// Package common defines shared constants and sentinel errors used across
// the CLI layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Input errors.
	ErrorInvalidTarget = errors.New("invalid publish target")

	// Local bookkeeping errors. These never fail a publish.
	ErrorStateUnreadable = errors.New("state file unreadable")
)
