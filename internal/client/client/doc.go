// Package client talks to the InstantHost publish API.
//
// # Overview
//
// The package provides:
//  1. The Client contract used by the publish orchestrator: Publish opens or
//     updates a session and returns per-file upload slots; Finalize commits
//     the uploaded version.
//  2. HTTPClient, a JSON-over-HTTP implementation. The bearer token, when
//     configured, is attached to these two calls only.
//
// # Error Handling
//
// Every rejected call is a *ProtocolError (matching ErrProtocol): a server
// reported {"error": ...} (surfaced verbatim), a non-success status, a body
// that is not JSON, or a session that fails validation (missing fields,
// upload slots not pairing one-to-one with the files sent). Transport
// failures wrap ErrUnavailable. None of these are retried.
package client
