// Package common defines shared sentinel errors used across the sharelink
// service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Link lifecycle errors. Both map to "gone" semantics at the HTTP
	// layer; the distinction is carried to the viewer in the message.
	ErrorLinkRevoked    = errors.New("link revoked")
	ErrorLinkExpired    = errors.New("link expired")
	ErrorAlreadyRevoked = errors.New("already revoked")

	// Issuance request errors.
	ErrorValidation = errors.New("validation error")

	// Cryptographic errors. Every integrity or format failure during
	// envelope decryption collapses into this single value so callers
	// cannot tell which check failed.
	ErrorDecryption = errors.New("decryption error")

	// Auth errors (invalid or malformed bearer token).
	ErrInvalidToken = errors.New("invalid token")

	// Collaborator errors (document source, gateways). Upstream failures
	// the service cannot recover from on the request path.
	ErrorCollaborator = errors.New("collaborator error")

	// Generic/internal flow control.
	ErrorInternal = errors.New("internal error")
)
