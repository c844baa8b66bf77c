package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and adapters return these
// (optionally wrapped) so services can translate them into coded domain
// errors without string matching.
//
// These represent factual states about stored entities, not validation
// failures:
//   - ErrNotFound: entity does not exist in the store
//   - ErrConflict: a uniqueness constraint was hit (duplicate invoice number,
//     duplicate approval, certificate already issued)
//   - ErrInvalidState: entity is in the wrong lifecycle state for the
//     requested operation
//   - ErrExpired: funding deadline or certificate expiry has passed
//   - ErrUnavailable: backing service or resource temporarily unavailable
//
// For input validation use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrExpired      = errors.New("expired")
	ErrUnavailable  = errors.New("unavailable")
)
