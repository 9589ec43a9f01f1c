package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and gateways return these
// (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in the store or upstream service
// - ErrConflict: a uniqueness or write-once rule was violated at the store
// - ErrInvalidState: entity in wrong state for the requested mutation
// - ErrUnavailable: upstream service or resource temporarily unavailable
//
// For validation and domain failures, use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
