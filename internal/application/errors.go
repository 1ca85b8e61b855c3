package application

import "graphvault/internal/domain"

// Sentinel errors for common conditions
var (
	ErrNotFound           = domain.ErrNotFound
	ErrInvalidID          = domain.ErrInvalidID
	ErrInvalidInput       = domain.ErrInvalidInput
	ErrMissingEndpoint    = domain.ErrMissingEndpoint
	ErrCorrupt            = domain.ErrCorrupt
	ErrUnsupportedVersion = domain.ErrUnsupportedVersion
	ErrPartialWrite       = domain.ErrPartialWrite
	ErrFormatMismatch     = domain.ErrFormatMismatch
)

// Re-export error types for use by adapters
type (
	ValidationError         = domain.ValidationError
	InvalidIDError          = domain.InvalidIDError
	MissingEndpointError    = domain.MissingEndpointError
	CorruptionError         = domain.CorruptionError
	UnsupportedVersionError = domain.UnsupportedVersionError
	PartialWriteError       = domain.PartialWriteError
)

// NotFoundError reports a node or edge that does not exist
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return e.What + " not found"
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
