package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common conditions
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidID          = errors.New("invalid ID")
	ErrInvalidInput       = errors.New("invalid input")
	ErrMissingEndpoint    = errors.New("missing endpoint")
	ErrCorrupt            = errors.New("corrupt record")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrPartialWrite       = errors.New("partial write")
	ErrFormatMismatch     = errors.New("record format mismatch")
)

// ValidationError represents a validation failure with details
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// InvalidIDError reports an identifier outside the addressable range
type InvalidIDError struct {
	ID int64
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid node ID %d: must be non-negative", e.ID)
}

func (e *InvalidIDError) Is(target error) bool {
	return target == ErrInvalidID || target == ErrInvalidInput
}

// MissingEndpointError is returned when an edge references an absent node
type MissingEndpointError struct {
	NodeID int64
	Role   string // "source" or "destination"
}

func (e *MissingEndpointError) Error() string {
	return fmt.Sprintf("%s node %d does not exist", e.Role, e.NodeID)
}

func (e *MissingEndpointError) Is(target error) bool {
	return target == ErrMissingEndpoint
}

// CorruptionError reports a record that could not be read back
type CorruptionError struct {
	Path string
	Err  error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("corrupt record %s: %v", e.Path, e.Err)
}

func (e *CorruptionError) Is(target error) bool {
	return target == ErrCorrupt
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}

// UnsupportedVersionError is returned when a record carries a version tag
// with no decoder or upgrade path
type UnsupportedVersionError struct {
	Kind    string // "node" or "edge"
	Version int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("%s version %d is not supported", e.Kind, e.Version)
}

func (e *UnsupportedVersionError) Is(target error) bool {
	return target == ErrUnsupportedVersion || target == ErrCorrupt
}

// Write stages reported by PartialWriteError
const (
	StageOutgoingMirror = "outgoing-mirror"
	StageIncomingMirror = "incoming-mirror"
	StageGlobalIndex    = "global-index"
	StageBatchUndo      = "batch-undo"
)

// Records a PartialWriteError can refer to
const (
	RecordEdge = "edge"
	RecordNode = "node"
)

// PartialWriteError reports a multi-step write that left the store
// inconsistent. Written lists the files that were changed before the failing
// stage; a repair pass uses them to restore the mirror invariant.
// Kind is RecordEdge when empty; node errors carry the node in From and To.
type PartialWriteError struct {
	Kind    string
	From    int64
	To      int64
	Stage   string
	Written []string
	Err     error
}

func (e *PartialWriteError) Error() string {
	var msg string
	if e.Kind == RecordNode {
		msg = fmt.Sprintf("partial write of node %d failed at %s: %v", e.From, e.Stage, e.Err)
	} else {
		msg = fmt.Sprintf("partial write of edge %d -> %d failed at %s: %v", e.From, e.To, e.Stage, e.Err)
	}
	if len(e.Written) > 0 {
		msg += fmt.Sprintf(" (written: %s)", strings.Join(e.Written, ", "))
	}
	return msg
}

func (e *PartialWriteError) Is(target error) bool {
	return target == ErrPartialWrite
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}
