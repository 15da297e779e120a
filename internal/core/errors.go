package core

import (
	"errors"
	"fmt"
)

// Reason messages for MappingError. Kept as fixed strings so callers
// and the UI can pattern on them.
const (
	ReasonIndexOutOfBounds = "index out of bounds"
	ReasonInvalidQuantity  = "invalid quantity"
	ReasonMissingName      = "missing required field: name"
	ReasonMissingUnit      = "missing required field: unit"
)

// MappingError is a row-level validation failure raised while applying
// a mapping: an out-of-bounds column index, an unparseable quantity, or
// a missing required field. Any MappingError aborts the whole batch for
// its file; partial ingestion is disallowed.
type MappingError struct {
	Row     int    // zero-based index of the row within the sheet body
	Field   Field  // canonical field being read when the failure occurred
	Message string // one of the Reason* constants
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Message)
}

// IsMappingError reports whether err is (or wraps) a MappingError.
func IsMappingError(err error) bool {
	var me *MappingError
	return errors.As(err, &me)
}

// ErrInvalidMapping wraps mapping-level validation failures: a required
// field without a column, an index out of range, or two fields sharing
// a column. Unlike MappingError it concerns the mapping itself, not any
// particular row.
var ErrInvalidMapping = errors.New("invalid mapping")

// ErrStructureMismatch signals that a structure descriptor does not
// line up with the rows it is being re-interleaved with. This can only
// happen with corrupted persisted state, never from user input.
var ErrStructureMismatch = errors.New("structure descriptor does not match data rows")
