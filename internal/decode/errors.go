package decode

import (
	"errors"
	"fmt"
)

// ErrDecoding is wrapped by every error the decoder returns.
//
//	if errors.Is(err, decode.ErrDecoding) {
//	    // the server sent bytes that do not parse as the column's type
//	}
var ErrDecoding = errors.New("decode: malformed value")

// Error reports a failed column decode.
type Error struct {
	// Column is the zero-based column index, or -1 outside a row.
	Column int

	// OID is the column's declared type OID.
	OID uint32

	Cause error
}

func (e *Error) Error() string {
	if e.Column >= 0 {
		return fmt.Sprintf("decode: column %d (oid %d): %v", e.Column, e.OID, e.Cause)
	}
	return fmt.Sprintf("decode: oid %d: %v", e.OID, e.Cause)
}

// Unwrap exposes ErrDecoding and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	return []error{ErrDecoding, e.Cause}
}
