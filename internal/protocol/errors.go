package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrNotTagged       = errors.New("value is not an externally tagged union")
	ErrMissingPayload  = errors.New("variant requires a payload")
	ErrUnknownVariant  = errors.New("unknown variant")
	ErrTrailingBytes   = errors.New("trailing bytes after value")
	ErrUnencodableType = errors.New("type has no wire form")
)

// DecodeError is returned for any inbound frame that does not decode to
// exactly one complete value. The frame should be dropped.
type DecodeError struct {
	Size int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %d-byte frame: %v", e.Size, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// VariantError names the variant that failed.
type VariantError struct {
	Union   string
	Variant string
	Err     error
}

func (e *VariantError) Error() string {
	return fmt.Sprintf("%s::%s: %v", e.Union, e.Variant, e.Err)
}

func (e *VariantError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err came from a malformed frame.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
