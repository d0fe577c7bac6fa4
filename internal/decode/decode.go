// Package decode turns a JSON array of weather records into typed values.
//
// Every Decoder is a pure function of its input: it keeps no state between
// calls and allocates its own output, so a single instance may be shared by
// any number of goroutines decoding the same immutable source text.
//
// Both codecs require the exact keys name, language, id, bio and version,
// ignore other keys, and report element failures with the same index,
// field and message. Invalid UTF-8 inside strings becomes U+FFFD, one per
// bad byte, in both. One known difference remains: jstream parses numbers
// itself and flushes subnormal floats such as 1.5e-320 to zero, while std
// keeps them.
package decode

import (
	"fmt"

	"json-decode-bench/internal/domain"
)

// Decoder converts source text into weather records.
type Decoder interface {
	Decode(text string) ([]domain.WeatherRecord, error)
}

// Error reports malformed input or a record that misses a required field.
type Error struct {
	// Index is the array position of the offending element, or -1 when the
	// failure concerns the document as a whole.
	Index   int    `json:"index"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error formats decode failures for logs and UI.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Index >= 0 && e.Field != "":
		return fmt.Sprintf("decode: element %d: %s: %s", e.Index, e.Field, e.Message)
	case e.Index >= 0:
		return fmt.Sprintf("decode: element %d: %s", e.Index, e.Message)
	default:
		return "decode: " + e.Message
	}
}

// Unwrap exposes the underlying parser error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// For returns the decoder registered for codec.
func For(codec domain.Codec) (Decoder, error) {
	switch codec {
	case domain.CodecStd, "":
		return Std{}, nil
	case domain.CodecStream:
		return Stream{}, nil
	default:
		return nil, fmt.Errorf("unknown codec: %q", codec)
	}
}

func documentError(message string, err error) *Error {
	return &Error{Index: -1, Message: message, Err: err}
}

func missingField(index int, field string) *Error {
	return &Error{Index: index, Field: field, Message: "required field is missing"}
}

func nullElement(index int) *Error {
	return &Error{Index: index, Message: "element is null"}
}

func notAnObject(index int, got interface{}) *Error {
	return &Error{Index: index, Message: fmt.Sprintf("expected an object, got %T", got)}
}

func wrongType(index int, field, want string, got interface{}) *Error {
	return &Error{Index: index, Field: field, Message: fmt.Sprintf("expected %s, got %T", want, got)}
}
