package gmdformat

import (
	"errors"
	"fmt"
)

// ErrMetadataMissing reports a textual document without the
// __WORLD_VERSION field.
var ErrMetadataMissing = errors.New(`document is missing the "__WORLD_VERSION" field`)

// FormatError reports malformed binary input: an unknown tag, a
// truncated stream, a size mismatch or over-deep nesting. Offset is
// the stream position at which the fault was detected and Path the
// structural location, when known.
type FormatError struct {
	Offset int64
	Path   string
	Msg    string
	Err    error
}

func (e *FormatError) Error() string {
	s := fmt.Sprintf("binary format error at offset %d", e.Offset)
	if e.Path != "" {
		s += " (" + e.Path + ")"
	}
	s += ": " + e.Msg
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *FormatError) Unwrap() error { return e.Err }

// EncodeError reports a value tree that cannot be represented in the
// binary encoding, such as a string longer than the length prefix
// allows or a root entry that is not a string-named table.
type EncodeError struct {
	Path string
	Msg  string
}

func (e *EncodeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("cannot encode %s: %s", e.Path, e.Msg)
	}
	return "cannot encode: " + e.Msg
}

// KeyFormatError reports a textual map key that does not carry one of
// the reserved type prefixes, or whose number payload does not parse.
type KeyFormatError struct {
	Key string
	Msg string
}

func (e *KeyFormatError) Error() string {
	return fmt.Sprintf("bad key %q: %s", e.Key, e.Msg)
}

// TextError reports malformed textual input other than a bad key or a
// missing version field, such as an integer literal that overflows
// int64 or a top-level value that is not an object.
type TextError struct {
	Path string
	Msg  string
	Err  error
}

func (e *TextError) Error() string {
	s := "text format error"
	if e.Path != "" {
		s += " at " + e.Path
	}
	s += ": " + e.Msg
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *TextError) Unwrap() error { return e.Err }
