package gmdformat

import (
	"strconv"
	"strings"
)

// Textual formats only support string-valued map keys, so every table
// key carries a type prefix that makes the original kind recoverable.
const (
	// WorldVersionKey holds the world version in textual documents. It
	// is metadata injected next to the mapped root table, never a table
	// entry of its own.
	WorldVersionKey = "__WORLD_VERSION"

	// StringKeyPrefix marks a key that was a string.
	StringKeyPrefix = "_string: "

	// NumberKeyPrefix marks a key that was a number.
	NumberKeyPrefix = "_number: "
)

// EncodeKey renders a key in its prefixed textual form.
//
// The prefix is applied unconditionally: a string key whose own text
// starts with a reserved prefix comes out with a doubled prefix, and
// DecodeKey strips exactly one, so the pair still round-trips. The
// format defines no escape convention beyond that; the remainder after
// the outer prefix is always taken literally.
func EncodeKey(k Key) string {
	if k.Kind == KeyNumber {
		return NumberKeyPrefix + FormatNumber(k.Num)
	}
	return StringKeyPrefix + k.Str
}

// DecodeKey recovers a key from its prefixed textual form. A key with
// neither reserved prefix, or with a number payload that does not
// parse, yields a *KeyFormatError.
func DecodeKey(s string) (Key, error) {
	if rest, ok := strings.CutPrefix(s, StringKeyPrefix); ok {
		return StringKey(rest), nil
	}
	if rest, ok := strings.CutPrefix(s, NumberKeyPrefix); ok {
		n, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return Key{}, &KeyFormatError{Key: s, Msg: "number payload does not parse"}
		}
		return NumberKey(n), nil
	}
	return Key{}, &KeyFormatError{Key: s, Msg: "missing a reserved type prefix"}
}

// FormatNumber renders a number key in its shortest exact decimal
// form: 1 rather than 1.0, 2.5 as 2.5.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
