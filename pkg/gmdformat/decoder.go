package gmdformat

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
)

// Wire layout (big-endian throughout):
//
//	u4 world_version
//	u4 root entry count
//	per root entry: u4 byte size of the rest of the entry,
//	                u2-length-prefixed UTF-8 name, one table
//	table: u4 pair count, then per pair a tagged key and a tagged value
//
// Tags 0-3 are the ones the game itself reads and writes; 4 and 5 are
// extensions for values the base format cannot carry.
const (
	tagString  byte = 0
	tagFloat   byte = 1
	tagTable   byte = 2
	tagBool    byte = 3
	tagInteger byte = 4
	tagNull    byte = 5
)

const (
	keyTagString byte = 0
	keyTagNumber byte = 1
)

// DefaultMaxDepth bounds table nesting during decode and encode.
// Corrupted or adversarial input cannot push the recursion deeper.
const DefaultMaxDepth = 256

// Entry counts come straight from the wire, so preallocation is capped
// to keep a corrupted count from reserving gigabytes.
const maxPrealloc = 1024

// SupportedWorldVersions lists the world versions the decoder accepts
// by default.
var SupportedWorldVersions = []uint32{195}

// DecodeOptions adjusts decoding behavior.
type DecodeOptions struct {
	// MaxDepth overrides DefaultMaxDepth when positive.
	MaxDepth int

	// SupportedVersions overrides SupportedWorldVersions. An empty
	// slice accepts any version.
	SupportedVersions []uint32
}

// Decode parses a global mod data binary into a Root, accepting the
// default supported world versions.
func Decode(data []byte) (*Root, error) {
	return DecodeWithOptions(data, DecodeOptions{SupportedVersions: SupportedWorldVersions})
}

// DecodeWithOptions parses a global mod data binary into a Root.
// Malformed input yields a *FormatError. The decoder consumes the
// whole buffer; trailing bytes are rejected so that re-encoding a
// decoded Root reproduces the input bit for bit.
func DecodeWithOptions(data []byte, opts DecodeOptions) (*Root, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	d := &decoder{
		stream:   kaitai.NewStream(bytes.NewReader(data)),
		maxDepth: maxDepth,
	}
	root, err := d.decodeRoot(opts.SupportedVersions)
	if err != nil {
		return nil, err
	}
	return root, nil
}

type decoder struct {
	stream   *kaitai.Stream
	maxDepth int
	path     []string
}

func (d *decoder) decodeRoot(supported []uint32) (*Root, error) {
	version, err := d.stream.ReadU4be()
	if err != nil {
		return nil, d.truncated(err, "world version")
	}
	if len(supported) > 0 && !contains(supported, version) {
		return nil, d.errorf(nil, "unsupported world version %d", version)
	}

	count, err := d.stream.ReadU4be()
	if err != nil {
		return nil, d.truncated(err, "root entry count")
	}

	data := &Table{Entries: make([]Entry, 0, min(int(count), maxPrealloc))}
	for i := uint32(0); i < count; i++ {
		size, err := d.stream.ReadU4be()
		if err != nil {
			return nil, d.truncated(err, "root entry size")
		}
		start, _ := d.stream.Pos()

		name, err := d.readString()
		if err != nil {
			return nil, err
		}
		d.push(strconv.Quote(name))
		value, err := d.decodeTable(1)
		if err != nil {
			return nil, err
		}

		end, _ := d.stream.Pos()
		if consumed := end - start; consumed != int64(size) {
			return nil, d.errorf(nil, "root entry size mismatch: header says %d bytes, entry holds %d", size, consumed)
		}
		d.pop()
		data.Put(StringKey(name), value)
	}

	eof, err := d.stream.EOF()
	if err != nil {
		return nil, d.truncated(err, "end of stream")
	}
	if !eof {
		return nil, d.errorf(nil, "trailing data after last root entry")
	}
	return &Root{WorldVersion: version, Data: data}, nil
}

// decodeTable reads one table body (pair count plus tagged pairs). A
// table whose keys are exactly NumberKey(1)..NumberKey(n) in order is
// returned as a *List; anything else, including the empty table, stays
// a *Table.
func (d *decoder) decodeTable(depth int) (Value, error) {
	if depth > d.maxDepth {
		return nil, d.errorf(nil, "table nesting exceeds depth limit %d", d.maxDepth)
	}

	count, err := d.stream.ReadU4be()
	if err != nil {
		return nil, d.truncated(err, "table pair count")
	}

	table := &Table{Entries: make([]Entry, 0, min(int(count), maxPrealloc))}
	for i := uint32(0); i < count; i++ {
		key, err := d.readKey()
		if err != nil {
			return nil, err
		}
		d.push(keyLabel(key))
		value, err := d.readValue(depth)
		if err != nil {
			return nil, err
		}
		d.pop()
		table.Put(key, value)
	}

	if list, ok := asList(table); ok {
		return list, nil
	}
	return table, nil
}

func (d *decoder) readKey() (Key, error) {
	tag, err := d.stream.ReadU1()
	if err != nil {
		return Key{}, d.truncated(err, "key tag")
	}
	switch tag {
	case keyTagString:
		s, err := d.readString()
		if err != nil {
			return Key{}, err
		}
		return StringKey(s), nil
	case keyTagNumber:
		n, err := d.stream.ReadF8be()
		if err != nil {
			return Key{}, d.truncated(err, "number key")
		}
		return NumberKey(n), nil
	default:
		return Key{}, d.errorf(nil, "unknown key tag 0x%02x", tag)
	}
}

func (d *decoder) readValue(depth int) (Value, error) {
	tag, err := d.stream.ReadU1()
	if err != nil {
		return nil, d.truncated(err, "value tag")
	}
	switch tag {
	case tagString:
		s, err := d.readString()
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case tagFloat:
		f, err := d.stream.ReadF8be()
		if err != nil {
			return nil, d.truncated(err, "float value")
		}
		return Float(f), nil
	case tagTable:
		return d.decodeTable(depth + 1)
	case tagBool:
		b, err := d.stream.ReadU1()
		if err != nil {
			return nil, d.truncated(err, "bool value")
		}
		if b > 1 {
			return nil, d.errorf(nil, "bool byte is 0x%02x, want 0 or 1", b)
		}
		return Boolean(b == 1), nil
	case tagInteger:
		n, err := d.stream.ReadS8be()
		if err != nil {
			return nil, d.truncated(err, "integer value")
		}
		return Integer(n), nil
	case tagNull:
		return Null{}, nil
	default:
		return nil, d.errorf(nil, "unknown type tag 0x%02x", tag)
	}
}

func (d *decoder) readString() (string, error) {
	length, err := d.stream.ReadU2be()
	if err != nil {
		return "", d.truncated(err, "string length")
	}
	raw, err := d.stream.ReadBytes(int(length))
	if err != nil {
		return "", d.truncated(err, "string bytes")
	}
	if !utf8.Valid(raw) {
		return "", d.errorf(nil, "string is not valid UTF-8")
	}
	return string(raw), nil
}

// asList reports whether the table is the wire shape of a list: keys
// NumberKey(1)..NumberKey(n), in that order.
func asList(t *Table) (*List, bool) {
	if len(t.Entries) == 0 {
		return nil, false
	}
	items := make([]Value, 0, len(t.Entries))
	for i, e := range t.Entries {
		if e.Key.Kind != KeyNumber || e.Key.Num != float64(i+1) {
			return nil, false
		}
		items = append(items, e.Value)
	}
	return &List{Items: items}, true
}

func (d *decoder) errorf(cause error, format string, args ...any) error {
	pos, _ := d.stream.Pos()
	return &FormatError{
		Offset: pos,
		Path:   strings.Join(d.path, "."),
		Msg:    fmt.Sprintf(format, args...),
		Err:    cause,
	}
}

func (d *decoder) truncated(cause error, what string) error {
	return d.errorf(cause, "truncated input reading %s", what)
}

func (d *decoder) push(segment string) { d.path = append(d.path, segment) }
func (d *decoder) pop()                { d.path = d.path[:len(d.path)-1] }

func keyLabel(k Key) string {
	if k.Kind == KeyNumber {
		return FormatNumber(k.Num)
	}
	return strconv.Quote(k.Str)
}

func contains(versions []uint32, v uint32) bool {
	for _, candidate := range versions {
		if candidate == v {
			return true
		}
	}
	return false
}
