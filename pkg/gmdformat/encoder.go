package gmdformat

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
)

// EncodeOptions adjusts encoding behavior.
type EncodeOptions struct {
	// MaxDepth overrides DefaultMaxDepth when positive.
	MaxDepth int
}

// Encode writes a Root back into the binary format with default
// options.
func Encode(root *Root) ([]byte, error) {
	return EncodeWithOptions(root, EncodeOptions{})
}

// EncodeWithOptions writes a Root back into the binary format. A tree
// the format cannot carry yields an *EncodeError. The whole buffer is
// built in memory; a failure never produces partial output.
//
// Encoding mirrors the decoder exactly: a Root obtained from Decode
// re-encodes to the original bytes, and numeric kinds are preserved —
// an Integer is always written with the integer tag and a Float with
// the float tag.
func EncodeWithOptions(root *Root, opts EncodeOptions) ([]byte, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	e := &encoder{maxDepth: maxDepth}

	var buf bytes.Buffer
	w := kaitai.NewWriter(&buf)
	if err := e.encodeRoot(w, root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type encoder struct {
	maxDepth int
	path     []string
}

func (e *encoder) encodeRoot(w *kaitai.Writer, root *Root) error {
	if root == nil || root.Data == nil {
		return &EncodeError{Msg: "nil root"}
	}
	if err := w.WriteU4be(root.WorldVersion); err != nil {
		return fmt.Errorf("writing world version: %w", err)
	}
	if err := w.WriteU4be(uint32(len(root.Data.Entries))); err != nil {
		return fmt.Errorf("writing root entry count: %w", err)
	}

	for _, entry := range root.Data.Entries {
		if entry.Key.Kind != KeyString {
			return e.encodeError("root entries must have string keys, got number key %s", FormatNumber(entry.Key.Num))
		}
		e.push(strconv.Quote(entry.Key.Str))
		switch entry.Value.(type) {
		case *Table, *List:
		default:
			return e.encodeError("root entry values must be tables, got %T", entry.Value)
		}

		// The size header counts the bytes of the name plus the table,
		// so the entry is staged in its own buffer first.
		var entryBuf bytes.Buffer
		ew := kaitai.NewWriter(&entryBuf)
		if err := e.writeString(ew, entry.Key.Str); err != nil {
			return err
		}
		if err := e.encodeTableBody(ew, entry.Value, 1); err != nil {
			return err
		}
		if int64(entryBuf.Len()) > math.MaxUint32 {
			return e.encodeError("entry exceeds %d bytes", int64(math.MaxUint32))
		}
		if err := w.WriteU4be(uint32(entryBuf.Len())); err != nil {
			return fmt.Errorf("writing root entry size: %w", err)
		}
		if err := w.WriteBytes(entryBuf.Bytes()); err != nil {
			return fmt.Errorf("writing root entry: %w", err)
		}
		e.pop()
	}
	return nil
}

// encodeTableBody writes a table or list body: the pair count followed
// by tagged key/value pairs, without a leading value tag.
func (e *encoder) encodeTableBody(w *kaitai.Writer, v Value, depth int) error {
	if depth > e.maxDepth {
		return e.encodeError("table nesting exceeds depth limit %d", e.maxDepth)
	}

	switch t := v.(type) {
	case *Table:
		if err := w.WriteU4be(uint32(len(t.Entries))); err != nil {
			return fmt.Errorf("writing pair count: %w", err)
		}
		for _, entry := range t.Entries {
			if err := e.writeKey(w, entry.Key); err != nil {
				return err
			}
			e.push(keyLabel(entry.Key))
			if err := e.writeValue(w, entry.Value, depth); err != nil {
				return err
			}
			e.pop()
		}
	case *List:
		if err := w.WriteU4be(uint32(len(t.Items))); err != nil {
			return fmt.Errorf("writing pair count: %w", err)
		}
		for i, item := range t.Items {
			if err := e.writeKey(w, NumberKey(float64(i+1))); err != nil {
				return err
			}
			e.push(strconv.Itoa(i + 1))
			if err := e.writeValue(w, item, depth); err != nil {
				return err
			}
			e.pop()
		}
	default:
		return e.encodeError("expected a table, got %T", v)
	}
	return nil
}

func (e *encoder) writeKey(w *kaitai.Writer, k Key) error {
	switch k.Kind {
	case KeyString:
		if err := w.WriteU1(keyTagString); err != nil {
			return fmt.Errorf("writing key tag: %w", err)
		}
		return e.writeString(w, k.Str)
	case KeyNumber:
		if err := w.WriteU1(keyTagNumber); err != nil {
			return fmt.Errorf("writing key tag: %w", err)
		}
		if err := w.WriteF8be(k.Num); err != nil {
			return fmt.Errorf("writing number key: %w", err)
		}
		return nil
	default:
		return e.encodeError("unknown key kind %d", k.Kind)
	}
}

func (e *encoder) writeValue(w *kaitai.Writer, v Value, depth int) error {
	switch val := v.(type) {
	case String:
		if err := w.WriteU1(tagString); err != nil {
			return fmt.Errorf("writing value tag: %w", err)
		}
		return e.writeString(w, string(val))
	case Float:
		if err := w.WriteU1(tagFloat); err != nil {
			return fmt.Errorf("writing value tag: %w", err)
		}
		if err := w.WriteF8be(float64(val)); err != nil {
			return fmt.Errorf("writing float: %w", err)
		}
		return nil
	case Integer:
		if err := w.WriteU1(tagInteger); err != nil {
			return fmt.Errorf("writing value tag: %w", err)
		}
		if err := w.WriteS8be(int64(val)); err != nil {
			return fmt.Errorf("writing integer: %w", err)
		}
		return nil
	case Boolean:
		if err := w.WriteU1(tagBool); err != nil {
			return fmt.Errorf("writing value tag: %w", err)
		}
		var b uint8
		if val {
			b = 1
		}
		if err := w.WriteU1(b); err != nil {
			return fmt.Errorf("writing bool: %w", err)
		}
		return nil
	case Null:
		if err := w.WriteU1(tagNull); err != nil {
			return fmt.Errorf("writing value tag: %w", err)
		}
		return nil
	case *Table, *List:
		if err := w.WriteU1(tagTable); err != nil {
			return fmt.Errorf("writing value tag: %w", err)
		}
		return e.encodeTableBody(w, val, depth+1)
	default:
		return e.encodeError("unsupported value type %T", v)
	}
}

func (e *encoder) writeString(w *kaitai.Writer, s string) error {
	if len(s) > math.MaxUint16 {
		return e.encodeError("string is %d bytes, limit is %d", len(s), math.MaxUint16)
	}
	if err := w.WriteU2be(uint16(len(s))); err != nil {
		return fmt.Errorf("writing string length: %w", err)
	}
	if err := w.WriteBytes([]byte(s)); err != nil {
		return fmt.Errorf("writing string bytes: %w", err)
	}
	return nil
}

func (e *encoder) encodeError(format string, args ...any) error {
	return &EncodeError{
		Path: strings.Join(e.path, "."),
		Msg:  fmt.Sprintf(format, args...),
	}
}

func (e *encoder) push(segment string) { e.path = append(e.path, segment) }
func (e *encoder) pop()                { e.path = e.path[:len(e.path)-1] }
