package gmdformat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// DefaultIndent is the indentation used for textual output.
const DefaultIndent = "    "

// MarshalJSON renders a Root as an indented JSON document. The
// top-level object holds __WORLD_VERSION first, then the root table
// entries with type-prefixed keys, preserving entry order. Integer and
// Float scalars keep their kind: a Float always carries a decimal
// point or an exponent so it reads back as a Float.
//
// JSON has no representation for NaN or the infinities, so a non-finite
// Float yields a *TextError.
func MarshalJSON(root *Root, indent string) ([]byte, error) {
	if root == nil || root.Data == nil {
		return nil, &TextError{Msg: "nil root"}
	}
	if indent == "" {
		indent = DefaultIndent
	}
	m := &jsonMarshaler{indent: indent}

	m.buf.WriteString("{\n")
	m.writeIndent(1)
	m.writeKey(WorldVersionKey)
	m.buf.WriteString(strconv.FormatUint(uint64(root.WorldVersion), 10))
	for _, entry := range root.Data.Entries {
		m.buf.WriteString(",\n")
		m.writeIndent(1)
		m.writeKey(EncodeKey(entry.Key))
		m.push(keyLabel(entry.Key))
		if err := m.writeValue(entry.Value, 1); err != nil {
			return nil, err
		}
		m.pop()
	}
	m.buf.WriteString("\n}")
	return m.buf.Bytes(), nil
}

type jsonMarshaler struct {
	buf    bytes.Buffer
	indent string
	path   []string
}

func (m *jsonMarshaler) writeValue(v Value, depth int) error {
	switch val := v.(type) {
	case String:
		m.writeString(string(val))
	case Integer:
		m.buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Float:
		s, err := formatJSONFloat(float64(val))
		if err != nil {
			return &TextError{Path: strings.Join(m.path, "."), Msg: err.Error()}
		}
		m.buf.WriteString(s)
	case Boolean:
		m.buf.WriteString(strconv.FormatBool(bool(val)))
	case Null:
		m.buf.WriteString("null")
	case *Table:
		if len(val.Entries) == 0 {
			m.buf.WriteString("{}")
			return nil
		}
		m.buf.WriteString("{\n")
		for i, entry := range val.Entries {
			if i > 0 {
				m.buf.WriteString(",\n")
			}
			m.writeIndent(depth + 1)
			m.writeKey(EncodeKey(entry.Key))
			m.push(keyLabel(entry.Key))
			if err := m.writeValue(entry.Value, depth+1); err != nil {
				return err
			}
			m.pop()
		}
		m.buf.WriteString("\n")
		m.writeIndent(depth)
		m.buf.WriteString("}")
	case *List:
		if len(val.Items) == 0 {
			m.buf.WriteString("[]")
			return nil
		}
		m.buf.WriteString("[\n")
		for i, item := range val.Items {
			if i > 0 {
				m.buf.WriteString(",\n")
			}
			m.writeIndent(depth + 1)
			m.push(strconv.Itoa(i + 1))
			if err := m.writeValue(item, depth+1); err != nil {
				return err
			}
			m.pop()
		}
		m.buf.WriteString("\n")
		m.writeIndent(depth)
		m.buf.WriteString("]")
	default:
		return &TextError{Path: strings.Join(m.path, "."), Msg: fmt.Sprintf("unsupported value type %T", v)}
	}
	return nil
}

func (m *jsonMarshaler) writeString(s string) {
	quoted, _ := json.Marshal(s)
	m.buf.Write(quoted)
}

func (m *jsonMarshaler) writeKey(s string) {
	m.writeString(s)
	m.buf.WriteString(": ")
}

func (m *jsonMarshaler) writeIndent(depth int) {
	for range depth {
		m.buf.WriteString(m.indent)
	}
}

func (m *jsonMarshaler) push(segment string) { m.path = append(m.path, segment) }
func (m *jsonMarshaler) pop()                { m.path = m.path[:len(m.path)-1] }

func formatJSONFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("non-finite float %v has no JSON representation", f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s, nil
}

// UnmarshalJSON parses a JSON document back into a Root. Parsing works
// at the token level so that object member order is preserved. The
// top-level object must carry __WORLD_VERSION, which is extracted into
// Root.WorldVersion and never becomes a table entry; a document
// without it yields ErrMetadataMissing. Every other key, at every
// level, must carry a reserved type prefix.
func UnmarshalJSON(data []byte) (*Root, error) {
	u := &jsonUnmarshaler{dec: json.NewDecoder(bytes.NewReader(data))}
	u.dec.UseNumber()

	tok, err := u.dec.Token()
	if err != nil {
		return nil, u.textError(err, "reading document")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, u.textError(nil, "top-level value must be an object")
	}

	root := &Root{Data: &Table{}}
	haveVersion := false
	for u.dec.More() {
		keyTok, err := u.dec.Token()
		if err != nil {
			return nil, u.textError(err, "reading object key")
		}
		rawKey := keyTok.(string)

		if rawKey == WorldVersionKey {
			version, err := u.readWorldVersion()
			if err != nil {
				return nil, err
			}
			root.WorldVersion = version
			haveVersion = true
			continue
		}

		key, err := DecodeKey(rawKey)
		if err != nil {
			return nil, err
		}
		u.push(keyLabel(key))
		value, err := u.readValue()
		if err != nil {
			return nil, err
		}
		u.pop()
		root.Data.Put(key, value)
	}
	if _, err := u.dec.Token(); err != nil {
		return nil, u.textError(err, "reading end of object")
	}
	if _, err := u.dec.Token(); !errors.Is(err, io.EOF) {
		return nil, u.textError(nil, "trailing data after top-level object")
	}

	if !haveVersion {
		return nil, ErrMetadataMissing
	}
	return root, nil
}

type jsonUnmarshaler struct {
	dec  *json.Decoder
	path []string
}

func (u *jsonUnmarshaler) readWorldVersion() (uint32, error) {
	tok, err := u.dec.Token()
	if err != nil {
		return 0, u.textError(err, "reading world version")
	}
	num, ok := tok.(json.Number)
	if !ok {
		return 0, u.textError(nil, "world version must be an integer, got %v", tok)
	}
	version, err := strconv.ParseUint(num.String(), 10, 32)
	if err != nil {
		return 0, u.textError(err, "world version %s is not an unsigned 32-bit integer", num)
	}
	return uint32(version), nil
}

func (u *jsonUnmarshaler) readValue() (Value, error) {
	tok, err := u.dec.Token()
	if err != nil {
		return nil, u.textError(err, "reading value")
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return u.readTable()
		case '[':
			return u.readList()
		default:
			return nil, u.textError(nil, "unexpected %q", t.String())
		}
	case string:
		return String(t), nil
	case bool:
		return Boolean(t), nil
	case nil:
		return Null{}, nil
	case json.Number:
		return parseNumber(t, strings.Join(u.path, "."))
	default:
		return nil, u.textError(nil, "unsupported token %v", tok)
	}
}

func (u *jsonUnmarshaler) readTable() (Value, error) {
	table := &Table{}
	for u.dec.More() {
		keyTok, err := u.dec.Token()
		if err != nil {
			return nil, u.textError(err, "reading object key")
		}
		key, err := DecodeKey(keyTok.(string))
		if err != nil {
			return nil, err
		}
		u.push(keyLabel(key))
		value, err := u.readValue()
		if err != nil {
			return nil, err
		}
		u.pop()
		table.Put(key, value)
	}
	if _, err := u.dec.Token(); err != nil {
		return nil, u.textError(err, "reading end of object")
	}
	return table, nil
}

func (u *jsonUnmarshaler) readList() (Value, error) {
	list := &List{}
	for u.dec.More() {
		u.push(strconv.Itoa(len(list.Items) + 1))
		item, err := u.readValue()
		if err != nil {
			return nil, err
		}
		u.pop()
		list.Items = append(list.Items, item)
	}
	if _, err := u.dec.Token(); err != nil {
		return nil, u.textError(err, "reading end of array")
	}
	return list, nil
}

// parseNumber keeps the numeric kind of the literal: a literal with a
// decimal point or an exponent is a Float, anything else an Integer.
func parseNumber(num json.Number, path string) (Value, error) {
	s := num.String()
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, &TextError{Path: path, Msg: "float literal " + s + " does not parse", Err: err}
		}
		return Float(f), nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return nil, &TextError{Path: path, Msg: "integer literal " + s + " overflows int64"}
		}
		return nil, &TextError{Path: path, Msg: "integer literal " + s + " does not parse", Err: err}
	}
	return Integer(n), nil
}

func (u *jsonUnmarshaler) textError(cause error, format string, args ...any) error {
	return &TextError{
		Path: strings.Join(u.path, "."),
		Msg:  fmt.Sprintf(format, args...),
		Err:  cause,
	}
}

func (u *jsonUnmarshaler) push(segment string) { u.path = append(u.path, segment) }
func (u *jsonUnmarshaler) pop()                { u.path = u.path[:len(u.path)-1] }
