package gmdformat

// Value is a single node of the decoded global mod data tree. The
// concrete types are *Table, *List, String, Integer, Float, Boolean
// and Null.
type Value interface {
	isValue()
}

// String is a UTF-8 text scalar.
type String string

// Integer is a signed 64-bit integer scalar. It is a distinct kind
// from Float: an Integer never turns into a Float on any conversion
// path, and the binary encoder writes the two with different tags.
type Integer int64

// Float is a 64-bit floating point scalar.
type Float float64

// Boolean is a true/false scalar.
type Boolean bool

// Null is the absent-value scalar.
type Null struct{}

// KeyKind discriminates the two key namespaces of a table.
type KeyKind uint8

const (
	KeyString KeyKind = iota
	KeyNumber
)

// Key is a table key: either a string or a number. The two namespaces
// are disjoint, so StringKey("1") and NumberKey(1) may coexist in one
// table.
type Key struct {
	Kind KeyKind
	Str  string
	Num  float64
}

// StringKey builds a string-valued key.
func StringKey(s string) Key {
	return Key{Kind: KeyString, Str: s}
}

// NumberKey builds a number-valued key.
func NumberKey(n float64) Key {
	return Key{Kind: KeyNumber, Num: n}
}

// Entry is one key/value pair of a table.
type Entry struct {
	Key   Key
	Value Value
}

// Table is an ordered sequence of entries. Entry order is preserved
// through every decode/encode path even though the game treats tables
// as unordered.
type Table struct {
	Entries []Entry
}

// Put appends an entry.
func (t *Table) Put(k Key, v Value) {
	t.Entries = append(t.Entries, Entry{Key: k, Value: v})
}

// Get returns the value for a key, or nil when the key is absent.
func (t *Table) Get(k Key) Value {
	for _, e := range t.Entries {
		if e.Key == k {
			return e.Value
		}
	}
	return nil
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.Entries)
}

// List is an ordered sequence of values. On the wire a list is a table
// whose keys are exactly NumberKey(1)..NumberKey(n) in order; the
// decoder recognizes that shape and the encoder reproduces it
// byte-identically.
type List struct {
	Items []Value
}

// Len returns the number of items.
func (l *List) Len() int {
	return len(l.Items)
}

// Root is one decoded global mod data file: the root table of named
// mod tables plus the world version recovered from the binary header.
// WorldVersion is sidecar metadata and never appears as a table entry.
type Root struct {
	WorldVersion uint32
	Data         *Table
}

func (String) isValue()  {}
func (Integer) isValue() {}
func (Float) isValue()   {}
func (Boolean) isValue() {}
func (Null) isValue()    {}
func (*Table) isValue()  {}
func (*List) isValue()   {}
