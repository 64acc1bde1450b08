package gmdformat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modworks/gmdkit/testutil"
)

func TestMarshalJSONScenario(t *testing.T) {
	data := &Table{}
	data.Put(NumberKey(1), Integer(42))
	data.Put(StringKey("name"), String("mod"))
	root := &Root{WorldVersion: 7, Data: data}

	got, err := MarshalJSON(root, DefaultIndent)
	require.NoError(t, err)

	want := `{
    "__WORLD_VERSION": 7,
    "_number: 1": 42,
    "_string: name": "mod"
}`
	assert.Equal(t, want, string(got))

	back, err := UnmarshalJSON(got)
	require.NoError(t, err)
	if diff := testutil.Diff(root, back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	root := modFixtureTree(195)

	text, err := MarshalJSON(root, DefaultIndent)
	require.NoError(t, err)

	back, err := UnmarshalJSON(text)
	require.NoError(t, err)
	if diff := testutil.Diff(root, back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONPreservesEntryOrder(t *testing.T) {
	// Deliberately non-alphabetical insertion order.
	data := &Table{}
	data.Put(StringKey("zebra"), Integer(1))
	data.Put(StringKey("apple"), Integer(2))
	data.Put(NumberKey(9), Integer(3))
	data.Put(StringKey("mango"), Integer(4))
	root := &Root{WorldVersion: 195, Data: data}

	text, err := MarshalJSON(root, DefaultIndent)
	require.NoError(t, err)
	back, err := UnmarshalJSON(text)
	require.NoError(t, err)

	var keys []Key
	for _, entry := range back.Data.Entries {
		keys = append(keys, entry.Key)
	}
	assert.Equal(t, []Key{StringKey("zebra"), StringKey("apple"), NumberKey(9), StringKey("mango")}, keys)
}

func TestJSONNumericKindFidelity(t *testing.T) {
	data := &Table{}
	data.Put(StringKey("int"), Integer(5))
	data.Put(StringKey("float"), Float(5))
	root := &Root{WorldVersion: 195, Data: data}

	text, err := MarshalJSON(root, DefaultIndent)
	require.NoError(t, err)
	assert.Contains(t, string(text), `"_string: int": 5,`)
	assert.Contains(t, string(text), `"_string: float": 5.0`)

	back, err := UnmarshalJSON(text)
	require.NoError(t, err)
	assert.Equal(t, Integer(5), back.Data.Get(StringKey("int")))
	assert.Equal(t, Float(5), back.Data.Get(StringKey("float")))
}

func TestUnmarshalJSONMissingVersion(t *testing.T) {
	_, err := UnmarshalJSON([]byte(`{"_string: name": "mod"}`))
	assert.ErrorIs(t, err, ErrMetadataMissing)
}

func TestUnmarshalJSONVersionIsMetadataOnly(t *testing.T) {
	// The version key is only metadata at the top level; nested it is
	// just an unprefixed key and gets rejected.
	text := []byte(`{
		"__WORLD_VERSION": 195,
		"_string: mod": {"__WORLD_VERSION": 1}
	}`)
	_, err := UnmarshalJSON(text)
	var keyErr *KeyFormatError
	require.ErrorAs(t, err, &keyErr)
	assert.Equal(t, "__WORLD_VERSION", keyErr.Key)

	// And on the way out it never appears as a table entry.
	root, err := UnmarshalJSON([]byte(`{"__WORLD_VERSION": 195, "_string: mod": {}}`))
	require.NoError(t, err)
	assert.Equal(t, uint32(195), root.WorldVersion)
	assert.Nil(t, root.Data.Get(StringKey("__WORLD_VERSION")))
	assert.Equal(t, 1, root.Data.Len())
}

func TestUnmarshalJSONBadKey(t *testing.T) {
	_, err := UnmarshalJSON([]byte(`{"__WORLD_VERSION": 195, "name": "mod"}`))
	var keyErr *KeyFormatError
	require.ErrorAs(t, err, &keyErr)
	assert.Equal(t, "name", keyErr.Key)
}

func TestUnmarshalJSONBadVersion(t *testing.T) {
	for _, doc := range []string{
		`{"__WORLD_VERSION": "195"}`,
		`{"__WORLD_VERSION": 1.5}`,
		`{"__WORLD_VERSION": -1}`,
	} {
		t.Run(doc, func(t *testing.T) {
			_, err := UnmarshalJSON([]byte(doc))
			var textErr *TextError
			require.ErrorAs(t, err, &textErr)
		})
	}
}

func TestUnmarshalJSONIntegerOverflow(t *testing.T) {
	_, err := UnmarshalJSON([]byte(`{"__WORLD_VERSION": 195, "_string: big": 99999999999999999999}`))
	var textErr *TextError
	require.ErrorAs(t, err, &textErr)
	assert.Contains(t, textErr.Msg, "overflows int64")
	assert.Contains(t, textErr.Path, `"big"`)
}

func TestUnmarshalJSONStructuralErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"top-level array", `[1, 2]`},
		{"top-level scalar", `42`},
		{"trailing garbage", `{"__WORLD_VERSION": 195} extra`},
		{"unterminated object", `{"__WORLD_VERSION": 195`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := UnmarshalJSON([]byte(tc.doc))
			var textErr *TextError
			require.ErrorAs(t, err, &textErr)
		})
	}
}

func TestMarshalJSONNonFiniteFloat(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		data := &Table{}
		data.Put(StringKey("f"), Float(f))
		_, err := MarshalJSON(&Root{WorldVersion: 195, Data: data}, DefaultIndent)
		var textErr *TextError
		require.ErrorAs(t, err, &textErr)
		assert.Contains(t, textErr.Msg, "non-finite")
	}
}

func TestJSONStringEscaping(t *testing.T) {
	data := &Table{}
	data.Put(StringKey(`quote " and slash \`), String("line\nbreak\tand \"quotes\""))
	root := &Root{WorldVersion: 195, Data: data}

	text, err := MarshalJSON(root, DefaultIndent)
	require.NoError(t, err)
	back, err := UnmarshalJSON(text)
	require.NoError(t, err)
	if diff := testutil.Diff(root, back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
