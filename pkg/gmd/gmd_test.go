package gmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modworks/gmdkit/pkg/gmdformat"
	"github.com/modworks/gmdkit/testutil"
)

// sampleBinary builds a small valid save: version, one root entry
// "MyMod" holding {"name": "mod", "count": 42}.
func sampleBinary(version uint32) []byte {
	table := testutil.Bytes(
		testutil.U4(2),
		[]byte{0}, testutil.Str("name"), []byte{0}, testutil.Str("mod"),
		[]byte{0}, testutil.Str("count"), []byte{4}, testutil.S8(42),
	)
	entry := testutil.Bytes(testutil.Str("MyMod"), table)
	return testutil.Bytes(testutil.U4(version), testutil.U4(1), testutil.U4(uint32(len(entry))), entry)
}

func TestBinaryJSONRoundTrip(t *testing.T) {
	original := sampleBinary(195)

	jsonData, err := BinaryToJSON(original)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), `"__WORLD_VERSION": 195`)
	assert.Contains(t, string(jsonData), `"_string: MyMod"`)

	back, err := JSONToBinary(jsonData)
	require.NoError(t, err)
	assert.Equal(t, original, back)
}

func TestBinaryYAMLRoundTrip(t *testing.T) {
	original := sampleBinary(195)

	yamlData, err := BinaryToYAML(original)
	require.NoError(t, err)
	assert.Contains(t, string(yamlData), `"__WORLD_VERSION": 195`)

	back, err := YAMLToBinary(yamlData)
	require.NoError(t, err)
	assert.Equal(t, original, back)
}

func TestDecodeEncodeBinary(t *testing.T) {
	original := sampleBinary(195)

	root, err := DecodeBinary(original)
	require.NoError(t, err)
	assert.Equal(t, uint32(195), root.WorldVersion)
	assert.Equal(t, 1, root.Data.Len())

	back, err := EncodeBinary(root)
	require.NoError(t, err)
	assert.Equal(t, original, back)
}

func TestVersionOptions(t *testing.T) {
	data := sampleBinary(7)

	_, err := DecodeBinary(data)
	var formatErr *gmdformat.FormatError
	require.ErrorAs(t, err, &formatErr)

	root, err := DecodeBinary(data, WithAnyVersion())
	require.NoError(t, err)
	assert.Equal(t, uint32(7), root.WorldVersion)

	root, err = DecodeBinary(data, WithSupportedVersions(7, 195))
	require.NoError(t, err)
	assert.Equal(t, uint32(7), root.WorldVersion)
}

func TestConverterOptionsDoNotLeak(t *testing.T) {
	c := NewConverter(WithSupportedVersions(195))
	data := sampleBinary(7)

	// A per-call option applies to that call only.
	_, err := c.DecodeBinary(context.Background(), data, WithAnyVersion())
	require.NoError(t, err)

	_, err = c.DecodeBinary(context.Background(), data)
	var formatErr *gmdformat.FormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestBinaryToJSONPerCallOptions(t *testing.T) {
	// One call, two per-call options: the version override must reach
	// the decoder and the indent the marshaler.
	c := NewConverter()
	jsonData, err := c.BinaryToJSON(context.Background(), sampleBinary(7), WithAnyVersion(), WithIndent("\t"))
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), "\t\"__WORLD_VERSION\": 7")

	yamlData, err := c.BinaryToYAML(context.Background(), sampleBinary(7), WithAnyVersion())
	require.NoError(t, err)
	assert.Contains(t, string(yamlData), `"__WORLD_VERSION": 7`)
}

func TestWithIndent(t *testing.T) {
	jsonData, err := BinaryToJSON(sampleBinary(195), WithIndent("\t"))
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), "\t\"__WORLD_VERSION\"")
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewConverter()
	_, err := c.BinaryToJSON(ctx, sampleBinary(195))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = c.JSONToBinary(ctx, []byte(`{"__WORLD_VERSION": 195}`))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestErrorWrapping(t *testing.T) {
	_, err := JSONToBinary([]byte(`{"_string: name": "mod"}`))
	assert.ErrorIs(t, err, gmdformat.ErrMetadataMissing)

	_, err = DecodeBinary([]byte{1, 2, 3})
	var formatErr *gmdformat.FormatError
	assert.ErrorAs(t, err, &formatErr)
}
