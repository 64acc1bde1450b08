package main

import (
	"context"
	"testing"

	"github.com/redpanda-data/benthos/v4/public/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modworks/gmdkit/testutil"
)

func sampleBinary(version uint32) []byte {
	table := testutil.Bytes(
		testutil.U4(1),
		[]byte{0}, testutil.Str("name"), []byte{0}, testutil.Str("mod"),
	)
	entry := testutil.Bytes(testutil.Str("MyMod"), table)
	return testutil.Bytes(testutil.U4(version), testutil.U4(1), testutil.U4(uint32(len(entry))), entry)
}

func newTestProcessor(t *testing.T, yaml string) *GMDProcessor {
	t.Helper()
	conf, err := gmdProcessorConfig().ParseYAML(yaml, nil)
	require.NoError(t, err)
	proc, err := newGMDProcessorFromConfig(conf, service.MockResources())
	require.NoError(t, err)
	return proc
}

func TestProcessorToJSON(t *testing.T) {
	proc := newTestProcessor(t, `direction: to_json`)
	defer proc.Close(context.Background())

	msg := service.NewMessage(sampleBinary(195))
	msg.MetaSet("source", "savefile")

	batch, err := proc.Process(context.Background(), msg)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	out, err := batch[0].AsBytes()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"__WORLD_VERSION": 195`)
	assert.Contains(t, string(out), `"_string: MyMod"`)

	meta, ok := batch[0].MetaGet("source")
	require.True(t, ok)
	assert.Equal(t, "savefile", meta)
}

func TestProcessorRoundTrip(t *testing.T) {
	toJSON := newTestProcessor(t, `direction: to_json`)
	toBinary := newTestProcessor(t, `direction: to_binary`)
	original := sampleBinary(195)

	batch, err := toJSON.Process(context.Background(), service.NewMessage(original))
	require.NoError(t, err)
	jsonData, err := batch[0].AsBytes()
	require.NoError(t, err)

	batch, err = toBinary.Process(context.Background(), service.NewMessage(jsonData))
	require.NoError(t, err)
	back, err := batch[0].AsBytes()
	require.NoError(t, err)
	assert.Equal(t, original, back)
}

func TestProcessorVersionCheck(t *testing.T) {
	strict := newTestProcessor(t, `direction: to_json`)
	batch, err := strict.Process(context.Background(), service.NewMessage(sampleBinary(7)))
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Error(t, batch[0].GetError())

	lenient := newTestProcessor(t, "direction: to_json\ncheck_version: false")
	batch, err = lenient.Process(context.Background(), service.NewMessage(sampleBinary(7)))
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.NoError(t, batch[0].GetError())
}

func TestProcessorMalformedInput(t *testing.T) {
	proc := newTestProcessor(t, `direction: to_binary`)
	batch, err := proc.Process(context.Background(), service.NewMessage([]byte(`{"no version": true}`)))
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Error(t, batch[0].GetError())
}

func TestProcessorConfigValidation(t *testing.T) {
	conf, err := gmdProcessorConfig().ParseYAML(`direction: sideways`, nil)
	require.NoError(t, err)
	_, err = newGMDProcessorFromConfig(conf, service.MockResources())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown direction")
}

func TestProcessorDefaults(t *testing.T) {
	proc := newTestProcessor(t, `{}`)
	assert.Equal(t, "to_json", proc.config.Direction)
	assert.True(t, proc.config.CheckVersion)
}
