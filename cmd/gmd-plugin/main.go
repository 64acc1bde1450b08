// Command gmd-plugin runs a Benthos stream pipeline with a `gmd`
// processor that converts global mod data messages between their
// binary form and JSON.
package main

import (
	"context"
	"fmt"

	_ "github.com/redpanda-data/benthos/v4/public/components/io"
	_ "github.com/redpanda-data/benthos/v4/public/components/pure"
	"github.com/redpanda-data/benthos/v4/public/service"

	"github.com/modworks/gmdkit/pkg/gmd"
)

// GMDProcessor is a Benthos processor that converts global mod data
// between binary and JSON.
type GMDProcessor struct {
	config    GMDConfig
	converter *gmd.Converter
	logger    *service.Logger
	mToJSON   *service.MetricCounter
	mToBinary *service.MetricCounter
	mErrors   *service.MetricCounter
}

// GMDConfig contains configuration parameters for the gmd processor.
type GMDConfig struct {
	Direction    string `json:"direction" yaml:"direction"`
	CheckVersion bool   `json:"check_version" yaml:"check_version"`
}

func init() {
	err := service.RegisterProcessor(
		"gmd",
		gmdProcessorConfig(),
		func(conf *service.ParsedConfig, mgr *service.Resources) (service.Processor, error) {
			return newGMDProcessorFromConfig(conf, mgr)
		},
	)
	if err != nil {
		panic(err)
	}
}

// gmdProcessorConfig returns a config spec for a gmd processor.
func gmdProcessorConfig() *service.ConfigSpec {
	return service.NewConfigSpec().
		Summary("Converts global mod data messages between their binary form and JSON.").
		Description("Binary messages decode into the editable JSON representation with type-prefixed keys and the __WORLD_VERSION field; JSON messages encode back to the binary format the game loads.").
		Field(service.NewStringField("direction").
			Description("Either to_json (binary input) or to_binary (JSON input).").
			Default("to_json")).
		Field(service.NewBoolField("check_version").
			Description("Whether to reject binary input with an unsupported world version.").
			Default(true)).
		Version("0.1.0")
}

// newGMDProcessorFromConfig creates a new GMDProcessor from a parsed config.
func newGMDProcessorFromConfig(conf *service.ParsedConfig, mgr *service.Resources) (*GMDProcessor, error) {
	direction, err := conf.FieldString("direction")
	if err != nil {
		return nil, err
	}
	if direction != "to_json" && direction != "to_binary" {
		return nil, fmt.Errorf("unknown direction %q, want to_json or to_binary", direction)
	}

	checkVersion, err := conf.FieldBool("check_version")
	if err != nil {
		return nil, err
	}

	opts := []gmd.Option{}
	if !checkVersion {
		opts = append(opts, gmd.WithAnyVersion())
	}

	metrics := mgr.Metrics()
	return &GMDProcessor{
		config:    GMDConfig{Direction: direction, CheckVersion: checkVersion},
		converter: gmd.NewConverter(opts...),
		logger:    mgr.Logger(),
		mToJSON:   metrics.NewCounter("gmd_decoded_messages"),
		mToBinary: metrics.NewCounter("gmd_encoded_messages"),
		mErrors:   metrics.NewCounter("gmd_processing_errors"),
	}, nil
}

// Process converts one message.
func (g *GMDProcessor) Process(ctx context.Context, msg *service.Message) (service.MessageBatch, error) {
	data, err := msg.AsBytes()
	if err != nil {
		g.logger.Errorf("Failed to get message payload: %v", err)
		g.mErrors.Incr(1)
		msg.SetError(fmt.Errorf("failed to get message payload: %w", err))
		return service.MessageBatch{msg}, nil
	}

	var out []byte
	if g.config.Direction == "to_json" {
		out, err = g.converter.BinaryToJSON(ctx, data)
	} else {
		out, err = g.converter.JSONToBinary(ctx, data)
	}
	if err != nil {
		g.logger.Errorf("Failed to convert %d bytes (%s): %v", len(data), g.config.Direction, err)
		g.mErrors.Incr(1)
		msg.SetError(fmt.Errorf("converting message (%s): %w", g.config.Direction, err))
		return service.MessageBatch{msg}, nil
	}

	if g.config.Direction == "to_json" {
		g.mToJSON.Incr(1)
	} else {
		g.mToBinary.Incr(1)
	}

	newMsg := service.NewMessage(out)
	msg.MetaWalk(func(key, value string) error {
		newMsg.MetaSet(key, value)
		return nil
	})
	return service.MessageBatch{newMsg}, nil
}

// Close releases processor resources.
func (g *GMDProcessor) Close(ctx context.Context) error {
	return nil
}

func main() {
	service.RunCLI(context.Background())
}
