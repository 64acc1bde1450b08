// Package gmd provides a high-level API for converting a game's
// global mod data saves between their binary form and editable text.
//
// Basic usage:
//
//	// Convert a binary save to editable JSON
//	jsonData, err := gmd.BinaryToJSON(binData)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Convert edited JSON back to binary
//	binData, err = gmd.JSONToBinary(jsonData)
//	if err != nil {
//	    log.Fatal(err)
//	}
package gmd

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/modworks/gmdkit/pkg/gmdformat"
)

// Converter wraps the codec with logging and configuration.
type Converter struct {
	logger  *slog.Logger
	options options
}

// options holds configuration for the converter
type options struct {
	logger            *slog.Logger
	indent            string
	maxDepth          int
	supportedVersions []uint32
	anyVersion        bool
	debugMode         bool
}

// Option is a function that configures converter options
type Option func(*options)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithIndent sets the indentation of JSON output
func WithIndent(indent string) Option {
	return func(o *options) {
		o.indent = indent
	}
}

// WithMaxDepth bounds table nesting during decode and encode
func WithMaxDepth(depth int) Option {
	return func(o *options) {
		o.maxDepth = depth
	}
}

// WithSupportedVersions sets the world versions the binary decoder accepts
func WithSupportedVersions(versions ...uint32) Option {
	return func(o *options) {
		o.supportedVersions = versions
		o.anyVersion = false
	}
}

// WithAnyVersion disables the world version check on binary decode
func WithAnyVersion() Option {
	return func(o *options) {
		o.anyVersion = true
	}
}

// WithDebugMode enables debug logging
func WithDebugMode(enabled bool) Option {
	return func(o *options) {
		o.debugMode = enabled
	}
}

// defaultOptions returns the default configuration
func defaultOptions() options {
	return options{
		logger:            slog.Default(),
		indent:            gmdformat.DefaultIndent,
		maxDepth:          gmdformat.DefaultMaxDepth,
		supportedVersions: gmdformat.SupportedWorldVersions,
	}
}

// Global converter instance for convenience functions
var globalConverter *Converter
var globalConverterOnce sync.Once

func getGlobalConverter() *Converter {
	globalConverterOnce.Do(func() {
		globalConverter = NewConverter()
	})
	return globalConverter
}

// NewConverter creates a new converter instance with the given options
func NewConverter(opts ...Option) *Converter {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	if options.debugMode {
		options.logger = options.logger.With("debug", true)
	}

	return &Converter{
		logger:  options.logger,
		options: options,
	}
}

// DecodeBinary parses a global mod data binary into a Root
func DecodeBinary(data []byte, opts ...Option) (*gmdformat.Root, error) {
	return getGlobalConverter().DecodeBinary(context.Background(), data, opts...)
}

// EncodeBinary writes a Root back into the binary format
func EncodeBinary(root *gmdformat.Root, opts ...Option) ([]byte, error) {
	return getGlobalConverter().EncodeBinary(context.Background(), root, opts...)
}

// BinaryToJSON converts a global mod data binary into editable JSON
func BinaryToJSON(data []byte, opts ...Option) ([]byte, error) {
	return getGlobalConverter().BinaryToJSON(context.Background(), data, opts...)
}

// JSONToBinary converts an edited JSON document back into the binary format
func JSONToBinary(data []byte, opts ...Option) ([]byte, error) {
	return getGlobalConverter().JSONToBinary(context.Background(), data, opts...)
}

// BinaryToYAML converts a global mod data binary into editable YAML
func BinaryToYAML(data []byte, opts ...Option) ([]byte, error) {
	return getGlobalConverter().BinaryToYAML(context.Background(), data, opts...)
}

// YAMLToBinary converts an edited YAML document back into the binary format
func YAMLToBinary(data []byte, opts ...Option) ([]byte, error) {
	return getGlobalConverter().YAMLToBinary(context.Background(), data, opts...)
}

// DecodeBinary parses a global mod data binary into a Root
func (c *Converter) DecodeBinary(ctx context.Context, data []byte, opts ...Option) (*gmdformat.Root, error) {
	return c.decodeBinary(ctx, data, c.apply(opts))
}

func (c *Converter) decodeBinary(ctx context.Context, data []byte, options options) (*gmdformat.Root, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := gmdformat.DecodeWithOptions(data, gmdformat.DecodeOptions{
		MaxDepth:          options.maxDepth,
		SupportedVersions: options.decodeVersions(),
	})
	if err != nil {
		return nil, fmt.Errorf("decoding binary: %w", err)
	}
	c.logger.DebugContext(ctx, "decoded global mod data",
		"bytes", len(data), "world_version", root.WorldVersion, "tables", root.Data.Len())
	return root, nil
}

// EncodeBinary writes a Root back into the binary format
func (c *Converter) EncodeBinary(ctx context.Context, root *gmdformat.Root, opts ...Option) ([]byte, error) {
	options := c.apply(opts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := gmdformat.EncodeWithOptions(root, gmdformat.EncodeOptions{MaxDepth: options.maxDepth})
	if err != nil {
		return nil, fmt.Errorf("encoding binary: %w", err)
	}
	c.logger.DebugContext(ctx, "encoded global mod data",
		"bytes", len(data), "world_version", root.WorldVersion)
	return data, nil
}

// BinaryToJSON converts a global mod data binary into editable JSON
func (c *Converter) BinaryToJSON(ctx context.Context, data []byte, opts ...Option) ([]byte, error) {
	options := c.apply(opts)
	root, err := c.decodeBinary(ctx, data, options)
	if err != nil {
		return nil, err
	}
	out, err := gmdformat.MarshalJSON(root, options.indent)
	if err != nil {
		return nil, fmt.Errorf("marshaling to JSON: %w", err)
	}
	return out, nil
}

// JSONToBinary converts an edited JSON document back into the binary format
func (c *Converter) JSONToBinary(ctx context.Context, data []byte, opts ...Option) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root, err := gmdformat.UnmarshalJSON(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshaling JSON: %w", err)
	}
	return c.EncodeBinary(ctx, root, opts...)
}

// BinaryToYAML converts a global mod data binary into editable YAML
func (c *Converter) BinaryToYAML(ctx context.Context, data []byte, opts ...Option) ([]byte, error) {
	root, err := c.decodeBinary(ctx, data, c.apply(opts))
	if err != nil {
		return nil, err
	}
	out, err := gmdformat.MarshalYAML(root)
	if err != nil {
		return nil, fmt.Errorf("marshaling to YAML: %w", err)
	}
	return out, nil
}

// YAMLToBinary converts an edited YAML document back into the binary format
func (c *Converter) YAMLToBinary(ctx context.Context, data []byte, opts ...Option) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root, err := gmdformat.UnmarshalYAML(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshaling YAML: %w", err)
	}
	return c.EncodeBinary(ctx, root, opts...)
}

func (c *Converter) apply(opts []Option) options {
	options := c.options
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

func (o *options) decodeVersions() []uint32 {
	if o.anyVersion {
		return nil
	}
	return o.supportedVersions
}
