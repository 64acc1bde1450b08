// Command gmdconv converts a game's global mod data saves between
// their binary form and editable text. The direction is picked from
// the input extension: a .bin file converts to text, a .json or .yaml
// file converts back to binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/modworks/gmdkit/pkg/gmd"
)

// config carries the default output locations so they can be swapped
// out in tests instead of living in package state.
type config struct {
	defaultJSONOut string
	defaultYAMLOut string
	defaultBinOut  string
}

func defaultConfig() config {
	return config{
		defaultJSONOut: filepath.Join("out", "global_mod_data.json"),
		defaultYAMLOut: filepath.Join("out", "global_mod_data.yaml"),
		defaultBinOut:  filepath.Join("out", "global_mod_data.bin"),
	}
}

func main() {
	os.Exit(run(os.Args[1:], defaultConfig(), os.Stdout, os.Stderr))
}

func run(args []string, cfg config, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gmdconv", flag.ContinueOnError)
	fs.SetOutput(stderr)
	output := fs.String("o", "", "output path (default depends on the conversion direction)")
	format := fs.String("format", "json", "textual format for binary input: json or yaml")
	query := fs.String("q", "", "print the result of an expression instead of writing a file")
	anyVersion := fs.Bool("any-version", false, "accept any world version on binary input")
	verbose := fs.Bool("v", false, "enable debug logging")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: gmdconv [flags] <input file>\n\n")
		fmt.Fprintf(stderr, "Pass a .bin file to convert to text, or a .json/.yaml file to convert to binary.\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	input := fs.Arg(0)

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	opts := []gmd.Option{gmd.WithLogger(logger), gmd.WithDebugMode(*verbose)}
	if *anyVersion {
		opts = append(opts, gmd.WithAnyVersion())
	}
	converter := gmd.NewConverter(opts...)

	data, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	ctx := context.Background()
	var outData []byte
	var outPath string

	switch ext := strings.ToLower(filepath.Ext(input)); ext {
	case ".bin":
		if *query != "" {
			root, err := converter.DecodeBinary(ctx, data)
			if err != nil {
				fmt.Fprintf(stderr, "error: %v\n", err)
				return 1
			}
			result, err := converter.Query(ctx, root, *query)
			if err != nil {
				fmt.Fprintf(stderr, "error: %v\n", err)
				return 1
			}
			fmt.Fprintf(stdout, "%v\n", result)
			return 0
		}
		switch *format {
		case "json":
			outData, err = converter.BinaryToJSON(ctx, data)
			outPath = cfg.defaultJSONOut
		case "yaml":
			outData, err = converter.BinaryToYAML(ctx, data)
			outPath = cfg.defaultYAMLOut
		default:
			fmt.Fprintf(stderr, "error: unknown format %q, want json or yaml\n", *format)
			return 2
		}
	case ".json":
		outData, err = converter.JSONToBinary(ctx, data)
		outPath = cfg.defaultBinOut
	case ".yaml", ".yml":
		outData, err = converter.YAMLToBinary(ctx, data)
		outPath = cfg.defaultBinOut
	default:
		fmt.Fprintf(stderr, "error: unknown extension %q: pass a .bin file to convert to text, or a .json/.yaml file to convert to binary\n", ext)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	if *output != "" {
		outPath = *output
	}
	// The converted document is complete at this point, so a write
	// failure cannot leave a truncated file behind a successful exit.
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
	}
	if err := os.WriteFile(outPath, outData, 0o644); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "wrote %s\n", outPath)
	return 0
}
