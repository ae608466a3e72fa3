// Package cli provides common utilities for the ciris command-line tool.
//
// This package includes:
//   - Configuration management (server contexts)
//   - Output formatting (JSON, YAML, raw)
//   - Request file loading (YAML/JSON)
//   - Terminal styling for the event stream viewer
//
// Configuration is stored in ~/.ciris/config.yaml, supporting multiple
// server contexts similar to kubectl.
//
// Example usage:
//
//	cfg, err := cli.LoadConfig("")
//
//	ctx, err := cfg.GetCurrentContext()
//
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    File:   outputPath,
//	})
package cli
