// Package server implements the MCP (Model Context Protocol) server for the
// RmSAT-CFAR target detector.
//
// This package provides a JSON-RPC 2.0 server that exposes detection, clutter
// model fitting and image inspection through the MCP protocol, so that MCP
// clients can run CFAR detection on radar intensity images.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - cfar_detect: Run the detector and write the target mask (and optionally an overlay)
//   - cfar_fit_mixture: Fit the Rayleigh mixture clutter model to an image region
//   - image_info: Dimensions, intensity range and nonzero bounding box of an image
//   - cfar_parameters: Clutter area and tile halo implied by detector parameters
//
// Detector settings in tool arguments use the keys of the JSON configuration
// file (guard_radius, clutter_radius, probability_of_false_alarm, ...). They
// override the configuration the server was started with for that call only.
//
// # Image Caching
//
// The server keeps decoded rasters in memory keyed by path, so repeated calls on
// one scene read the file once. The cache persists for the lifetime of the
// server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.NewWithConfig(cfg, logger)
//	if err := srv.Run(); err != nil {
//	    log.Fatal().Err(err).Msg("server stopped")
//	}
package server
