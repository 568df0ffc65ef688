// Package publish builds, validates and uploads Python distributions.
package publish

// Version is the release version reported by the CLI and the MCP server.
var Version = "0.3.0"
