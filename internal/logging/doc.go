// Package logging provides file-based structured logging with rotation for KBMCP.
// Logs are written as JSON lines to ~/.kbmcp/logs/ so they can be filtered and
// followed with `kbmcp logs`.
//
// In MCP serve mode stdout carries the JSON-RPC stream exclusively, so logging
// goes to file only and never to stdout or stderr.
package logging
