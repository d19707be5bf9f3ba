// Package server exposes the scan engine over local HTTP and WebSocket.
//
// Commands arrive on POST /api/commands or over /api/ws. State changes are
// pushed to every WebSocket client as {key, newValue} events, so a client
// never has to poll. Request bodies are never logged.
package server
