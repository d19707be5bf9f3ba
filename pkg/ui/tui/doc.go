// Package tui is the bubbletea live view of a running scan. It is fed the
// same store changes any other observer receives and can ask the engine to
// stop.
package tui
