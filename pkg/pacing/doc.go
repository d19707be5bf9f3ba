// Package pacing spaces out page requests so a scan looks like a person
// scrolling rather than a crawler: a caller-chosen baseline plus random jitter.
package pacing
