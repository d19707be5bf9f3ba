// Package ui holds the terminal presentation of scans: lipgloss styled
// print helpers, a single-line progress display fed by store changes,
// the results table and completion notifications.
package ui
