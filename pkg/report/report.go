package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"igaudit/pkg/scan"
	"igaudit/pkg/storage"
	"igaudit/pkg/store"
)

// ErrNothingToExport is returned when there are no results to write
var ErrNothingToExport = errors.New("no results to export")

// ErrInvalidDocument is returned by Import for input that is not an export
var ErrInvalidDocument = errors.New("invalid file format")

// Document is the exported results file
type Document struct {
	ScanDate string         `json:"scanDate"`
	UserID   string         `json:"userId"`
	Count    int            `json:"count"`
	Users    []scan.Account `json:"users"`
}

// FileName is the export file name for the UTC date of now
func FileName(now time.Time) string {
	return storage.ExportPrefix + now.UTC().Format("2006-01-02") + storage.ExportExt
}

// Export builds a document from the stored results. userID falls back to
// the one recorded in the current stats.
func Export(ctx context.Context, st store.Store, userID string, now time.Time) (*Document, error) {
	var users []scan.Account
	if _, err := store.GetInto(ctx, st, store.KeyCurrentNonFollowers, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNothingToExport
	}

	if userID == "" {
		var stats scan.Stats
		if _, err := store.GetInto(ctx, st, store.KeyCurrentStats, &stats); err != nil {
			return nil, err
		}
		userID = stats.UserID
	}

	return &Document{
		ScanDate: now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		UserID:   userID,
		Count:    len(users),
		Users:    users,
	}, nil
}

// Marshal renders doc with two-space indentation and a trailing newline
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes doc into the manager's directory under FileName and returns
// the full path
func Save(m *storage.Manager, doc *Document, now time.Time) (string, error) {
	data, err := Marshal(doc)
	if err != nil {
		return "", err
	}
	return m.Save(bytes.NewReader(data), FileName(now))
}

// WriteFile writes doc into dir, creating it if needed
func WriteFile(dir string, doc *Document, now time.Time) (string, error) {
	m, err := storage.NewManager(dir)
	if err != nil {
		return "", err
	}
	return Save(m, doc, now)
}

type importDocument struct {
	ScanDate string          `json:"scanDate"`
	UserID   string          `json:"userId"`
	Count    int             `json:"count"`
	Users    json.RawMessage `json:"users"`
}

// Import loads an exported document into the store as a completed import.
// The document's count field is informational; the users array is
// authoritative.
func Import(ctx context.Context, st store.Store, r io.Reader, now time.Time) (*Document, error) {
	var in importDocument
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	trimmed := bytes.TrimSpace(in.Users)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: users must be an array", ErrInvalidDocument)
	}
	users := []scan.Account{}
	if err := json.Unmarshal(trimmed, &users); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	stats := scan.Stats{
		TotalFollowed:     len(users),
		ProcessedCount:    len(users),
		NonFollowersCount: len(users),
		Progress:          100,
		Status:            scan.StatusCompleted,
		Source:            scan.SourceImport,
		UserID:            in.UserID,
		UpdatedAt:         &now,
	}

	err := st.Set(ctx, map[string]any{
		store.KeyCurrentStats:        stats,
		store.KeyCurrentNonFollowers: users,
		store.KeyIsDownloaded:        true,
		store.KeyLastError:           nil,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store imported results: %w", err)
	}

	return &Document{
		ScanDate: in.ScanDate,
		UserID:   in.UserID,
		Count:    len(users),
		Users:    users,
	}, nil
}
