// Package storage manages the directory scan results are exported to.
//
// Files are written through a temporary file and renamed into place, so a
// crash never leaves a truncated export behind. The Manager remembers which
// result files already exist, both ones it wrote and ones found on startup.
//
// Usage:
//
//	manager, err := storage.NewManager("exports")
//	if err != nil {
//	    return err
//	}
//	path, err := manager.Save(bytes.NewReader(data), "instatrack_results_2024-03-01.json")
package storage
